package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	mercadopagowebhook "github.com/mcastellanos/fotoescolar-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type MercadoPagoWebhookService interface {
	HandleNotification(ctx context.Context, notification *mercadopagowebhook.Notification) error
}

type mercadoPagoGuard interface {
	CheckAndMark(ctx context.Context, notificationID string) (bool, error)
	Delete(ctx context.Context, notificationID string) error
}

type signatureVerifier interface {
	Verify(dataID, requestID, header string) error
}

// MercadoPagoWebhook settles orders from MercadoPago payment notifications.
// The signature covers data.id plus the x-request-id header, so both are
// verified before anything touches the database.
func MercadoPagoWebhook(svc MercadoPagoWebhookService, verifier signatureVerifier, guard mercadoPagoGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var notification mercadopagowebhook.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode notification"))
			return
		}
		if notification.Data.ID.String() == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "notification data id missing"))
			return
		}

		dataID := notification.Data.ID.String()
		requestID := r.Header.Get("X-Request-Id")
		if err := verifier.Verify(dataID, requestID, r.Header.Get("X-Signature")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Deliveries are keyed by payment id and request id together: a
		// retried delivery carries the same pair, a genuinely new status
		// change for the same payment arrives under a fresh request id.
		deliveryID := dataID + ":" + requestID
		alreadyProcessed, err := guard.CheckAndMark(ctx, deliveryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleNotification(ctx, &notification); err != nil {
			_ = guard.Delete(ctx, deliveryID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("mercadopago notification %s processed", dataID))
		}
		responses.WriteSuccess(w, nil)
	}
}
