package mercadopagowebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

// Payment statuses MercadoPago reports on the payment resource.
const (
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
)

// Payment is the slice of the MercadoPago payment resource the webhook needs.
type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// Client fetches payment resources from the MercadoPago REST API. The
// notification body carries only the payment id, so the status and the
// originating order have to be looked up.
type Client struct {
	http        *http.Client
	baseURL     string
	accessToken string
}

func NewClient(cfg config.MercadoPagoConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mercadopago access token required")
	}
	if cfg.BaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mercadopago base url required")
	}
	return &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
	}, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %s not found", paymentID))
	case resp.StatusCode != http.StatusOK:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("mercadopago returned status %d", resp.StatusCode))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment")
	}
	return &payment, nil
}
