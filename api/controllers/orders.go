package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/orders"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type orderItemRequest struct {
	PhotoID   uuid.UUID       `json:"photo_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type createOrderRequest struct {
	ContactName  string             `json:"contact_name" validate:"required,min=1,max=200"`
	ContactEmail string             `json:"contact_email" validate:"required,email"`
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r createOrderRequest) toInput(token string) orders.CreateOrderInput {
	items := make([]orders.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, orders.ItemInput{
			PhotoID:   item.PhotoID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orders.CreateOrderInput{
		ShareToken:   token,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		Items:        items,
	}
}

// CreateOrder takes a storefront purchase against a share token. The token
// rides the URL so the order inherits the share's access checks.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		token, err := validators.ShareToken(chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), req.toInput(token))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order, used by the storefront confirmation page.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListShareOrders returns every order placed against a share token. Admin only.
func ListShareOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		shareTokenID, err := uuid.Parse(chi.URLParam(r, "shareID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share id"))
			return
		}

		rows, err := svc.ListByShareToken(r.Context(), shareTokenID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
