package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/api/middleware"
	"github.com/isokofarm/isoko-backend/api/responses"
	"github.com/isokofarm/isoko-backend/api/validators"
	"github.com/isokofarm/isoko-backend/internal/checkout"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/types"
)

type checkoutRequest struct {
	CartEntryIDs    []uuid.UUID           `json:"cart_entry_ids" validate:"omitempty,dive,required"`
	DeliveryAddress types.DeliveryAddress `json:"delivery_address" validate:"required"`
	Notes           *string               `json:"notes" validate:"omitempty,max=1000"`
}

// Checkout assembles per-farmer orders from the buyer's cart.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.CreateFromCart(r.Context(), checkout.CreateInput{
			BuyerID:         buyerID,
			CartEntryIDs:    req.CartEntryIDs,
			DeliveryAddress: req.DeliveryAddress,
			Notes:           req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders": orders})
	}
}
