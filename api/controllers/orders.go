package controllers

import (
	"net/http"
	"strings"

	"github.com/isokofarm/isoko-backend/api/middleware"
	"github.com/isokofarm/isoko-backend/api/responses"
	"github.com/isokofarm/isoko-backend/api/validators"
	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

type transitionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// OrdersList pages the actor's orders, buyer- or farmer-scoped by role.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		rows, next, err := svc.List(r.Context(), orders.ActorInput{UserID: userID, Role: role}, pagination.Params{
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":  rows,
			"cursor": next,
		})
	}
}

// OrdersDetail returns one order visible to the actor.
func OrdersDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orders.ActorInput{UserID: userID, Role: role}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderTransition drives one lifecycle action against an order.
func OrderTransition(svc orders.Service, action enums.OrderAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Transition(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Action:  action,
			Actor:   orders.ActorInput{UserID: userID, Role: role},
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
