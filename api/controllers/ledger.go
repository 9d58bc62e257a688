package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/isokofarm/isoko-backend/api/middleware"
	"github.com/isokofarm/isoko-backend/api/responses"
	"github.com/isokofarm/isoko-backend/internal/ledger"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
)

// FarmerLedgerSummary returns the farmer's paid revenue rollup. An optional
// `since` query (RFC 3339) windows the aggregation.
func FarmerLedgerSummary(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var since *time.Time
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid since timestamp"))
				return
			}
			since = &parsed
		}

		summary, err := svc.Summary(r.Context(), ledger.SummaryInput{
			FarmerID: userID,
			Since:    since,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
