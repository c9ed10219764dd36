package controllers

import (
	"net/http"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	"github.com/ykarpenko/solvebot-backend/api/validators"
	"github.com/ykarpenko/solvebot-backend/internal/quota"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

type consumeRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Kind   string `json:"kind" validate:"required,oneof=text photo"`
}

// Consume takes one quota slot for the request kind. A denial maps to 429
// with the remaining allowance in the error details.
func Consume(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload consumeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithUserID(ctx, payload.UserID)
		}
		result, err := svc.Consume(ctx, payload.UserID, quota.Kind(payload.Kind))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !result.Allowed {
			denied := pkgerrors.New(pkgerrors.CodeQuotaExceeded, "daily free limit reached, upgrade to premium for unlimited access").
				WithDetails(map[string]any{
					"remaining_texts":  result.RemainingTexts,
					"remaining_photos": result.RemainingPhotos,
					"upgrade":          "/api/v1/plans",
				})
			responses.WriteError(ctx, logg, w, denied)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
