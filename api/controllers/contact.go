package controllers

import (
	"context"
	"net/http"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	"github.com/ykarpenko/solvebot-backend/api/validators"
	"github.com/ykarpenko/solvebot-backend/internal/gateway"
	"github.com/ykarpenko/solvebot-backend/internal/quota"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

// LedgerService describes the gateway methods used by the HTTP controllers.
type LedgerService interface {
	EnsureContact(ctx context.Context, userID int64, referrerCode string) error
	Consume(ctx context.Context, userID int64, kind quota.Kind) (gateway.ConsumeResult, error)
	Status(ctx context.Context, userID int64) (gateway.Status, error)
}

type contactRequest struct {
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// Contact registers a user on first contact and applies the referral code
// when one is carried in the start payload.
func Contact(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithUserID(ctx, payload.UserID)
		}
		if err := svc.EnsureContact(ctx, payload.UserID, payload.ReferralCode); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Status(ctx, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
