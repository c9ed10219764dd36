package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

// UserStatus returns the read-only entitlement view for a user.
func UserStatus(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "userId"))
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user id must be a positive integer"))
			return
		}

		if logg != nil {
			ctx = logg.WithUserID(ctx, userID)
		}
		status, err := svc.Status(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
