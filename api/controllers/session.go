package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	"github.com/ykarpenko/solvebot-backend/api/validators"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

// AnswerCache holds the user's last answer so a follow-up expand request can
// reuse it without recomputation.
type AnswerCache interface {
	PutAnswer(ctx context.Context, userID int64, answer string) error
	LastAnswer(ctx context.Context, userID int64) (string, bool, error)
	Forget(ctx context.Context, userID int64) error
}

type putAnswerRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Answer string `json:"answer" validate:"required"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	Found  bool   `json:"found"`
}

func SessionPutAnswer(cache AnswerCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cache == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session cache unavailable"))
			return
		}

		var payload putAnswerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := cache.PutAnswer(ctx, payload.UserID, payload.Answer); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func SessionLastAnswer(cache AnswerCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cache == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session cache unavailable"))
			return
		}

		userID, err := sessionUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		answer, found, err := cache.LastAnswer(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, answerResponse{Answer: answer, Found: found})
	}
}

func SessionForget(cache AnswerCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cache == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session cache unavailable"))
			return
		}

		userID, err := sessionUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := cache.Forget(ctx, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func sessionUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "userId"))
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id must be a positive integer")
	}
	return userID, nil
}
