package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	"github.com/ykarpenko/solvebot-backend/api/validators"
	"github.com/ykarpenko/solvebot-backend/internal/gateway"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

// PaymentIngestService reconciles a completed charge exactly once.
type PaymentIngestService interface {
	IngestPayment(ctx context.Context, invoiceID string, userID int64, amount int64, days int) (gateway.IngestResult, error)
}

type paymentWebhookGuard interface {
	CheckAndMark(ctx context.Context, invoiceID string) (bool, error)
	Delete(ctx context.Context, invoiceID string) error
}

type paymentWebhookRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Plan      string `json:"plan" validate:"required,oneof=day week month"`
}

// PaymentWebhook ingests successful-payment notifications from the payment
// provider. The redis guard absorbs provider retries cheaply; the payments
// table stays the authority, so a guard miss is never a correctness problem.
func PaymentWebhook(svc PaymentIngestService, cfg *config.Config, guard paymentWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		var payload paymentWebhookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload.InvoiceID = strings.TrimSpace(payload.InvoiceID)
		if payload.InvoiceID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required"))
			return
		}

		days, ok := planDays(cfg.Plans, payload.Plan)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, payload.InvoiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, gateway.IngestResult{Duplicate: true})
			return
		}

		result, err := svc.IngestPayment(ctx, payload.InvoiceID, payload.UserID, payload.Amount, days)
		if err != nil {
			_ = guard.Delete(ctx, payload.InvoiceID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment %s processed", payload.InvoiceID))
		}
		responses.WriteSuccess(w, result)
	}
}

func planDays(plans config.PlanConfig, code string) (int, bool) {
	for _, plan := range plans.Catalog() {
		if plan.Code == code {
			return plan.Days, true
		}
	}
	return 0, false
}
