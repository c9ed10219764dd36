package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
	"github.com/ykarpenko/solvebot-backend/pkg/metrics"
)

// TxRunner executes fn within one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Crediter is the entitlement operation the processor drives. The credit runs
// inside the processor's transaction: a failed credit releases the invoice
// claim so a redelivery can complete the purchase.
type Crediter interface {
	CreditPremiumTx(ctx context.Context, tx *gorm.DB, id int64, days int) (int64, error)
	Entitlement(ctx context.Context, id int64) (int64, *int64, error)
}

// PurchaseHook runs after a non-duplicate payment has been credited. Its
// failure never rolls back the credit; the payment is the durable fact.
type PurchaseHook interface {
	OnPurchase(ctx context.Context, userID int64)
}

// ServiceParams groups dependencies for the payment processor.
type ServiceParams struct {
	Repo        Repository
	Tx          TxRunner
	Entitlement Crediter
	Hook        PurchaseHook
	Logger      *logger.Logger
	Metrics     *metrics.LedgerMetrics
}

// Service ingests payment notifications exactly once and drives the credit.
type Service struct {
	repo        Repository
	tx          TxRunner
	entitlement Crediter
	hook        PurchaseHook
	logg        *logger.Logger
	metrics     *metrics.LedgerMetrics
}

// Result reports the entitlement after processing and whether the
// notification was a duplicate delivery.
type Result struct {
	PremiumUntil int64
	Duplicate    bool
}

// NewService builds a payment processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Entitlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlement service required")
	}
	return &Service{
		repo:        params.Repo,
		tx:          params.Tx,
		entitlement: params.Entitlement,
		hook:        params.Hook,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// ProcessPayment records the charge and credits the purchased days. A second
// delivery of the same invoice id returns the current entitlement unchanged
// and performs no further action.
func (s *Service) ProcessPayment(ctx context.Context, invoiceID string, userID int64, amount int64, days int) (Result, error) {
	if invoiceID == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if userID == 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if days <= 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}

	// The claim and the credit commit together: when the credit fails the
	// invoice row rolls back too, leaving the redelivery free to retry.
	var (
		inserted bool
		newUntil int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		inserted, txErr = s.repo.WithTx(tx).InsertIfAbsent(ctx, &models.Payment{
			InvoiceID: invoiceID,
			UserID:    userID,
			Amount:    amount,
		})
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "record payment")
		}
		if !inserted {
			return nil
		}
		newUntil, txErr = s.entitlement.CreditPremiumTx(ctx, tx, userID, days)
		return txErr
	})
	if err != nil {
		return Result{}, err
	}

	if !inserted {
		until, _, err := s.entitlement.Entitlement(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		s.metrics.IncPaymentDuplicate()
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"invoice_id": invoiceID, "user_id": userID})
			s.logg.Info(logCtx, "duplicate payment notification ignored")
		}
		return Result{PremiumUntil: until, Duplicate: true}, nil
	}
	s.metrics.IncPaymentProcessed()

	if s.hook != nil {
		s.hook.OnPurchase(ctx, userID)
	}

	return Result{PremiumUntil: newUntil}, nil
}
