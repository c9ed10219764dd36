package gateway

import (
	"context"

	"github.com/ykarpenko/solvebot-backend/internal/entitlement"
	"github.com/ykarpenko/solvebot-backend/internal/payments"
	"github.com/ykarpenko/solvebot-backend/internal/quota"
	"github.com/ykarpenko/solvebot-backend/internal/referrals"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/metrics"
)

// ServiceParams groups the ledger components behind the gateway facade.
type ServiceParams struct {
	Entitlement *entitlement.Service
	Quota       *quota.Service
	Payments    *payments.Service
	Referrals   *referrals.Service
	Metrics     *metrics.LedgerMetrics
}

// Service is the surface the transport layer calls. It owns no state of its
// own; it sequences the ledger components.
type Service struct {
	entitlement *entitlement.Service
	quota       *quota.Service
	payments    *payments.Service
	referrals   *referrals.Service
	metrics     *metrics.LedgerMetrics
}

// ConsumeResult is returned to the transport before it performs the metered
// action.
type ConsumeResult struct {
	Allowed         bool `json:"allowed"`
	RemainingTexts  int  `json:"remaining_texts"`
	RemainingPhotos int  `json:"remaining_photos"`
}

// Status is the read-only display view of a user's entitlement.
type Status struct {
	IsPremium    bool  `json:"is_premium"`
	PremiumUntil int64 `json:"premium_until"`
	ReferralSeed int64 `json:"referral_seed"`
}

// IngestResult reports the entitlement after a payment notification.
type IngestResult struct {
	PremiumUntil int64 `json:"premium_until"`
	Duplicate    bool  `json:"duplicate"`
}

// NewService builds the gateway facade.
func NewService(params ServiceParams) (*Service, error) {
	if params.Entitlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlement service required")
	}
	if params.Quota == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quota service required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments service required")
	}
	if params.Referrals == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "referrals service required")
	}
	return &Service{
		entitlement: params.Entitlement,
		quota:       params.Quota,
		payments:    params.Payments,
		referrals:   params.Referrals,
		metrics:     params.Metrics,
	}, nil
}

// EnsureContact registers the user on first contact and opportunistically
// applies the referral code. Called once per new conversation.
func (s *Service) EnsureContact(ctx context.Context, userID int64, referrerCode string) error {
	if err := s.entitlement.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if referrerCode == "" {
		return nil
	}
	return s.referrals.Attribute(ctx, userID, referrerCode)
}

// Consume decides whether the metered action may proceed, taking a quota slot
// when the user is not premium.
func (s *Service) Consume(ctx context.Context, userID int64, kind quota.Kind) (ConsumeResult, error) {
	decision, err := s.quota.CheckAndConsume(ctx, userID, kind)
	if err != nil {
		return ConsumeResult{}, err
	}
	if decision.Allowed {
		s.metrics.IncConsumeAllowed(string(kind))
	} else {
		s.metrics.IncConsumeDenied(string(kind))
	}
	return ConsumeResult{
		Allowed:         decision.Allowed,
		RemainingTexts:  decision.RemainingTexts,
		RemainingPhotos: decision.RemainingPhotos,
	}, nil
}

// IngestPayment reconciles a completed charge exactly once.
func (s *Service) IngestPayment(ctx context.Context, invoiceID string, userID int64, amount int64, days int) (IngestResult, error) {
	result, err := s.payments.ProcessPayment(ctx, invoiceID, userID, amount, days)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{PremiumUntil: result.PremiumUntil, Duplicate: result.Duplicate}, nil
}

// Status returns the read-only entitlement view. The referral seed is the
// user's own id; the transport renders the invite link from it.
func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	if userID == 0 {
		return Status{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	until, _, err := s.entitlement.Entitlement(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	premium, err := s.entitlement.IsPremium(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		IsPremium:    premium,
		PremiumUntil: until,
		ReferralSeed: userID,
	}, nil
}
