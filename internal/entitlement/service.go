package entitlement

import (
	"context"

	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/pkg/clock"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
)

const secondsPerDay = 86400

// ServiceParams groups dependencies for the entitlement service.
type ServiceParams struct {
	Repo  Repository
	Clock clock.Clock
}

// Service owns User rows and arbitrates every entitlement read and mutation.
type Service struct {
	repo  Repository
	clock clock.Clock
}

// NewService builds an entitlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlement repository required")
	}
	if params.Clock == nil {
		params.Clock = clock.System()
	}
	return &Service{repo: params.Repo, clock: params.Clock}, nil
}

// EnsureUser lazily creates the user row. Called on every contact event.
func (s *Service) EnsureUser(ctx context.Context, id int64) error {
	if id == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.EnsureUser(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure user")
	}
	return nil
}

// Entitlement returns (premiumUntil, referrerID) with zero defaults for
// unknown users. Read-only callers must not create rows.
func (s *Service) Entitlement(ctx context.Context, id int64) (int64, *int64, error) {
	user, err := s.repo.Find(ctx, id)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read entitlement")
	}
	if user == nil {
		return 0, nil, nil
	}
	return user.PremiumUntil, user.ReferrerID, nil
}

// IsPremium reports whether the entitlement window covers the current moment.
func (s *Service) IsPremium(ctx context.Context, id int64) (bool, error) {
	until, _, err := s.Entitlement(ctx, id)
	if err != nil {
		return false, err
	}
	return until > s.clock.Now().Unix(), nil
}

// CreditPremium extends the user's window by the given number of days.
// Extensions stack: an active window extends from its existing expiry, an
// expired one from now. Returns the new expiry as a unix timestamp.
func (s *Service) CreditPremium(ctx context.Context, id int64, days int) (int64, error) {
	return s.CreditPremiumTx(ctx, nil, id, days)
}

// CreditPremiumTx is CreditPremium bound to the caller's transaction, so the
// credit commits or rolls back together with the caller's other writes. A nil
// tx runs against the shared connection.
func (s *Service) CreditPremiumTx(ctx context.Context, tx *gorm.DB, id int64, days int) (int64, error) {
	if id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if days < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "days must be non-negative")
	}

	newUntil, err := s.repo.WithTx(tx).CreditPremium(ctx, id, s.clock.Now().Unix(), int64(days)*secondsPerDay)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit premium")
	}
	return newUntil, nil
}
