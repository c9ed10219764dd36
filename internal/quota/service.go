package quota

import (
	"context"

	"github.com/ykarpenko/solvebot-backend/pkg/clock"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
)

// PremiumChecker reports whether a user currently holds an entitlement.
type PremiumChecker interface {
	IsPremium(ctx context.Context, id int64) (bool, error)
}

// ServiceParams groups dependencies for the quota service.
type ServiceParams struct {
	Repo        Repository
	Entitlement PremiumChecker
	Clock       clock.Clock
	Limits      config.QuotaConfig
}

// Service decides, per user and per day, whether a free request may proceed.
type Service struct {
	repo        Repository
	entitlement PremiumChecker
	clock       clock.Clock
	limits      config.QuotaConfig
}

// Decision is the outcome of a consume attempt plus the remaining allowance.
// Premium users are always allowed and report the full allowance; their
// counters are never incremented.
type Decision struct {
	Allowed         bool
	RemainingTexts  int
	RemainingPhotos int
}

// NewService builds a quota service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quota repository required")
	}
	if params.Entitlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlement checker required")
	}
	if params.Clock == nil {
		params.Clock = clock.System()
	}
	return &Service{
		repo:        params.Repo,
		entitlement: params.Entitlement,
		clock:       params.Clock,
		limits:      params.Limits,
	}, nil
}

func (s *Service) limit(kind Kind) int {
	if kind == KindPhoto {
		return s.limits.FreePhotosPerDay
	}
	return s.limits.FreeTextsPerDay
}

// Remaining reports today's remaining allowance for both kinds without any
// mutation. Premium users always see the full allowance.
func (s *Service) Remaining(ctx context.Context, userID int64) (texts int, photos int, err error) {
	premium, err := s.entitlement.IsPremium(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if premium {
		return s.limits.FreeTextsPerDay, s.limits.FreePhotosPerDay, nil
	}

	day := s.clock.DayKey()
	return s.remainingForDay(ctx, day, userID)
}

func (s *Service) remainingForDay(ctx context.Context, day string, userID int64) (int, int, error) {
	counter, err := s.repo.Find(ctx, day, userID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read usage counter")
	}
	usedTexts, usedPhotos := 0, 0
	if counter != nil {
		usedTexts, usedPhotos = counter.TextCount, counter.PhotoCount
	}
	return clampZero(s.limits.FreeTextsPerDay - usedTexts), clampZero(s.limits.FreePhotosPerDay - usedPhotos), nil
}

// CheckAndConsume admits the request when the user is premium or when today's
// counter for the kind is still below the daily limit, taking the slot
// atomically in the latter case. The day key is computed once and used for
// both the consume and the remaining figures.
func (s *Service) CheckAndConsume(ctx context.Context, userID int64, kind Kind) (Decision, error) {
	if userID == 0 {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !kind.Valid() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown request kind")
	}

	premium, err := s.entitlement.IsPremium(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if premium {
		return Decision{
			Allowed:         true,
			RemainingTexts:  s.limits.FreeTextsPerDay,
			RemainingPhotos: s.limits.FreePhotosPerDay,
		}, nil
	}

	day := s.clock.DayKey()
	allowed, err := s.repo.ConsumeIfBelow(ctx, day, userID, kind, s.limit(kind))
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume quota")
	}

	texts, photos, err := s.remainingForDay(ctx, day, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: allowed, RemainingTexts: texts, RemainingPhotos: photos}, nil
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
