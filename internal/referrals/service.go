package referrals

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/internal/entitlement"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
	"github.com/ykarpenko/solvebot-backend/pkg/metrics"
	"github.com/ykarpenko/solvebot-backend/pkg/notify"
)

const codePrefix = "ref_"

// TxRunner executes fn within one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntitlementStore is the slice of the entitlement service the ledger uses.
type EntitlementStore interface {
	CreditPremium(ctx context.Context, id int64, days int) (int64, error)
	Entitlement(ctx context.Context, id int64) (int64, *int64, error)
}

// PaymentCounter reports how many payments a user has made. Used to restrict
// the bonus to first purchases when configured that way.
type PaymentCounter interface {
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

// ServiceParams groups dependencies for the referral ledger.
type ServiceParams struct {
	Repo        Repository
	Users       entitlement.Repository
	Tx          TxRunner
	Entitlement EntitlementStore
	Payments    PaymentCounter
	Notifier    notify.Notifier
	Config      config.ReferralConfig
	Logger      *logger.Logger
	Metrics     *metrics.LedgerMetrics
}

// Service attributes inviter/invitee pairs once and grants bonus days when an
// invitee purchases.
type Service struct {
	repo        Repository
	users       entitlement.Repository
	tx          TxRunner
	entitlement EntitlementStore
	payments    PaymentCounter
	notifier    notify.Notifier
	cfg         config.ReferralConfig
	logg        *logger.Logger
	metrics     *metrics.LedgerMetrics
}

// NewService builds a referral ledger.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "referrals repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Entitlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlement service required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments counter required")
	}
	return &Service{
		repo:        params.Repo,
		users:       params.Users,
		tx:          params.Tx,
		entitlement: params.Entitlement,
		payments:    params.Payments,
		notifier:    params.Notifier,
		cfg:         params.Config,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// ParseCode extracts the referrer id from a start code such as "ref_12345".
// A bare numeric code is accepted too. Returns 0 when the code is not usable.
func ParseCode(code string) int64 {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, codePrefix)
	if code == "" {
		return 0
	}
	id, err := strconv.ParseInt(code, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// Attribute parses the referral code and records first-contact attribution.
// Invalid codes, self-references, and already-attributed invitees are
// silently ignored; attribution never blocks onboarding. Only a store
// failure is returned.
//
// The referrer assignment and the referral row commit in one transaction so
// an attributed user always has a matching ledger row.
func (s *Service) Attribute(ctx context.Context, invitedID int64, code string) error {
	referrerID := ParseCode(code)
	if referrerID == 0 || referrerID == invitedID {
		return nil
	}

	var attributed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		attributed, txErr = s.users.WithTx(tx).AttributeReferrer(ctx, invitedID, referrerID)
		if txErr != nil {
			return txErr
		}
		if !attributed {
			return nil
		}
		return s.repo.WithTx(tx).Create(ctx, referrerID, invitedID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attribute referral")
	}
	if attributed && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"invited_id": invitedID, "referrer_id": referrerID})
		s.logg.Info(logCtx, "referral attributed")
	}
	return nil
}

// OnPurchase grants the referrer the configured bonus days after the invitee's
// qualifying purchase and sends a best-effort notification. Errors are logged
// and swallowed: the invitee's payment credit is already committed and must
// not be disturbed by referral side effects.
func (s *Service) OnPurchase(ctx context.Context, userID int64) {
	_, referrerID, err := s.entitlement.Entitlement(ctx, userID)
	if err != nil {
		s.warn(ctx, "read referrer for purchase bonus", err)
		return
	}
	if referrerID == nil {
		return
	}

	if !s.cfg.BonusEveryPurchase {
		count, err := s.payments.CountForUser(ctx, userID)
		if err != nil {
			s.warn(ctx, "count payments for purchase bonus", err)
			return
		}
		// The qualifying payment is already on record, so the first
		// purchase reads as exactly one row.
		if count > 1 {
			return
		}
	}

	newUntil, err := s.entitlement.CreditPremium(ctx, *referrerID, s.cfg.BonusDays)
	if err != nil {
		s.warn(ctx, "credit referral bonus", err)
		return
	}
	s.metrics.IncReferralBonus()

	if s.notifier == nil {
		return
	}
	text := fmt.Sprintf("Your referral went premium! +%d days added, premium active until %s.",
		s.cfg.BonusDays, formatUntil(newUntil))
	if err := s.notifier.Notify(ctx, *referrerID, text); err != nil {
		s.warn(ctx, "notify referrer", err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithField(ctx, "error", err.Error())
	s.logg.Warn(logCtx, msg)
}
