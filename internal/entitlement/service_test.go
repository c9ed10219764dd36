package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/pkg/clock"
	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
)

type stubEntitlementRepo struct {
	users map[int64]*models.User

	creditedID    int64
	creditedNow   int64
	creditedDelta int64
	creditResult  int64
}

func newStubEntitlementRepo() *stubEntitlementRepo {
	return &stubEntitlementRepo{users: map[int64]*models.User{}}
}

func (s *stubEntitlementRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubEntitlementRepo) EnsureUser(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		s.users[id] = &models.User{ID: id}
	}
	return nil
}

func (s *stubEntitlementRepo) Find(ctx context.Context, id int64) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubEntitlementRepo) CreditPremium(ctx context.Context, id, nowUnix, deltaSeconds int64) (int64, error) {
	s.creditedID = id
	s.creditedNow = nowUnix
	s.creditedDelta = deltaSeconds
	return s.creditResult, nil
}

func (s *stubEntitlementRepo) AttributeReferrer(ctx context.Context, invitedID, referrerID int64) (bool, error) {
	user, ok := s.users[invitedID]
	if !ok || user.ReferrerID != nil {
		return false, nil
	}
	user.ReferrerID = &referrerID
	return true, nil
}

func newTestService(t *testing.T, repo Repository, clk clock.Clock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Clock: clk})
	require.NoError(t, err)
	return svc
}

func TestIsPremiumExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newStubEntitlementRepo()
	svc := newTestService(t, repo, clock.NewFixed(now))
	ctx := context.Background()

	repo.users[1] = &models.User{ID: 1, PremiumUntil: now.Unix()}

	// An entitlement expiring exactly now is no longer premium.
	premium, err := svc.IsPremium(ctx, 1)
	require.NoError(t, err)
	assert.False(t, premium)

	repo.users[1].PremiumUntil = now.Unix() + 1
	premium, err = svc.IsPremium(ctx, 1)
	require.NoError(t, err)
	assert.True(t, premium)
}

func TestIsPremiumUnknownUser(t *testing.T) {
	svc := newTestService(t, newStubEntitlementRepo(), clock.NewFixed(time.Now()))

	premium, err := svc.IsPremium(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, premium)
}

func TestCreditPremiumConvertsDaysToSeconds(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := newStubEntitlementRepo()
	repo.creditResult = now.Unix() + 7*86400
	svc := newTestService(t, repo, clock.NewFixed(now))

	until, err := svc.CreditPremium(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.Equal(t, repo.creditResult, until)
	assert.Equal(t, int64(5), repo.creditedID)
	assert.Equal(t, now.Unix(), repo.creditedNow)
	assert.Equal(t, int64(7*86400), repo.creditedDelta)
}

func TestCreditPremiumRejectsBadInput(t *testing.T) {
	svc := newTestService(t, newStubEntitlementRepo(), clock.NewFixed(time.Now()))
	ctx := context.Background()

	_, err := svc.CreditPremium(ctx, 0, 1)
	assert.Error(t, err)

	_, err = svc.CreditPremium(ctx, 1, -1)
	assert.Error(t, err)
}

func TestEntitlementDefaultsForUnknownUser(t *testing.T) {
	svc := newTestService(t, newStubEntitlementRepo(), clock.NewFixed(time.Now()))

	until, referrer, err := svc.Entitlement(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(0), until)
	assert.Nil(t, referrer)
}
