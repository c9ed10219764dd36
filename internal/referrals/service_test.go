package referrals

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/internal/entitlement"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
)

type stubReferralRepo struct {
	pairs [][2]int64
}

func (s *stubReferralRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubReferralRepo) Create(ctx context.Context, referrerID, invitedID int64) error {
	s.pairs = append(s.pairs, [2]int64{referrerID, invitedID})
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUsersRepo struct {
	referrers map[int64]int64
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{referrers: map[int64]int64{}}
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) entitlement.Repository { return s }

func (s *stubUsersRepo) EnsureUser(ctx context.Context, id int64) error { return nil }

func (s *stubUsersRepo) Find(ctx context.Context, id int64) (*models.User, error) {
	return nil, nil
}

func (s *stubUsersRepo) CreditPremium(ctx context.Context, id int64, nowUnix int64, deltaSeconds int64) (int64, error) {
	return nowUnix + deltaSeconds, nil
}

func (s *stubUsersRepo) AttributeReferrer(ctx context.Context, invitedID, referrerID int64) (bool, error) {
	if _, ok := s.referrers[invitedID]; ok || invitedID == referrerID {
		return false, nil
	}
	s.referrers[invitedID] = referrerID
	return true, nil
}

type stubEntitlementStore struct {
	referrers   map[int64]*int64
	until       map[int64]int64
	creditCalls []int64
	creditDays  []int
}

func newStubEntitlementStore() *stubEntitlementStore {
	return &stubEntitlementStore{
		referrers: map[int64]*int64{},
		until:     map[int64]int64{},
	}
}

func (s *stubEntitlementStore) CreditPremium(ctx context.Context, id int64, days int) (int64, error) {
	s.creditCalls = append(s.creditCalls, id)
	s.creditDays = append(s.creditDays, days)
	s.until[id] += int64(days) * 86400
	return s.until[id], nil
}

func (s *stubEntitlementStore) Entitlement(ctx context.Context, id int64) (int64, *int64, error) {
	return s.until[id], s.referrers[id], nil
}

type stubPaymentCounter struct {
	counts map[int64]int64
}

func (s *stubPaymentCounter) CountForUser(ctx context.Context, userID int64) (int64, error) {
	return s.counts[userID], nil
}

type stubNotifier struct {
	sent []string
	err  error
}

func (s *stubNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func newReferralTestService(t *testing.T, store *stubEntitlementStore, counter *stubPaymentCounter, notifier *stubNotifier, cfg config.ReferralConfig) (*Service, *stubReferralRepo) {
	t.Helper()
	repo := &stubReferralRepo{}
	params := ServiceParams{
		Repo:        repo,
		Users:       newStubUsersRepo(),
		Tx:          stubTxRunner{},
		Entitlement: store,
		Payments:    counter,
		Config:      cfg,
	}
	if notifier != nil {
		params.Notifier = notifier
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc, repo
}

func TestParseCode(t *testing.T) {
	cases := []struct {
		code string
		want int64
	}{
		{"ref_12345", 12345},
		{"12345", 12345},
		{" ref_7 ", 7},
		{"ref_", 0},
		{"", 0},
		{"ref_abc", 0},
		{"ref_-5", 0},
		{"ref_0", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseCode(tc.code), "code %q", tc.code)
	}
}

func TestAttributeRecordsPair(t *testing.T) {
	store := newStubEntitlementStore()
	svc, repo := newReferralTestService(t, store, &stubPaymentCounter{}, nil, config.ReferralConfig{BonusDays: 2})

	require.NoError(t, svc.Attribute(context.Background(), 20, "ref_10"))
	assert.Equal(t, [][2]int64{{10, 20}}, repo.pairs)
}

func TestAttributeIgnoresInvalidAndSelfCodes(t *testing.T) {
	store := newStubEntitlementStore()
	svc, repo := newReferralTestService(t, store, &stubPaymentCounter{}, nil, config.ReferralConfig{BonusDays: 2})
	ctx := context.Background()

	require.NoError(t, svc.Attribute(ctx, 20, "garbage"))
	require.NoError(t, svc.Attribute(ctx, 20, "ref_20"))
	assert.Empty(t, repo.pairs)
}

func TestAttributeSecondReferrerLoses(t *testing.T) {
	store := newStubEntitlementStore()
	svc, repo := newReferralTestService(t, store, &stubPaymentCounter{}, nil, config.ReferralConfig{BonusDays: 2})
	ctx := context.Background()

	require.NoError(t, svc.Attribute(ctx, 20, "ref_10"))
	require.NoError(t, svc.Attribute(ctx, 20, "ref_11"))

	require.Len(t, repo.pairs, 1)
	assert.Equal(t, [2]int64{10, 20}, repo.pairs[0])
}

func TestOnPurchaseCreditsReferrerAndNotifies(t *testing.T) {
	store := newStubEntitlementStore()
	ref := int64(10)
	store.referrers[20] = &ref
	notifier := &stubNotifier{}
	svc, _ := newReferralTestService(t, store, &stubPaymentCounter{}, notifier,
		config.ReferralConfig{BonusDays: 2, BonusEveryPurchase: true})

	svc.OnPurchase(context.Background(), 20)

	require.Equal(t, []int64{10}, store.creditCalls)
	assert.Equal(t, []int{2}, store.creditDays)
	assert.Len(t, notifier.sent, 1)
}

func TestOnPurchaseWithoutReferrerIsNoOp(t *testing.T) {
	store := newStubEntitlementStore()
	svc, _ := newReferralTestService(t, store, &stubPaymentCounter{}, nil,
		config.ReferralConfig{BonusDays: 2, BonusEveryPurchase: true})

	svc.OnPurchase(context.Background(), 20)
	assert.Empty(t, store.creditCalls)
}

func TestOnPurchaseFirstPurchaseOnlyPolicy(t *testing.T) {
	store := newStubEntitlementStore()
	ref := int64(10)
	store.referrers[20] = &ref
	counter := &stubPaymentCounter{counts: map[int64]int64{20: 1}}
	svc, _ := newReferralTestService(t, store, counter, nil,
		config.ReferralConfig{BonusDays: 2, BonusEveryPurchase: false})
	ctx := context.Background()

	// One payment on record: this is the first purchase, bonus applies.
	svc.OnPurchase(ctx, 20)
	require.Len(t, store.creditCalls, 1)

	// A later purchase no longer qualifies.
	counter.counts[20] = 2
	svc.OnPurchase(ctx, 20)
	assert.Len(t, store.creditCalls, 1)
}

func TestOnPurchaseNotifyFailureIsSwallowed(t *testing.T) {
	store := newStubEntitlementStore()
	ref := int64(10)
	store.referrers[20] = &ref
	notifier := &stubNotifier{err: errors.New("blocked by user")}
	svc, _ := newReferralTestService(t, store, &stubPaymentCounter{}, notifier,
		config.ReferralConfig{BonusDays: 2, BonusEveryPurchase: true})

	// The bonus credit stands even when the notification cannot be delivered.
	svc.OnPurchase(context.Background(), 20)
	assert.Equal(t, []int64{10}, store.creditCalls)
}
