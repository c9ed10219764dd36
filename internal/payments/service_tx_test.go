package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func TestProcessPaymentReleasesClaimWhenCreditFails(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	failing := &stubCrediter{err: errors.New("credit store offline")}
	svc, err := NewService(ServiceParams{Repo: repo, Tx: sqliteTxRunner{db: db}, Entitlement: failing})
	require.NoError(t, err)

	_, err = svc.ProcessPayment(ctx, "tg-504", 504, 299, 7)
	require.Error(t, err)

	// The failed credit rolled the invoice claim back, so the redelivery is
	// not a duplicate and the purchase completes.
	crediter := &stubCrediter{}
	svc, err = NewService(ServiceParams{Repo: repo, Tx: sqliteTxRunner{db: db}, Entitlement: crediter})
	require.NoError(t, err)

	result, err := svc.ProcessPayment(ctx, "tg-504", 504, 299, 7)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, 1, crediter.creditCalls)
}
