package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupQuotaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usage := `
CREATE TABLE IF NOT EXISTS usage (
  day TEXT NOT NULL,
  user_id INTEGER NOT NULL,
  text_count INTEGER NOT NULL DEFAULT 0,
  photo_count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (day, user_id)
);`
	require.NoError(t, db.Exec(usage).Error)
	return db
}

func TestConsumeIfBelowStopsAtLimit(t *testing.T) {
	db := setupQuotaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.ConsumeIfBelow(ctx, "20250601", 301, KindText, 3)
		require.NoError(t, err)
		assert.True(t, allowed, "consume %d should be admitted", i+1)
	}

	allowed, err := repo.ConsumeIfBelow(ctx, "20250601", 301, KindText, 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	counter, err := repo.Find(ctx, "20250601", 301)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, 3, counter.TextCount)
}

func TestConsumeIfBelowKindsAreIndependent(t *testing.T) {
	db := setupQuotaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	allowed, err := repo.ConsumeIfBelow(ctx, "20250601", 302, KindText, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = repo.ConsumeIfBelow(ctx, "20250601", 302, KindText, 1)
	require.NoError(t, err)
	require.False(t, allowed)

	// The text ceiling does not block photos.
	allowed, err = repo.ConsumeIfBelow(ctx, "20250601", 302, KindPhoto, 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	counter, err := repo.Find(ctx, "20250601", 302)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, 1, counter.TextCount)
	assert.Equal(t, 1, counter.PhotoCount)
}

func TestConsumeIfBelowNewDayStartsFresh(t *testing.T) {
	db := setupQuotaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	allowed, err := repo.ConsumeIfBelow(ctx, "20250601", 303, KindText, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = repo.ConsumeIfBelow(ctx, "20250601", 303, KindText, 1)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = repo.ConsumeIfBelow(ctx, "20250602", 303, KindText, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestConsumeIfBelowAdmitsExactlyLimitUnderConcurrency(t *testing.T) {
	db := setupQuotaTestDB(t)

	// A single connection keeps the sqlite driver from reporting busy errors;
	// the guarded UPDATE itself is what serializes the admissions.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	ctx := context.Background()

	const (
		attempts = 15
		limit    = 10
	)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := repo.ConsumeIfBelow(ctx, "20250610", 305, KindText, limit)
			if err != nil {
				errs <- err
				return
			}
			if allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, limit, admitted)

	counter, err := repo.Find(ctx, "20250610", 305)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, limit, counter.TextCount)
}

func TestFindMissingCounterReturnsNil(t *testing.T) {
	db := setupQuotaTestDB(t)
	repo := NewRepository(db)

	counter, err := repo.Find(context.Background(), "19990101", 77777)
	require.NoError(t, err)
	assert.Nil(t, counter)
}

func TestDeleteBeforePrunesOldDays(t *testing.T) {
	db := setupQuotaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, day := range []string{"20250101", "20250301", "20250601"} {
		allowed, err := repo.ConsumeIfBelow(ctx, day, 304, KindText, 10)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	deleted, err := repo.DeleteBefore(ctx, "20250401")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	counter, err := repo.Find(ctx, "20250601", 304)
	require.NoError(t, err)
	assert.NotNil(t, counter)

	counter, err = repo.Find(ctx, "20250101", 304)
	require.NoError(t, err)
	assert.Nil(t, counter)
}
