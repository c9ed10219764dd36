package quota

import (
	"context"
	"fmt"

	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for daily usage counters. Every mutation is
// a single statement, so no transaction handle is exposed.
type Repository interface {
	Find(ctx context.Context, day string, userID int64) (*models.UsageCounter, error)
	ConsumeIfBelow(ctx context.Context, day string, userID int64, kind Kind, limit int) (bool, error)
	DeleteBefore(ctx context.Context, dayCutoff string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a quota repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Find returns the counter row for (day, user), or nil when no row exists yet.
// A missing row reads as zero usage; the first consume of a new day creates it.
func (r *repository) Find(ctx context.Context, day string, userID int64) (*models.UsageCounter, error) {
	var counter models.UsageCounter
	if err := r.db.WithContext(ctx).
		Where("day = ? AND user_id = ?", day, userID).
		First(&counter).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// ConsumeIfBelow increments the kind's counter only while it is below limit.
// The guarded UPDATE is the admission decision: RowsAffected==1 means a slot
// was taken, 0 means the ceiling was already reached. Two concurrent calls
// with one slot left cannot both win because the check and the increment are
// the same statement.
func (r *repository) ConsumeIfBelow(ctx context.Context, day string, userID int64, kind Kind, limit int) (bool, error) {
	if err := r.db.WithContext(ctx).Exec(
		`INSERT INTO usage (day, user_id, text_count, photo_count) VALUES (?, ?, 0, 0)
		 ON CONFLICT (day, user_id) DO NOTHING`,
		day, userID,
	).Error; err != nil {
		return false, err
	}

	column := kind.column()
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE usage SET %s = %s + 1 WHERE day = ? AND user_id = ? AND %s < ?`,
			column, column, column,
		),
		day, userID, limit,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteBefore removes counter rows with a day key strictly before the cutoff.
// Day keys are zero-padded YYYYMMDD strings, so lexicographic order is
// chronological order.
func (r *repository) DeleteBefore(ctx context.Context, dayCutoff string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("day < ?", dayCutoff).
		Delete(&models.UsageCounter{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
