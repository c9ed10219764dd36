package payments

import (
	"context"

	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for payment rows. Rows are write-once; the
// invoice id primary key is the idempotency boundary for the whole processor.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, payment *models.Payment) (bool, error)
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent inserts the payment row, treating an existing invoice id as
// a silent no-op. The insert itself is the duplicate check: RowsAffected==0
// means another delivery already claimed the invoice id, even when the two
// deliveries run concurrently.
func (r *repository) InsertIfAbsent(ctx context.Context, payment *models.Payment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(payment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountForUser returns how many payments the user has on record.
func (r *repository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
