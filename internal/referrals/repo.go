package referrals

import (
	"context"

	"gorm.io/gorm"

	"github.com/ykarpenko/solvebot-backend/pkg/db"
	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
)

// Repository manages persistence for referral attribution rows. Rows are
// write-once; the (referrer, invited) pair is unique.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, referrerID, invitedID int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create records the pair, treating a replayed insert as a no-op.
func (r *repository) Create(ctx context.Context, referrerID, invitedID int64) error {
	err := r.db.WithContext(ctx).Create(&models.Referral{
		ReferrerID: referrerID,
		InvitedID:  invitedID,
	}).Error
	if db.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}
