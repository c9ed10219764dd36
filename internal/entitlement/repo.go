package entitlement

import (
	"context"

	"github.com/ykarpenko/solvebot-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for user entitlement rows.
//
// Every mutation is a single conditional SQL statement so that concurrent
// operations on the same user id serialize inside the store instead of racing
// through an application-level read-modify-write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureUser(ctx context.Context, id int64) error
	Find(ctx context.Context, id int64) (*models.User, error)
	CreditPremium(ctx context.Context, id int64, nowUnix int64, deltaSeconds int64) (int64, error)
	AttributeReferrer(ctx context.Context, invitedID, referrerID int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an entitlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureUser inserts a zero-entitlement row if absent. Safe to call on every
// contact event; an existing row is left untouched.
func (r *repository) EnsureUser(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO users (id, premium_until) VALUES (?, 0) ON CONFLICT (id) DO NOTHING`,
		id,
	).Error
}

// Find returns the user row, or nil when the user is unknown. Read-only:
// unknown users are not created here.
func (r *repository) Find(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreditPremium extends the entitlement window by deltaSeconds from
// max(premium_until, now) in one statement, creating the row first when
// missing. Returns the new expiry. The CASE expression keeps the statement
// portable between Postgres and the sqlite test driver.
func (r *repository) CreditPremium(ctx context.Context, id int64, nowUnix int64, deltaSeconds int64) (int64, error) {
	if err := r.EnsureUser(ctx, id); err != nil {
		return 0, err
	}

	var newUntil int64
	err := r.db.WithContext(ctx).Raw(
		`UPDATE users
		 SET premium_until = (CASE WHEN premium_until > ? THEN premium_until ELSE ? END) + ?
		 WHERE id = ?
		 RETURNING premium_until`,
		nowUnix, nowUnix, deltaSeconds, id,
	).Scan(&newUntil).Error
	if err != nil {
		return 0, err
	}
	return newUntil, nil
}

// AttributeReferrer assigns the referrer only when the invited user exists,
// has no referrer yet, and is not referring themselves. The WHERE clause is
// the whole first-write-wins rule; RowsAffected reports whether this call won.
func (r *repository) AttributeReferrer(ctx context.Context, invitedID, referrerID int64) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET referrer_id = ? WHERE id = ? AND referrer_id IS NULL AND id <> ?`,
		referrerID, invitedID, referrerID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
