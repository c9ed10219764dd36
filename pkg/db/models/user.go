package models

// User is one row per end-user. The id is the opaque numeric identity the
// messaging transport supplies; rows are created lazily on first contact and
// never deleted.
//
// PremiumUntil is a unix timestamp in seconds; zero means "never premium".
// ReferrerID is written at most once, by the attribution primitive.
type User struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	PremiumUntil int64  `gorm:"column:premium_until;not null;default:0"`
	ReferrerID   *int64 `gorm:"column:referrer_id"`
}

func (User) TableName() string {
	return "users"
}
