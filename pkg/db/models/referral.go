package models

// Referral records a one-time inviter to invitee attribution. Rows exist
// independently of whether any payment has happened yet.
type Referral struct {
	ReferrerID int64 `gorm:"column:referrer_id;not null;uniqueIndex:ux_referrals_pair"`
	InvitedID  int64 `gorm:"column:invited_id;not null;uniqueIndex:ux_referrals_pair"`
}

func (Referral) TableName() string {
	return "referrals"
}
