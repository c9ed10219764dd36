package models

// UsageCounter is one row per (day, user) pair. Day is a UTC YYYYMMDD key; a
// new day simply addresses a row that does not exist yet, which reads as zero.
// Counts only move through the conditional-increment statement in the quota
// repository, so they never exceed the configured ceiling.
type UsageCounter struct {
	Day        string `gorm:"column:day;primaryKey"`
	UserID     int64  `gorm:"column:user_id;primaryKey"`
	TextCount  int    `gorm:"column:text_count;not null;default:0"`
	PhotoCount int    `gorm:"column:photo_count;not null;default:0"`
}

func (UsageCounter) TableName() string {
	return "usage"
}
