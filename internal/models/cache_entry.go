package models

import "time"

// CacheEntry backs the database-resident volatile cache tier used when Redis
// is disabled or unreachable. Entries are disposable; dropping the table
// loses nothing but freshness.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
