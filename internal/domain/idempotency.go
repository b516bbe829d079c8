// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// IdempotencyRecord captures the outcome of a previously processed review
// submission, keyed by (api_token_id, key). It enables safe client-driven
// retries of POST /reviews: a replayed key returns the originally created
// review without re-executing side effects.
type IdempotencyRecord struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	APITokenID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_token_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_token_key,priority:2"`
	ReviewID   string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency" }
