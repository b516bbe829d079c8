// Package domain defines the persistence models for products, users, reviews,
// and API tokens. These types are mapped with GORM and form the core data
// layer of the reviews backend.
package domain

import "time"

// Review status values. New reviews default to StatusApproved; moderation may
// move a review to any of the other states afterwards.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
	StatusSpam     = "spam"
)

// ValidStatus reports whether s is one of the known review statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusApproved, StatusPending, StatusRejected, StatusSpam:
		return true
	}
	return false
}

// Product represents an externally identified product that reviews reference.
// Products are created lazily on the first review that mentions them and are
// never deleted by this service.
//
// Fields:
//   - ProductID: caller-supplied external identifier, sole unique key.
//   - Name: display name; defaults to the external id until real metadata
//     is supplied out of band.
type Product struct {
	ProductID string    `json:"product_id" gorm:"type:varchar(128);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// User represents a review author. Users are created lazily on their first
// review. APITokenID records which API token first introduced the user; it is
// provenance only, not ownership.
type User struct {
	ID         string    `json:"id"                      gorm:"type:varchar(128);primaryKey"`
	APITokenID *string   `json:"api_token_id,omitempty"  gorm:"type:char(36)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Review represents a single product review. A user may review a product at
// most once; the (product_id, user_id) pair is enforced unique by the database
// so that concurrent submissions are serialized by the store, not the service.
//
// Reviews are immutable after creation except for Status and ModerationNote.
//
// Fields:
//   - ID: server-generated UUID primary key (char(36)).
//   - ProductID / UserID: foreign keys, unique as a pair.
//   - Rating: integer 1–5 (DB check constraint).
//   - Comment: optional free text, at most 2000 characters.
//   - Status: moderation state (approved|pending|rejected|spam).
//   - ModerationNote: optional note set alongside a status change.
type Review struct {
	ID             string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ProductID      string    `json:"product_id" gorm:"type:varchar(128);not null;index;uniqueIndex:ux_review_product_user,priority:1"`
	UserID         string    `json:"user_id"    gorm:"type:varchar(128);not null;index;uniqueIndex:ux_review_product_user,priority:2"`
	Rating         int       `json:"rating"     gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment        string    `json:"comment,omitempty" gorm:"type:varchar(2000)"`
	Status         string    `json:"status"     gorm:"type:varchar(16);not null;default:'approved';check:status IN ('approved','pending','rejected','spam')"`
	ModerationNote string    `json:"moderation_note,omitempty" gorm:"type:varchar(2000)"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"-"`

	// Product and User are FK associations; reviews are cascade-deleted if
	// the referenced product or user row is removed.
	Product Product `json:"-" gorm:"belongsTo;foreignKey:ProductID;references:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User    User    `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// APIToken is an opaque bearer credential. The token value is the sole lookup
// key; tokens never expire and revocation is deletion.
type APIToken struct {
	ID        string    `json:"-"     gorm:"type:char(36);primaryKey"`
	Token     string    `json:"token" gorm:"type:varchar(128);not null;uniqueIndex:ux_api_tokens_token"`
	Name      string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for APIToken.
func (APIToken) TableName() string { return "api_tokens" }
