package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

func TestTokenRepo_CreateGetDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := CreateToken(ctx, db, "opaque-value-1", "ci pipeline")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if created.ID == "" || created.Token != "opaque-value-1" || created.Name != "ci pipeline" {
		t.Fatalf("unexpected token: %+v", created)
	}
	if created.CreatedAt.IsZero() || time.Since(created.CreatedAt) > time.Minute {
		t.Fatalf("unexpected CreatedAt: %v", created.CreatedAt)
	}

	got, err := GetToken(ctx, db, "opaque-value-1")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("lookup mismatch: %q vs %q", got.ID, created.ID)
	}

	if _, err := GetToken(ctx, db, "unknown"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for unknown token, got %v", err)
	}

	found, err := DeleteToken(ctx, db, "opaque-value-1")
	if err != nil || !found {
		t.Fatalf("DeleteToken: found=%v err=%v", found, err)
	}
	found, err = DeleteToken(ctx, db, "opaque-value-1")
	if err != nil || found {
		t.Fatalf("second DeleteToken: found=%v err=%v", found, err)
	}
}

func TestTokenRepo_ValueIsUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateToken(ctx, db, "dup-value", ""); err != nil {
		t.Fatalf("first CreateToken: %v", err)
	}
	_, err := CreateToken(ctx, db, "dup-value", "")
	if err == nil {
		t.Fatalf("expected unique violation for duplicate token value")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestIdempotency_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "tok-1", "key-1", "rev-1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ReviewID != "rev-1" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "tok-1", "key-1", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("lookup mismatch")
	}

	// Different token, same key: no hit.
	if _, err := GetIdempotency(ctx, db, "tok-2", "key-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other token, got %v", err)
	}

	// Empty key never matches.
	if _, err := GetIdempotency(ctx, db, "tok-1", "  ", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank key, got %v", err)
	}

	// Expired records are invisible.
	if _, err := GetIdempotency(ctx, db, "tok-1", "key-1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	// Replay of the same (token, key) insert is a typed duplicate.
	if _, err := CreateIdempotency(ctx, db, "tok-1", "key-1", "rev-2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestReviewsStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, maxTS, err := ReviewsStats(ctx, db, "sku-none")
	if err != nil {
		t.Fatalf("stats empty: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected zero stats, got count=%d maxTS=%v", count, maxTS)
	}

	seedProductUser(t, db, "sku-stat", "u1", "u2")
	now := time.Now().UTC()
	seedReviewAt(t, db, "sku-stat", "u1", 5, domain.StatusApproved, now.Add(-time.Hour))
	seedReviewAt(t, db, "sku-stat", "u2", 3, domain.StatusPending, now)

	count, maxTS, err = ReviewsStats(ctx, db, "sku-stat")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxTS == nil || maxTS.IsZero() {
		t.Fatalf("expected max updated_at, got %v", maxTS)
	}
}
