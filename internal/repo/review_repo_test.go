package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:reviewrepo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedProductUser(t *testing.T, db *gorm.DB, productID string, userIDs ...string) {
	t.Helper()
	if err := db.Create(&domain.Product{ProductID: productID, Name: productID}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for _, uid := range userIDs {
		if err := db.Create(&domain.User{ID: uid}).Error; err != nil {
			t.Fatalf("seed user %s: %v", uid, err)
		}
	}
}

func TestCreateReview_DuplicateIsTyped(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-1", "u1")
	ctx := context.Background()

	first, err := CreateReview(ctx, db, "sku-1", "u1", 5, "great")
	if err != nil {
		t.Fatalf("first CreateReview: %v", err)
	}
	if first.ID == "" || first.Status != domain.StatusApproved {
		t.Fatalf("unexpected review: %+v", first)
	}

	_, err = CreateReview(ctx, db, "sku-1", "u1", 3, "changed my mind")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Exactly one row persists.
	var n int64
	if err := db.Model(&domain.Review{}).Where("product_id = ? AND user_id = ?", "sku-1", "u1").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestCreateReview_SameUserDifferentProducts(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-a", "u1")
	seedProductUser(t, db, "sku-b")
	ctx := context.Background()

	if _, err := CreateReview(ctx, db, "sku-a", "u1", 4, ""); err != nil {
		t.Fatalf("review on sku-a: %v", err)
	}
	if _, err := CreateReview(ctx, db, "sku-b", "u1", 2, ""); err != nil {
		t.Fatalf("review on sku-b: %v", err)
	}
}

func seedReviewAt(t *testing.T, db *gorm.DB, productID, userID string, rating int, status string, at time.Time) string {
	t.Helper()
	r := &domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Status:    status,
		CreatedAt: at,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed review: %v", err)
	}
	// GORM refreshes CreatedAt on create; force the intended timestamp.
	if err := db.Model(&domain.Review{}).Where("id = ?", r.ID).Update("created_at", at).Error; err != nil {
		t.Fatalf("backdate review: %v", err)
	}
	return r.ID
}

func TestListReviewsPage_FiltersAndSort(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-f", "u1", "u2", "u3", "u4")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedReviewAt(t, db, "sku-f", "u1", 5, domain.StatusApproved, base)
	seedReviewAt(t, db, "sku-f", "u2", 3, domain.StatusPending, base.Add(24*time.Hour))
	seedReviewAt(t, db, "sku-f", "u3", 1, domain.StatusApproved, base.Add(48*time.Hour))
	seedReviewAt(t, db, "sku-f", "u4", 5, domain.StatusSpam, base.Add(72*time.Hour))

	// Rating set filter.
	got, err := ListReviewsPage(ctx, db, "sku-f", ReviewFilter{Ratings: []int{5}}, "created_at DESC, id DESC", 0, 50)
	if err != nil {
		t.Fatalf("list by rating: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rating filter: expected 2 rows, got %d", len(got))
	}

	// Status filter.
	got, err = ListReviewsPage(ctx, db, "sku-f", ReviewFilter{Status: domain.StatusPending}, "created_at DESC, id DESC", 0, 50)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u2" {
		t.Fatalf("status filter: got %+v", got)
	}

	// Inclusive date window picks the middle two.
	from := base.Add(24 * time.Hour)
	to := base.Add(48 * time.Hour)
	got, err = ListReviewsPage(ctx, db, "sku-f", ReviewFilter{DateFrom: &from, DateTo: &to}, "created_at ASC, id ASC", 0, 50)
	if err != nil {
		t.Fatalf("list by dates: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "u2" || got[1].UserID != "u3" {
		t.Fatalf("date filter: got %+v", got)
	}

	// Sort by rating ascending.
	got, err = ListReviewsPage(ctx, db, "sku-f", ReviewFilter{}, "rating ASC, id ASC", 0, 50)
	if err != nil {
		t.Fatalf("list by rating sort: %v", err)
	}
	if len(got) != 4 || got[0].Rating != 1 || got[3].Rating != 5 {
		t.Fatalf("rating sort: got %+v", got)
	}

	// Offset/limit pagination.
	got, err = ListReviewsPage(ctx, db, "sku-f", ReviewFilter{}, "created_at DESC, id DESC", 2, 2)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("page 2: expected 2 rows, got %d", len(got))
	}

	total, err := CountReviews(ctx, db, "sku-f", ReviewFilter{Ratings: []int{1, 5}})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("count with rating set: expected 3, got %d", total)
	}
}

func TestListAllReviews_IgnoresStatus(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-s", "u1", "u2")
	now := time.Now().UTC()
	seedReviewAt(t, db, "sku-s", "u1", 5, domain.StatusApproved, now)
	seedReviewAt(t, db, "sku-s", "u2", 2, domain.StatusSpam, now)

	all, err := ListAllReviews(context.Background(), db, "sku-s")
	if err != nil {
		t.Fatalf("ListAllReviews: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reviews (all statuses), got %d", len(all))
	}
}

func TestDeleteReview_FoundAndNotFound(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-d", "u1")
	id := seedReviewAt(t, db, "sku-d", "u1", 4, domain.StatusApproved, time.Now().UTC())
	ctx := context.Background()

	found, err := DeleteReview(ctx, db, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Fatalf("expected found=true on first delete")
	}

	found, err = DeleteReview(ctx, db, id)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if found {
		t.Fatalf("expected found=false on second delete")
	}
}

func TestUpdateReviewStatus(t *testing.T) {
	db := newTestDB(t)
	seedProductUser(t, db, "sku-m", "u1")
	id := seedReviewAt(t, db, "sku-m", "u1", 4, domain.StatusApproved, time.Now().UTC())
	ctx := context.Background()

	if err := UpdateReviewStatus(ctx, db, id, domain.StatusRejected, "tos violation"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := GetReview(ctx, db, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.StatusRejected || got.ModerationNote != "tos violation" {
		t.Fatalf("unexpected review after update: %+v", got)
	}
	// Rating untouched.
	if got.Rating != 4 {
		t.Fatalf("rating mutated: %d", got.Rating)
	}

	err = UpdateReviewStatus(ctx, db, "missing", domain.StatusSpam, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindOrCreateProduct_RaceBenign(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p1, err := FindOrCreateProduct(ctx, db, "sku-new")
	if err != nil {
		t.Fatalf("first find-or-create: %v", err)
	}
	if p1.Name != "sku-new" {
		t.Fatalf("placeholder name: got %q", p1.Name)
	}

	p2, err := FindOrCreateProduct(ctx, db, "sku-new")
	if err != nil {
		t.Fatalf("second find-or-create: %v", err)
	}
	if p2.ProductID != p1.ProductID {
		t.Fatalf("expected same product, got %q vs %q", p2.ProductID, p1.ProductID)
	}

	var n int64
	db.Model(&domain.Product{}).Where("product_id = ?", "sku-new").Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 product row, got %d", n)
	}
}

func TestFindOrCreateUser_TokenProvenance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := FindOrCreateUser(ctx, db, "u-new", "tok-id-1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.APITokenID == nil || *u.APITokenID != "tok-id-1" {
		t.Fatalf("expected token provenance recorded, got %+v", u)
	}

	// Provenance is never overwritten for an existing user.
	again, err := FindOrCreateUser(ctx, db, "u-new", "tok-id-2")
	if err != nil {
		t.Fatalf("refind user: %v", err)
	}
	if again.APITokenID == nil || *again.APITokenID != "tok-id-1" {
		t.Fatalf("provenance overwritten: %+v", again)
	}
}

func Test_isUniqueViolation(t *testing.T) {
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatalf("gorm.ErrDuplicatedKey not detected")
	}
	if !isUniqueViolation(errors.New("UNIQUE constraint failed: reviews.product_id, reviews.user_id")) {
		t.Fatalf("sqlite unique message not detected")
	}
	if !isUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_review_product_user"`)) {
		t.Fatalf("postgres duplicate message not detected")
	}
	if isUniqueViolation(errors.New("no such table: reviews")) {
		t.Fatalf("unrelated error misdetected")
	}
	if isUniqueViolation(nil) {
		t.Fatalf("nil misdetected")
	}
}
