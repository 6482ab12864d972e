package books

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:books_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Book{}); err != nil {
		t.Fatalf("migrate books: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	// One connection keeps the shared in-memory DB alive and serializes
	// writers the way a row lock would.
	sqlDB.SetMaxOpenConns(1)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func mustCreateTestBook(t *testing.T, db *gorm.DB, mutate func(*models.Book)) *models.Book {
	t.Helper()
	now := time.Now().UTC()
	book := &models.Book{
		ID:          uuid.New(),
		Title:       "The Fellowship of the Ring",
		Author:      "J.R.R. Tolkien",
		PublishYear: 1954,
		ISBN:        fmt.Sprintf("isbn-%s", uuid.NewString()),
		Status:      enums.BookStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(book)
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

func stringPtr(s string) *string { return &s }

func float64Ptr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func statusPtr(s enums.BookStatus) *enums.BookStatus { return &s }
