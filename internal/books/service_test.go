package books

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, gormTxRunner{db: db}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func TestNewServiceRequiresDeps(t *testing.T) {
	t.Parallel()
	if _, err := NewService(nil, gormTxRunner{}, nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
	if _, err := NewService(&Repository{}, nil, nil); err == nil {
		t.Fatal("expected error for nil tx runner")
	}
}

func TestCreateBookDefaultsAndTimestamps(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.CreateBook(context.Background(), CreateBookInput{
		Title:       "  The Hobbit ",
		Author:      "J.R.R. Tolkien",
		PublishYear: 1937,
		ISBN:        "978-0-618-00221-4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.BookStatusAvailable {
		t.Fatalf("expected default status available, got %s", created.Status)
	}
	if created.Title != "The Hobbit" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at, got %v vs %v", created.CreatedAt, created.UpdatedAt)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected assigned id")
	}
}

func TestCreateBookExplicitStatus(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.CreateBook(context.Background(), CreateBookInput{
		Title:       "Worn Copy",
		Author:      "Anonymous",
		PublishYear: 1990,
		ISBN:        "isbn-worn-copy",
		Status:      statusPtr(enums.BookStatusDamaged),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.BookStatusDamaged {
		t.Fatalf("expected damaged, got %s", created.Status)
	}
}

func TestCreateBookMissingFields(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.CreateBook(context.Background(), CreateBookInput{Author: "  "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	fields, ok := details["fields"].([]string)
	if !ok || len(fields) != 4 {
		t.Fatalf("expected all four required fields reported, got %v", details["fields"])
	}
}

func TestCreateBookRejectsBadOptionalFields(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := CreateBookInput{Title: "T", Author: "A", PublishYear: 2000, ISBN: "isbn-opt"}

	bad := base
	bad.Description = stringPtr(strings.Repeat("x", 501))
	if typed := pkgerrors.As(mustFailCreate(t, svc, ctx, bad)); typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for long description, got %s", typed.Code())
	}

	bad = base
	bad.Price = float64Ptr(0)
	if typed := pkgerrors.As(mustFailCreate(t, svc, ctx, bad)); typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for non-positive price, got %s", typed.Code())
	}

	bad = base
	bad.Status = statusPtr(enums.BookStatus("lost"))
	if typed := pkgerrors.As(mustFailCreate(t, svc, ctx, bad)); typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for unknown status, got %s", typed.Code())
	}
}

// The description bound counts characters, not bytes. A 500-character
// multibyte description is well over 500 bytes and must still pass.
func TestCreateBookDescriptionLengthBoundary(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	ascii := CreateBookInput{Title: "T", Author: "A", PublishYear: 2000, ISBN: "isbn-desc-ascii"}
	ascii.Description = stringPtr(strings.Repeat("x", 500))
	if _, err := svc.CreateBook(ctx, ascii); err != nil {
		t.Fatalf("500-char ascii description rejected: %v", err)
	}

	multi := CreateBookInput{Title: "T", Author: "A", PublishYear: 2000, ISBN: "isbn-desc-multi"}
	multi.Description = stringPtr(strings.Repeat("é", 500))
	if _, err := svc.CreateBook(ctx, multi); err != nil {
		t.Fatalf("500-char multibyte description rejected: %v", err)
	}

	over := CreateBookInput{Title: "T", Author: "A", PublishYear: 2000, ISBN: "isbn-desc-over"}
	over.Description = stringPtr(strings.Repeat("é", 501))
	if typed := pkgerrors.As(mustFailCreate(t, svc, ctx, over)); typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for 501-char description, got %s", typed.Code())
	}
}

func mustFailCreate(t *testing.T, svc Service, ctx context.Context, input CreateBookInput) error {
	t.Helper()
	_, err := svc.CreateBook(ctx, input)
	if err == nil {
		t.Fatalf("expected create to fail for input %+v", input)
	}
	if pkgerrors.As(err) == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	return err
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateBook(ctx, CreateBookInput{
		Title:       "First",
		Author:      "Author",
		PublishYear: 2001,
		ISBN:        "isbn-dup",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.CreateBook(ctx, CreateBookInput{
		Title:       "Second",
		Author:      "Author",
		PublishYear: 2002,
		ISBN:        "isbn-dup",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if pkgerrors.Retryable(err) {
		t.Fatal("duplicate isbn must not be retryable")
	}

	kept, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	if kept.Title != "First" {
		t.Fatalf("first record mutated: %+v", kept)
	}
}

func TestGetBookNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.GetBook(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateBookMergePatch(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	seed := mustCreateTestBook(t, repo.db, func(b *models.Book) {
		b.Description = stringPtr("there and back again")
		b.Price = float64Ptr(12.50)
	})

	time.Sleep(5 * time.Millisecond)
	updated, err := svc.UpdateBook(ctx, seed.ID, UpdateBookInput{
		Title: stringPtr("  The Two Towers  "),
		Price: float64Ptr(14.00),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Title != "The Two Towers" {
		t.Fatalf("expected trimmed patched title, got %q", updated.Title)
	}
	if updated.Price == nil || *updated.Price != 14.00 {
		t.Fatalf("expected patched price, got %v", updated.Price)
	}
	// Untouched fields survive the patch.
	if updated.Author != seed.Author {
		t.Fatalf("author changed: %q", updated.Author)
	}
	if updated.Description == nil || *updated.Description != *seed.Description {
		t.Fatalf("description changed: %v", updated.Description)
	}
	if updated.ISBN != seed.ISBN {
		t.Fatalf("isbn changed: %q", updated.ISBN)
	}
	if !updated.UpdatedAt.After(seed.UpdatedAt) {
		t.Fatalf("expected updated_at to advance: %v vs %v", updated.UpdatedAt, seed.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(seed.CreatedAt) {
		t.Fatalf("created_at changed: %v vs %v", updated.CreatedAt, seed.CreatedAt)
	}
}

func TestUpdateBookEmptyPatchStillTouches(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)

	seed := mustCreateTestBook(t, repo.db, nil)

	time.Sleep(5 * time.Millisecond)
	updated, err := svc.UpdateBook(context.Background(), seed.ID, UpdateBookInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != seed.Title || updated.Author != seed.Author {
		t.Fatalf("empty patch mutated fields: %+v", updated)
	}
	if !updated.UpdatedAt.After(seed.UpdatedAt) {
		t.Fatal("expected updated_at to advance on empty patch")
	}
}

func TestUpdateBookValidation(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	seed := mustCreateTestBook(t, repo.db, nil)

	cases := []struct {
		name  string
		input UpdateBookInput
	}{
		{"blank title", UpdateBookInput{Title: stringPtr("   ")}},
		{"blank author", UpdateBookInput{Author: stringPtr("")}},
		{"blank isbn", UpdateBookInput{ISBN: stringPtr(" ")}},
		{"zero publish year", UpdateBookInput{PublishYear: intPtr(0)}},
		{"negative price", UpdateBookInput{Price: float64Ptr(-1)}},
		{"bad status", UpdateBookInput{Status: statusPtr(enums.BookStatus("misplaced"))}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateBook(context.Background(), seed.ID, tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateBookNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.UpdateBook(context.Background(), uuid.New(), UpdateBookInput{Title: stringPtr("x")})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateBookDuplicateISBN(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	taken := mustCreateTestBook(t, repo.db, nil)
	other := mustCreateTestBook(t, repo.db, nil)

	_, err := svc.UpdateBook(ctx, other.ID, UpdateBookInput{ISBN: stringPtr(taken.ISBN)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateBookStatusOverride(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	seed := mustCreateTestBook(t, repo.db, func(b *models.Book) {
		b.Status = enums.BookStatusDamaged
	})

	// The catalog update path is the administrative escape hatch out of the
	// damaged state.
	updated, err := svc.UpdateBook(ctx, seed.ID, UpdateBookInput{Status: statusPtr(enums.BookStatusAvailable)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.BookStatusAvailable {
		t.Fatalf("expected available, got %s", updated.Status)
	}
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	seed := mustCreateTestBook(t, repo.db, nil)
	if err := svc.DeleteBook(ctx, seed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.GetBook(ctx, seed.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// Second delete of the same id reports not found.
	err = svc.DeleteBook(ctx, seed.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
}

func TestDeleteBorrowedBookAllowed(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	seed := mustCreateTestBook(t, repo.db, func(b *models.Book) {
		b.Status = enums.BookStatusBorrowed
	})
	if err := svc.DeleteBook(ctx, seed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListBooksByStatus(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(t)
	ctx := context.Background()

	mustCreateTestBook(t, repo.db, nil)
	mustCreateTestBook(t, repo.db, func(b *models.Book) { b.Status = enums.BookStatusBorrowed })
	mustCreateTestBook(t, repo.db, func(b *models.Book) { b.Status = enums.BookStatusBorrowed })

	borrowed, err := svc.ListBooksByStatus(ctx, enums.BookStatusBorrowed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(borrowed) != 2 {
		t.Fatalf("expected 2 borrowed books, got %d", len(borrowed))
	}

	_, err = svc.ListBooksByStatus(ctx, enums.BookStatus("misplaced"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyUpdateToBookTrims(t *testing.T) {
	t.Parallel()
	book := &models.Book{Title: "Old", Author: "Old Author", ISBN: "old-isbn"}
	applyUpdateToBook(book, UpdateBookInput{
		Title:  stringPtr("  New  "),
		Author: stringPtr("\tNew Author\n"),
		ISBN:   stringPtr(" new-isbn "),
	})
	if book.Title != "New" || book.Author != "New Author" || book.ISBN != "new-isbn" {
		t.Fatalf("expected trimmed values, got %+v", book)
	}
}
