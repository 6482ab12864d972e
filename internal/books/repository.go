package books

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
)

// Repository is the catalog store: the sole owner of book identity and
// durability. All mutations on the same id go through the store so that
// conflicting writes serialize on the row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a single book.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByISBN loads the book carrying the given ISBN.
func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns the full catalog. Ordering is stable per store but otherwise
// unspecified.
func (r *Repository) List(ctx context.Context) ([]models.Book, error) {
	var out []models.Book
	if err := r.db.WithContext(ctx).Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new book. The unique index on isbn rejects duplicates.
func (r *Repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Save persists all fields of the book, keyed by id.
func (r *Repository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes the book and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByStatus returns all books currently in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status enums.BookStatus) ([]models.Book, error) {
	var out []models.Book
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SearchByText matches the pattern case-insensitively as a substring of
// title or author.
func (r *Repository) SearchByText(ctx context.Context, pattern string) ([]models.Book, error) {
	like := "%" + strings.ToLower(pattern) + "%"
	var out []models.Book
	if err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like).
		Order("created_at").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusIf flips status from -> to in one conditional write and
// reports how many rows changed. Zero rows means the book is missing or no
// longer in the expected state; the caller re-reads to tell the two apart.
// This is the check-and-set that keeps two racing borrows from both
// succeeding.
func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to enums.BookStatus, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	return res.RowsAffected, res.Error
}

// TouchUpdatedAt stamps updated_at without changing anything else. Used by
// the idempotent return path.
func (r *Repository) TouchUpdatedAt(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Update("updated_at", now).Error
}
