package books

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageturnhq/bookshelf-backend/pkg/db"
	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
)

const maxDescriptionLen = 500

// Service exposes catalog management operations.
type Service interface {
	CreateBook(ctx context.Context, input CreateBookInput) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context) ([]models.Book, error)
	ListBooksByStatus(ctx context.Context, status enums.BookStatus) ([]models.Book, error)
}

// CreateBookInput holds the validated payload to create a catalog record.
type CreateBookInput struct {
	Title       string
	Author      string
	Description *string
	PublishYear int
	ISBN        string
	Price       *float64
	CoverURL    *string
	Status      *enums.BookStatus
}

// UpdateBookInput carries one pointer per attribute: nil means "keep the
// current value", non-nil overwrites. Status set through this path skips the
// lending transition rules on purpose (administrative corrections such as
// marking a book damaged); borrow/return go through the lending service.
type UpdateBookInput struct {
	Title       *string
	Author      *string
	Description *string
	PublishYear *int
	ISBN        *string
	Price       *float64
	CoverURL    *string
	Status      *enums.BookStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// service implements the catalog service.
type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// CreateBook validates the input, stamps both timestamps with the same
// instant, and persists the record. Status defaults to available.
func (s *service) CreateBook(ctx context.Context, input CreateBookInput) (*models.Book, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	status := enums.BookStatusAvailable
	if input.Status != nil {
		status = *input.Status
	}

	now := time.Now().UTC()
	book := &models.Book{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Author:      strings.TrimSpace(input.Author),
		Description: input.Description,
		PublishYear: input.PublishYear,
		ISBN:        strings.TrimSpace(input.ISBN),
		Price:       input.Price,
		CoverURL:    input.CoverURL,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		if isISBNUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "isbn already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert book")
	}
	return created, nil
}

// GetBook loads a single record.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

// UpdateBook applies a merge-patch: only fields present in the input
// overwrite the stored values. UpdatedAt always advances.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*models.Book, error) {
	if err := validateUpdateInput(input); err != nil {
		return nil, err
	}

	var updated *models.Book
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		book, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}

		applyUpdateToBook(book, input)
		book.UpdatedAt = time.Now().UTC()

		if updated, err = txRepo.Save(ctx, book); err != nil {
			if isISBNUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "isbn already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save book")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
	}
	return updated, nil
}

// DeleteBook removes the record. Deleting a borrowed book is permitted; the
// deletion is logged so operators can audit it.
func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	if book.Status == enums.BookStatusBorrowed && s.logg != nil {
		s.logg.Warn(s.logg.WithBookID(ctx, book.ID.String()), "deleting a borrowed book")
	}

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}
	if !existed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return nil
}

// ListBooks returns the full catalog.
func (s *service) ListBooks(ctx context.Context) ([]models.Book, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return out, nil
}

// ListBooksByStatus filters the catalog by lending status.
func (s *service) ListBooksByStatus(ctx context.Context, status enums.BookStatus) ([]models.Book, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid book status")
	}
	out, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books by status")
	}
	return out, nil
}

func validateCreateInput(input CreateBookInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Author) == "" {
		missing = append(missing, "author")
	}
	if strings.TrimSpace(input.ISBN) == "" {
		missing = append(missing, "isbn")
	}
	if input.PublishYear == 0 {
		missing = append(missing, "publish_year")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}

	if err := validateOptionalFields(input.Description, input.Price, input.Status); err != nil {
		return err
	}
	return nil
}

func validateUpdateInput(input UpdateBookInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
	}
	if input.Author != nil && strings.TrimSpace(*input.Author) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "author cannot be empty")
	}
	if input.ISBN != nil && strings.TrimSpace(*input.ISBN) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "isbn cannot be empty")
	}
	if input.PublishYear != nil && *input.PublishYear == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "publish_year cannot be zero")
	}
	return validateOptionalFields(input.Description, input.Price, input.Status)
}

// isISBNUniqueViolation matches both the postgres index name and the
// table.column path sqlite reports in its message.
func isISBNUniqueViolation(err error) bool {
	return db.IsUniqueViolation(err, "idx_books_isbn", "books.isbn")
}

func validateOptionalFields(description *string, price *float64, status *enums.BookStatus) error {
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "description exceeds 500 characters")
	}
	if price != nil && *price <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than 0")
	}
	if status != nil && !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid book status")
	}
	return nil
}

func applyUpdateToBook(book *models.Book, input UpdateBookInput) {
	if input.Title != nil {
		book.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		book.Author = strings.TrimSpace(*input.Author)
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.PublishYear != nil {
		book.PublishYear = *input.PublishYear
	}
	if input.ISBN != nil {
		book.ISBN = strings.TrimSpace(*input.ISBN)
	}
	if input.Price != nil {
		book.Price = input.Price
	}
	if input.CoverURL != nil {
		book.CoverURL = input.CoverURL
	}
	if input.Status != nil {
		book.Status = *input.Status
	}
}
