package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pageturnhq/bookshelf-backend/api/responses"
	"github.com/pageturnhq/bookshelf-backend/api/validators"
	booksvc "github.com/pageturnhq/bookshelf-backend/internal/books"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
)

// CreateBook handles catalog record creation.
func CreateBook(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		var payload createBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.CreateBook(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

// GetBook returns a single catalog record by id.
func GetBook(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		id, err := parseBookID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.GetBook(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

// UpdateBook applies a merge-patch to an existing record. Absent fields keep
// their stored values.
func UpdateBook(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		id, err := parseBookID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.UpdateBook(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

// DeleteBook removes a catalog record.
func DeleteBook(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		id, err := parseBookID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBook(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ListBooks returns the full catalog.
func ListBooks(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		books, err := svc.ListBooks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, books)
	}
}

// ListBooksByStatus filters the catalog by lending status.
func ListBooksByStatus(svc booksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		raw := validators.SanitizeString(chi.URLParam(r, "status"), 32)
		status, err := enums.ParseBookStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		books, err := svc.ListBooksByStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, books)
	}
}

type createBookRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Author      string   `json:"author" validate:"required,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	PublishYear int      `json:"publish_year" validate:"required"`
	ISBN        string   `json:"isbn" validate:"required,max=32"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	CoverURL    *string  `json:"cover_url,omitempty" validate:"omitempty,url"`
	Status      *string  `json:"status,omitempty"`
}

func (r createBookRequest) toCreateInput() (booksvc.CreateBookInput, error) {
	status, err := parseOptionalStatus(r.Status)
	if err != nil {
		return booksvc.CreateBookInput{}, err
	}
	return booksvc.CreateBookInput{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		PublishYear: r.PublishYear,
		ISBN:        r.ISBN,
		Price:       r.Price,
		CoverURL:    r.CoverURL,
		Status:      status,
	}, nil
}

type updateBookRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	Author      *string  `json:"author,omitempty" validate:"omitempty,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	PublishYear *int     `json:"publish_year,omitempty"`
	ISBN        *string  `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	CoverURL    *string  `json:"cover_url,omitempty" validate:"omitempty,url"`
	Status      *string  `json:"status,omitempty"`
}

func (r updateBookRequest) toUpdateInput() (booksvc.UpdateBookInput, error) {
	status, err := parseOptionalStatus(r.Status)
	if err != nil {
		return booksvc.UpdateBookInput{}, err
	}
	return booksvc.UpdateBookInput{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		PublishYear: r.PublishYear,
		ISBN:        r.ISBN,
		Price:       r.Price,
		CoverURL:    r.CoverURL,
		Status:      status,
	}, nil
}

func parseOptionalStatus(raw *string) (*enums.BookStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := enums.ParseBookStatus(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &status, nil
}

func parseBookID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "bookId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid book id")
	}
	return id, nil
}
