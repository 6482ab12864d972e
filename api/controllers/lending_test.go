package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
)

type stubLendingService struct {
	book   *models.Book
	err    error
	lastID uuid.UUID
}

func (s *stubLendingService) Borrow(_ context.Context, id uuid.UUID) (*models.Book, error) {
	s.lastID = id
	return s.book, s.err
}

func (s *stubLendingService) Return(_ context.Context, id uuid.UUID) (*models.Book, error) {
	s.lastID = id
	return s.book, s.err
}

func TestBorrowBookController(t *testing.T) {
	logg := testLogger()
	id := uuid.New()
	stub := &stubLendingService{book: &models.Book{ID: id, Status: enums.BookStatusBorrowed}}

	rec := httptest.NewRecorder()
	BorrowBook(stub, logg).ServeHTTP(rec, requestWithBookID(http.MethodPost, "/api/v1/books/"+id.String()+"/borrow", id, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.lastID != id {
		t.Fatalf("id not forwarded: %s", stub.lastID)
	}
}

func TestBorrowBookControllerConflict(t *testing.T) {
	logg := testLogger()
	id := uuid.New()
	stub := &stubLendingService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "book is not available")}

	rec := httptest.NewRecorder()
	BorrowBook(stub, logg).ServeHTTP(rec, requestWithBookID(http.MethodPost, "/api/v1/books/"+id.String()+"/borrow", id, nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestReturnBookController(t *testing.T) {
	logg := testLogger()
	id := uuid.New()
	stub := &stubLendingService{book: &models.Book{ID: id, Status: enums.BookStatusAvailable}}

	rec := httptest.NewRecorder()
	ReturnBook(stub, logg).ServeHTTP(rec, requestWithBookID(http.MethodPost, "/api/v1/books/"+id.String()+"/return", id, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLendingControllersNilService(t *testing.T) {
	logg := testLogger()
	id := uuid.New()

	rec := httptest.NewRecorder()
	BorrowBook(nil, logg).ServeHTTP(rec, requestWithBookID(http.MethodPost, "/x", id, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("borrow: expected 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReturnBook(nil, logg).ServeHTTP(rec, requestWithBookID(http.MethodPost, "/x", id, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("return: expected 500, got %d", rec.Code)
	}
}
