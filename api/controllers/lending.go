package controllers

import (
	"net/http"

	"github.com/pageturnhq/bookshelf-backend/api/responses"
	lendingsvc "github.com/pageturnhq/bookshelf-backend/internal/lending"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
)

// BorrowBook checks a book out. At most one concurrent borrow wins; the
// losers get a state conflict.
func BorrowBook(svc lendingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		id, err := parseBookID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Borrow(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

// ReturnBook checks a book back in. Returning an already available book is a
// no-op success.
func ReturnBook(svc lendingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		id, err := parseBookID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Return(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}
