package controllers

import (
	"net/http"

	"github.com/pageturnhq/bookshelf-backend/api/responses"
	"github.com/pageturnhq/bookshelf-backend/api/validators"
	searchsvc "github.com/pageturnhq/bookshelf-backend/internal/search"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
)

const maxSearchQueryLen = 200

// SearchBooks answers free-text catalog queries. A blank keyword lists the whole
// catalog. An optional limit caps the result size.
func SearchBooks(svc searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		query := validators.SanitizeString(r.URL.Query().Get("keyword"), maxSearchQueryLen)

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		books, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if limit > 0 && len(books) > limit {
			books = books[:limit]
		}

		responses.WriteSuccess(w, books)
	}
}
