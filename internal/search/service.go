package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pageturnhq/bookshelf-backend/internal/books"
	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
)

// Service answers free-text catalog queries.
type Service interface {
	Search(ctx context.Context, query string) ([]models.Book, error)
}

type service struct {
	repo *books.Repository
}

// NewService builds the search service.
func NewService(repo *books.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	return &service{repo: repo}, nil
}

// Search trims the query and matches it case-insensitively against title or
// author. A blank query falls back to the full catalog listing.
func (s *service) Search(ctx context.Context, query string) ([]models.Book, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		out, err := s.repo.List(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
		}
		return out, nil
	}

	out, err := s.repo.SearchByText(ctx, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search books")
	}
	return out, nil
}
