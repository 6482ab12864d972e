package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageturnhq/bookshelf-backend/internal/books"
	"github.com/pageturnhq/bookshelf-backend/pkg/db/models"
	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
	pkgerrors "github.com/pageturnhq/bookshelf-backend/pkg/errors"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
	"github.com/pageturnhq/bookshelf-backend/pkg/metrics"
)

const (
	opBorrow = "borrow"
	opReturn = "return"
)

// Service is the lending state machine. It owns the legality of
// available -> borrowed -> available transitions and guarantees at most one
// borrower per record under concurrent requests.
type Service interface {
	Borrow(ctx context.Context, id uuid.UUID) (*models.Book, error)
	Return(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      *books.Repository
	tx        txRunner
	metrics   *metrics.LendingMetrics
	logg      *logger.Logger
	opTimeout time.Duration
}

// NewService builds the lending service. opTimeout bounds how long an
// operation may wait on row contention before failing with a retryable
// error; zero disables the bound.
func NewService(repo *books.Repository, tx txRunner, lendingMetrics *metrics.LendingMetrics, logg *logger.Logger, opTimeout time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		metrics:   lendingMetrics,
		logg:      logg,
		opTimeout: opTimeout,
	}, nil
}

// Borrow transitions the book from available to borrowed. The status check
// and the write are a single conditional update, so two racing borrows on
// the same book resolve to exactly one success.
func (s *service) Borrow(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	start := time.Now()
	book, err := s.borrow(ctx, id)
	s.metrics.ObserveDuration(opBorrow, time.Since(start))
	s.observeOutcome(ctx, opBorrow, id, err)
	return book, err
}

func (s *service) borrow(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var book *models.Book
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		now := time.Now().UTC()
		rows, err := txRepo.UpdateStatusIf(ctx, id, enums.BookStatusAvailable, enums.BookStatusBorrowed, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: borrow status update")
		}
		if rows == 0 {
			// Missing row vs. wrong state: re-read inside the same tx.
			current, err := txRepo.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "book is not available").
				WithDetails(map[string]any{"status": current.Status})
		}

		if book, err = txRepo.FindByID(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload book")
		}
		return nil
	}); err != nil {
		return nil, s.mapTxError(err, "borrow book")
	}
	return book, nil
}

// Return transitions the book back to available. Returning an already
// available book succeeds and only stamps UpdatedAt; a damaged book never
// leaves that state through this machine.
func (s *service) Return(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	start := time.Now()
	book, err := s.ret(ctx, id)
	s.metrics.ObserveDuration(opReturn, time.Since(start))
	s.observeOutcome(ctx, opReturn, id, err)
	return book, err
}

func (s *service) ret(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var book *models.Book
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}

		now := time.Now().UTC()
		switch current.Status {
		case enums.BookStatusBorrowed:
			if _, err := txRepo.UpdateStatusIf(ctx, id, enums.BookStatusBorrowed, enums.BookStatusAvailable, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: return status update")
			}
		case enums.BookStatusAvailable:
			// Idempotent return: already on the shelf, just stamp the time.
			if err := txRepo.TouchUpdatedAt(ctx, id, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: touch book")
			}
		case enums.BookStatusDamaged:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "book is damaged").
				WithDetails(map[string]any{"status": current.Status})
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unknown book status").
				WithDetails(map[string]any{"status": current.Status})
		}

		if book, err = txRepo.FindByID(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload book")
		}
		return nil
	}); err != nil {
		return nil, s.mapTxError(err, "return book")
	}
	return book, nil
}

func (s *service) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// mapTxError keeps typed rejections intact and folds everything else
// (lock timeouts, closed connections) into the retryable dependency class.
func (s *service) mapTxError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func (s *service) observeOutcome(ctx context.Context, op string, id uuid.UUID, err error) {
	switch {
	case err == nil:
		s.metrics.IncSuccess(op)
	case pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeStateConflict:
		s.metrics.IncRejected(op)
		if s.logg != nil {
			s.logg.Debug(s.logg.WithBookID(ctx, id.String()), op+" rejected by state machine")
		}
	default:
		if s.logg != nil {
			s.logg.Error(s.logg.WithBookID(ctx, id.String()), op+" failed", err)
		}
	}
}
