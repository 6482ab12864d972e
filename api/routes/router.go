package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pageturnhq/bookshelf-backend/api/controllers"
	"github.com/pageturnhq/bookshelf-backend/api/middleware"
	"github.com/pageturnhq/bookshelf-backend/internal/books"
	"github.com/pageturnhq/bookshelf-backend/internal/lending"
	"github.com/pageturnhq/bookshelf-backend/internal/search"
	"github.com/pageturnhq/bookshelf-backend/pkg/config"
	"github.com/pageturnhq/bookshelf-backend/pkg/db"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
	"github.com/pageturnhq/bookshelf-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	httpMetrics *metrics.HTTPMetrics,
	booksService books.Service,
	lendingService lending.Service,
	searchService search.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/books", func(r chi.Router) {
		r.Get("/", controllers.ListBooks(booksService, logg))
		r.Post("/", controllers.CreateBook(booksService, logg))
		r.Get("/search", controllers.SearchBooks(searchService, logg))
		r.Get("/status/{status}", controllers.ListBooksByStatus(booksService, logg))

		r.Route("/{bookId}", func(r chi.Router) {
			r.Get("/", controllers.GetBook(booksService, logg))
			r.Put("/", controllers.UpdateBook(booksService, logg))
			r.Delete("/", controllers.DeleteBook(booksService, logg))
			r.Post("/borrow", controllers.BorrowBook(lendingService, logg))
			r.Post("/return", controllers.ReturnBook(lendingService, logg))
		})
	})

	return r
}
