// Package gateway serves the portal's HTTP/JSON and WebSocket API.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"

	"github.com/totalcareit/partner-metrics/internal/auth"
	"github.com/totalcareit/partner-metrics/internal/fixtures"
	"github.com/totalcareit/partner-metrics/internal/services"
)

// Reports is the report facade the gateway serves.
type Reports interface {
	SalesReport(ctx context.Context, period string) (*services.SalesReport, error)
	TicketReport(ctx context.Context, period string) (*services.TicketReport, error)
	QuarterlyReport(ctx context.Context, reportType, quarter, year string) (*services.QuarterlyReport, error)
	QuarterlyReports(ctx context.Context) ([]fixtures.Ref, error)
	ClearCache(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Reports        Reports
	Verifier       auth.TokenVerifier
	Logger         *slog.Logger
	AllowedOrigins []string
	// RefreshInterval is how often the stream pushes a fresh sales report.
	RefreshInterval time.Duration
	Clock           clockwork.Clock
}

// NewRouter builds the HTTP handler tree.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	h := &handlers{reports: opts.Reports, logger: opts.Logger}
	stream := newStreamHandler(opts.Reports, opts.Logger, opts.Clock, opts.RefreshInterval, opts.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(opts.AllowedOrigins))

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(opts.Verifier, opts.Logger))
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/sales-report", h.salesReport)
			r.Get("/sales-report/stream", stream.ServeHTTP)
			r.Get("/ticket-report", h.ticketReport)
			r.Get("/reports", h.listQuarterly)
			r.Get("/reports/{type}/{quarter}/{year}", h.quarterlyReport)
			r.Post("/cache/clear", h.clearCache)
		})
	})
	return r
}

func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
