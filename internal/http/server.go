package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"walletnote/internal/core"
	applog "walletnote/internal/log"
	"walletnote/internal/middleware/security"
	"walletnote/internal/middleware/trace"
)

// ExpenseAPI is what the handlers need from the service layer.
type ExpenseAPI interface {
	AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ListExpenses(ctx context.Context, rng *core.DateRange) ([]core.Expense, error)
	TotalAmount(ctx context.Context, rng *core.DateRange) (core.Money, error)
	DeleteExpense(ctx context.Context, e core.Expense) (int64, error)
	DeleteExpenseByID(ctx context.Context, id string) error
	Overview(ctx context.Context, rng *core.DateRange) (core.Overview, error)
	SummaryByCategory(ctx context.Context, rng *core.DateRange) ([]core.CategoryTotal, error)
	SummaryByMonth(ctx context.Context, rng *core.DateRange) ([]core.MonthTotal, error)
}

type Server struct {
	http.Server
	api      ExpenseAPI
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, api ExpenseAPI, logger *applog.Logger) *Server {
	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		api:      api,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		detector: detector,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/total", s.handleTotal)
	mux.HandleFunc("DELETE /api/expenses", s.handleDeleteExpenses)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpenseByID)

	mux.HandleFunc("GET /api/summary", s.handleOverview)
	mux.HandleFunc("GET /api/summary/categories", s.handleSummaryByCategory)
	mux.HandleFunc("GET /api/summary/months", s.handleSummaryByMonth)

	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	// Outermost first: trace, suspicious-request logging, headers, logger.
	var h http.Handler = mux
	h = applog.RequestIDMiddleware(trace.FromRequest)(h)
	h = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

// Metrics exposes request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts the server down once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
