package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wishbudget/internal/cache"
	"wishbudget/internal/core"
	"wishbudget/internal/log"
	"wishbudget/internal/middleware/ratelimit"
	"wishbudget/internal/middleware/security"
	"wishbudget/internal/middleware/trace"
	"wishbudget/internal/services"
)

// BudgetAPI is the budget service as seen by the handlers.
type BudgetAPI interface {
	Overview(ctx context.Context, userID string, year int) (services.Overview, error)
	Detail(ctx context.Context, key core.GoalKey) (services.Detail, error)
	SetLimit(ctx context.Context, key core.GoalKey, limit *core.Money) error
	SaveCustomGoal(ctx context.Context, goal core.BudgetGoal) error
	DeleteGoal(ctx context.Context, key core.GoalKey) error
	UpdatePaidAmount(ctx context.Context, userID, claimID string, paid *core.Money) error
	CancelClaim(ctx context.Context, userID, claimID string) error
	AddExternalGift(ctx context.Context, g core.ExternalGiftRow) (string, error)
	DeleteExternalGift(ctx context.Context, userID, id string) error
	ExportLedger(ctx context.Context, userID string, year int) (string, error)
}

var _ BudgetAPI = (*services.BudgetService)(nil)

// Options configures NewServer. Zero values fall back to sensible defaults.
type Options struct {
	Addr               string
	DefaultLocale      string
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
	// CacheStats feeds the goal cache counters of /metrics; nil omits them.
	CacheStats func() cache.Stats
}

type Server struct {
	http.Server
	budgets       BudgetAPI
	defaultLocale string
	ready         func(context.Context) error
	cacheStats    func() cache.Stats
	logger        *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

func NewServer(budgets BudgetAPI, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = core.LocaleFR
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		budgets:       budgets,
		defaultLocale: opts.DefaultLocale,
		ready:         opts.Ready,
		cacheStats:    opts.CacheStats,
		logger:        opts.Logger.WithComponent(log.ComponentHTTP),
		detector:      security.NewDetector(),
		started:       time.Now(),
		now:           time.Now,
	}

	rlConfig := ratelimit.DefaultConfig()
	rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	s.limiter = ratelimit.NewLimiter(rlConfig)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().withRequestID(trace.RequestIDFromRequest(r)).Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.Middleware(s.logger, trace.RequestIDFromRequest)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /users/{user}/budgets", s.handleOverview)
	mux.HandleFunc("POST /users/{user}/budgets/custom", s.handleSaveCustomGoal)
	mux.HandleFunc("DELETE /users/{user}/budgets/custom/{name}", s.handleDeleteCustomGoal)
	mux.HandleFunc("GET /users/{user}/budgets/{type}", s.handleDetail)
	mux.HandleFunc("PUT /users/{user}/budgets/{type}/limit", s.handleSetLimit)

	mux.HandleFunc("PATCH /users/{user}/claims/{id}/paid-amount", s.handleUpdatePaidAmount)
	mux.HandleFunc("DELETE /users/{user}/claims/{id}", s.handleCancelClaim)
	mux.HandleFunc("POST /users/{user}/external-gifts", s.handleAddExternalGift)
	mux.HandleFunc("DELETE /users/{user}/external-gifts/{id}", s.handleDeleteExternalGift)

	mux.HandleFunc("POST /users/{user}/ledger/export", s.handleExportLedger)
}

// Shutdown stops the rate limiter cleanup and gracefully shuts the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) presenter(r *http.Request) presenter {
	return presenter{locale: requestLocale(r, s.defaultLocale)}
}
