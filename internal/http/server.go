package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	appweb "ledger/web"
)

// Config wires a Server. Reports is required; a nil Exports disables
// POST /api/exports. TrustedProxies are extra CIDRs whose forwarded
// headers are honored.
type Config struct {
	Reports        *services.ReportService
	Exports        *services.ExportService
	DefaultTarget  string
	RateLimit      ratelimit.Config
	Logger         *applog.Logger
	TrustedProxies []string

	// Location is where query dates are read. Nil means time.Local.
	Location *time.Location

	// Ready reports readiness for /readyz. Nil is always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	reports       *services.ReportService
	exports       *services.ExportService
	defaultTarget string
	loc           *time.Location
	templates     *template.Template
	logger        *applog.Logger
	ready         func(ctx context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		reports:       cfg.Reports,
		exports:       cfg.Exports,
		defaultTarget: cfg.DefaultTarget,
		loc:           loc,
		logger:        logger.WithComponent(applog.ComponentHTTP),
		ready:         cfg.Ready,
		limiter:       ratelimit.NewLimiter(cfg.RateLimit),
		detector:      security.NewDetector(),
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/ledger", s.handleLedger)
	mux.HandleFunc("GET /api/aging", s.handleAging)
	mux.HandleFunc("GET /api/aging/summary", s.handleAgingSummary)
	mux.HandleFunc("GET /api/bas", s.handleBAS)
	mux.HandleFunc("GET /export/{file}", s.handleExportCSV)
	mux.HandleFunc("GET /print/{report}", s.handlePrint)

	// Exports are the only writes, so only they are rate limited.
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost)
	mux.Handle("POST /api/exports", limit(http.HandlerFunc(s.handleCreateExport)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = applog.ComponentMiddleware(applog.ComponentHTTP)(handler)
	handler = s.detector.Middleware(false)(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Not ready", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// metricsView is the JSON body of /metrics.
type metricsView struct {
	HTTP      trace.Metrics             `json:"http"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
	Cache     any                       `json:"snapshot_cache,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	view := metricsView{
		HTTP:      s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
	if c := s.reports.SnapshotCache(); c != nil {
		view.Cache = c.Stats()
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	JSONError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}
