package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"martelinho/internal/auth"
	"martelinho/internal/cache"
	"martelinho/internal/core"
	"martelinho/internal/finance"
	"martelinho/internal/invoice"
	"martelinho/internal/log"
	"martelinho/internal/middleware/ratelimit"
	"martelinho/internal/middleware/security"
	"martelinho/internal/middleware/trace"
	"martelinho/internal/services"
	appweb "martelinho/web"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Records   *services.RecordService
	Auth      *auth.Service
	Dashboard *finance.Dashboard
	Invoices  *invoice.Renderer
	// Ping reports whether storage is reachable, for /readyz.
	Ping   func(ctx context.Context) error
	Logger *log.Logger
	// Caches are cleaned periodically along with the server's own.
	Caches []cache.Cleaner
}

type Options struct {
	TrailingMonths int
	SelectorMonths int
	SecureCookies  bool
	AuthRateLimit  ratelimit.Config
	ViewsTTL       time.Duration
	CleanupEvery   time.Duration
	Now            func() time.Time
}

const (
	sessionCookie  = "martelinho_session"
	requestTimeout = 10 * time.Second
	maxFormBytes   = 64 << 10
	maxViews       = 512
)

type Server struct {
	http.Server
	templates *template.Template

	records   *services.RecordService
	auth      *auth.Service
	dashboard *finance.Dashboard
	invoices  *invoice.Renderer
	ping      func(ctx context.Context) error

	viewsMu sync.Mutex
	views   *cache.LRUCache[*sessionViews]

	caches      *cache.Manager
	limiter     *ratelimit.Limiter
	ips         *security.IPResolver
	tracer      *trace.Middleware
	logger      *log.Logger
	unsubscribe func()

	trailing      int
	selector      int
	secureCookies bool
	now           func() time.Time
	started       time.Time
	shutdownOnce  sync.Once
}

// NewServer parses the templates and wires the routes.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if opts.TrailingMonths <= 0 {
		opts.TrailingMonths = finance.DefaultTrailing
	}
	if opts.SelectorMonths <= 0 {
		opts.SelectorMonths = finance.DefaultSelectors
	}
	if opts.ViewsTTL <= 0 {
		opts.ViewsTTL = time.Hour
	}
	if opts.CleanupEvery <= 0 {
		opts.CleanupEvery = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AuthRateLimit.Logger == nil {
		opts.AuthRateLimit.Logger = logger
	}

	s := &Server{
		templates:     tmpl,
		records:       deps.Records,
		auth:          deps.Auth,
		dashboard:     deps.Dashboard,
		invoices:      deps.Invoices,
		ping:          deps.Ping,
		views:         cache.NewLRUCache[*sessionViews](maxViews, opts.ViewsTTL),
		caches:        cache.NewManager(logger),
		limiter:       ratelimit.NewLimiter(opts.AuthRateLimit),
		ips:           security.NewIPResolver(),
		logger:        logger,
		trailing:      opts.TrailingMonths,
		selector:      opts.SelectorMonths,
		secureCookies: opts.SecureCookies,
		now:           opts.Now,
		started:       opts.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.ips.ClientIP)

	s.caches.Register(s.views)
	for _, c := range deps.Caches {
		s.caches.Register(c)
	}
	s.caches.StartCleanup(opts.CleanupEvery)

	if s.auth != nil {
		s.unsubscribe = s.auth.Subscribe(s.onSessionEvent)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	authLimit := s.limiter.Middleware(s.ips.ClientIP, s.handleRateLimited)
	r.Get("/login", s.handleLoginPage)
	r.With(authLimit).Post("/login", s.handleLogin)
	r.Get("/register", s.handleRegisterPage)
	r.With(authLimit).Post("/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Use(security.NoStore)
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/logout", s.handleLogout)

		r.Get("/", s.handleServiceList)
		r.Get("/services/new", s.handleNewService)
		r.Post("/services", s.handleCreateService)
		r.Route("/services/{id}", func(r chi.Router) {
			r.Post("/", s.handleUpdateService)
			r.Get("/edit", s.handleEditService)
			r.Post("/delete", s.handleDeleteService)
			r.Get("/invoice.pdf", s.handleInvoice)
		})

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/ui/dashboard/current", s.handleDashboardCurrent)
		r.Get("/ui/dashboard/months", s.handleDashboardMonths)
		r.Get("/ui/dashboard/month", s.handleDashboardMonth)
	})

	r.NotFound(s.handleNotFound)
	return r
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.limiter.Stop()
		s.caches.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldError, err)
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().
		Status(status).
		Header("Content-Type", "text/html; charset=utf-8").
		Body(buf.Bytes()).
		Write(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates plain requests with 303 and htmx requests with HX-Redirect.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "error_page", errorPage{
		pageData: s.pageData(r, "Página não encontrada"),
		Message:  "A página solicitada não existe.",
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, msgTooManyAttempts).Write(w)
		return
	}
	s.render(w, r, http.StatusTooManyRequests, "error_page", errorPage{
		pageData: s.pageData(r, "Muitas tentativas"),
		Message:  msgTooManyAttempts,
	})
}
