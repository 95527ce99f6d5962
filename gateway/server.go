package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/health"
	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/reorder"
	"github.com/jonwraymond/infergate/report"
)

const (
	cacheHeader = "X-Cache"

	// DefaultMaxUploadBytes bounds multipart and JSON request bodies.
	DefaultMaxUploadBytes = 32 << 20
)

// Cache lifetimes per operation.
const (
	imageTTL    = time.Hour
	forecastTTL = time.Hour
	historyTTL  = 24 * time.Hour
	pdfTTL      = time.Hour
	reorderTTL  = 24 * time.Hour
)

// Cache key namespaces.
const (
	nsPredict = "pred"
	nsInpaint = "inpaint"
	nsView    = "view"
	nsPDF     = "pdf"
	nsReorder = "reorder_v1"
)

var errNotConfigured = errors.New("gateway: operation not configured")

// ImageProvider classifies and inpaints images.
type ImageProvider interface {
	Classify(ctx context.Context, image inference.Part) ([]byte, error)
	Inpaint(ctx context.Context, image, mask inference.Part) ([]byte, error)
	Health(ctx context.Context) (*inference.Response, error)
}

// ForecastProvider serves the time-series model.
type ForecastProvider interface {
	Forecast(ctx context.Context, steps int) ([]byte, error)
	History(ctx context.Context) ([]byte, error)
	Metrics(ctx context.Context) ([]byte, error)
	Ready(ctx context.Context) bool
}

// ReportRunner streams forecast reports.
type ReportRunner interface {
	Cached(ctx context.Context) (string, bool)
	Run(ctx context.Context, opts report.Options, sink report.Sink) *report.Session
}

// PDFRenderer turns markdown into a PDF.
type PDFRenderer interface {
	PDF(ctx context.Context, markdown string) ([]byte, error)
}

// ReorderAdvisor turns an inventory CSV into reorder advice.
type ReorderAdvisor interface {
	Advise(ctx context.Context, data []byte) ([]reorder.Advice, error)
}

// Deps are the collaborators a Server routes to. Nil providers make their
// routes answer 503.
type Deps struct {
	Authenticator auth.Authenticator
	Cache         cache.Cache

	Images   ImageProvider
	Forecast ForecastProvider
	Reports  ReportRunner
	Renderer PDFRenderer
	Reorder  ReorderAdvisor
	Users    UserDirectory

	// Observer instruments every route. Nil means no instrumentation.
	Observer *observe.Middleware
	// Health, when set, mounts /healthz, /readyz and /health/details.
	Health *health.Aggregator
	// MetricsHandler, when set, is mounted at /internal/metrics.
	MetricsHandler http.Handler
}

// Options tune a Server.
type Options struct {
	// Coalesce shares one provider call between concurrent identical misses.
	Coalesce bool

	MaxUploadBytes int64
}

// Server is the gateway HTTP handler.
type Server struct {
	deps    Deps
	opts    Options
	memo    *cache.Memoizer
	obs     *observe.Middleware
	logger  observe.Logger
	router  chi.Router
	reqAuth func(http.Handler) http.Handler
}

// New builds a Server and its routes.
func New(deps Deps, opts Options) (*Server, error) {
	if deps.Authenticator == nil {
		return nil, errors.New("gateway: authenticator is required")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	obs := deps.Observer
	if obs == nil {
		obs = observe.NewMiddleware(nil, nil, nil)
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		obs:    obs,
		logger: obs.Logger(),
	}

	memoOpts := []cache.MemoizerOption{
		cache.WithLookupObserver(func(ctx context.Context, key string, hit bool) {
			obs.Metrics().RecordCacheLookup(ctx, cache.Namespace(key), hit)
		}),
	}
	if opts.Coalesce {
		memoOpts = append(memoOpts, cache.WithCoalescing())
	}
	s.memo = cache.NewMemoizer(deps.Cache, cache.DefaultPolicy(), memoOpts...)
	s.reqAuth = auth.RequireAuth(deps.Authenticator, s.authError)
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.open("root", "liveness", "/health", health.LivenessHandler()))
	r.Get("/health/cache", s.open("root", "cache_health", "/health/cache", http.HandlerFunc(s.cacheHealth)))
	if s.deps.Health != nil {
		health.Register(r, s.deps.Health)
	}
	if s.deps.MetricsHandler != nil {
		r.Handle("/internal/metrics", s.deps.MetricsHandler)
	}

	r.Route("/obj-det", func(r chi.Router) {
		r.Post("/predictImage", s.protected("obj_det", "classify", "/obj-det/predictImage", s.classify))
		r.Post("/inpaint", s.protected("obj_det", "inpaint", "/obj-det/inpaint", s.inpaint))
		r.Get("/health", s.protected("obj_det", "health", "/obj-det/health", s.imageHealth))
	})

	r.Route("/ts-model", func(r chi.Router) {
		r.Get("/forecast", s.protected("ts_model", "forecast", "/ts-model/forecast", s.forecast))
		r.Get("/history", s.protected("ts_model", "history", "/ts-model/history", s.history))
		r.Get("/metrics", s.protected("ts_model", "metrics", "/ts-model/metrics", s.modelMetrics))
		r.Get("/health", s.protected("ts_model", "health", "/ts-model/health", s.forecastHealth))
		r.Get("/report-defaults", s.protected("ts_model", "report_defaults", "/ts-model/report-defaults", s.reportDefaults))
		r.Get("/report-stream", s.protected("ts_model", "report_stream", "/ts-model/report-stream", s.reportStream))
		r.Post("/generate-pdf", s.protected("ts_model", "generate_pdf", "/ts-model/generate-pdf", s.generatePDF))
	})

	r.Route("/order-model", func(r chi.Router) {
		r.Post("/predict-reorder", s.protected("order_model", "predict_reorder", "/order-model/predict-reorder", s.predictReorder))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.protected("users", "create", "/users", s.createUser))
		r.Put("/{username}", s.protected("users", "update", "/users/{username}", s.updateUser))
		r.Delete("/{username}", s.protected("users", "delete", "/users/{username}", s.deleteUser))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// protected wraps h with observation, recovery and authentication.
func (s *Server) protected(group, name, route string, h handlerFunc) http.HandlerFunc {
	inner := s.reqAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}))
	return s.open(group, name, route, inner)
}

func (s *Server) open(group, name, route string, h http.Handler) http.HandlerFunc {
	op := observe.Operation{Group: group, Name: name, Route: route}
	return s.obs.Handler(op, s.recoverer(h)).ServeHTTP
}

func (s *Server) cacheHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"cache_status": "down"})
		return
	}
	if p, ok := s.deps.Cache.(cache.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"cache_status": "error",
				"message":      err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"cache_status": "connected"})
}
