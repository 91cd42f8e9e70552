// Package dashboard serves the forecast, explore and stock dashboards over HTTP
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/dashcast/dashcast/internal/config"
	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/stocks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// PriceSource fetches daily stock prices
type PriceSource interface {
	HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]stocks.Price, error)
}

// Config holds the dependencies of the server
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	Engine   *pipeline.Engine
	Prices   PriceSource
	Registry *prometheus.Registry

	// Now is the clock used to label forecast rows. Defaults to time.Now.
	Now func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	cfg     *config.Config
	engine  *pipeline.Engine
	prices  PriceSource
	metrics *Metrics
	pages   *pages
	now     func() time.Time
}

// New creates a new HTTP server
func New(cfg Config) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Engine == nil {
		engine, err := pipeline.NewEngine(cfg.Config.ForecasterOptions())
		if err != nil {
			return nil, err
		}
		cfg.Engine = engine
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "dashboard").Logger(),
		cfg:     cfg.Config,
		engine:  cfg.Engine,
		prices:  cfg.Prices,
		metrics: NewMetrics(cfg.Registry),
		pages:   p,
		now:     cfg.Now,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.Registry)

	s.server = &http.Server{
		Addr:         cfg.Config.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Config.Server.ReadTimeout,
		WriteTimeout: cfg.Config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	if s.cfg.Server.WriteTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.WriteTimeout))
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if !s.cfg.Server.DevMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler(reg))

	s.router.Route("/forecast", func(r chi.Router) {
		r.Get("/", s.handleForecastForm)
		r.Post("/", s.handleForecast)
	})
	s.router.Route("/api/forecast", func(r chi.Router) {
		r.Post("/", s.handleForecastAPI)
		r.Post("/export", s.handleForecastExport)
	})
	s.router.Route("/explore", func(r chi.Router) {
		r.Get("/", s.handleExploreForm)
		r.Post("/", s.handleExplore)
		r.Post("/export", s.handleExploreExport)
	})
	s.router.Route("/stocks", func(r chi.Router) {
		r.Get("/", s.handleStocks)
		r.Get("/export", s.handleStocksExport)
	})
}

// ServeHTTP lets the server be used as a handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records the request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.observeRequest(route, ww.Status(), time.Since(start))

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
