package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisInsight/internal/app/pipeline"
	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Pipeline is what the HTTP layer needs from the query pipeline.
type Pipeline interface {
	Handle(ctx context.Context, req pipeline.Request) domain.AnalysisResult
	Classify(query string) (classifier.Classification, domain.Tier)
}

type Config struct {
	Addr           string        `yaml:"addr" env:"AEGIS_HTTP_ADDR, overwrite"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AEGIS_HTTP_REQUEST_TIMEOUT, overwrite"`
}

// Server exposes the pipeline over JSON.
type Server struct {
	pipe     Pipeline
	gatherer prometheus.Gatherer
	log      *zap.Logger
	clock    func() time.Time
	cfg      Config
}

func NewServer(pipe Pipeline, gatherer prometheus.Gatherer, log *zap.Logger, cfg Config) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("pipeline is required")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Server{pipe: pipe, gatherer: gatherer, log: log, clock: time.Now, cfg: cfg}, nil
}

// Routes builds the chi router wrapped in otelhttp.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/classify", s.handleClassify)
	})

	return otelhttp.NewHandler(r, "aegis-insight")
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
