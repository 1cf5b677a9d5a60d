package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/ports"
)

// StateReader exposes the cached per-site state.
type StateReader interface {
	Snapshot() []domain.SiteState
}

// Scraper runs an on-demand scrape cycle.
type Scraper interface {
	Trigger(ctx context.Context) ([]domain.SiteState, error)
}

// Deps groups what the router needs. Scraper, Limiter and Metrics are optional.
type Deps struct {
	State      StateReader
	Repository ports.PriceRepository
	Scraper    Scraper
	Limiter    *rate.Limiter
	Metrics    http.Handler
	Logger     *slog.Logger
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	h := &handler{
		state:   deps.State,
		repo:    deps.Repository,
		scraper: deps.Scraper,
		limiter: deps.Limiter,
		logger:  deps.Logger,
	}

	r.GET("/healthz", h.health)
	r.GET("/prices", h.prices)
	r.GET("/price-history", h.priceHistory)
	r.GET("/price-history-paginated", h.priceHistoryPaginated)
	r.GET("/price-history-recent", h.priceHistoryRecent)
	r.POST("/scrape", h.scrape)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	return r
}

// Server owns the HTTP listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer wraps handler in an http.Server bound to addr.
func NewServer(addr string, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Info("http server listening", "addr", s.srv.Addr)
		}
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
