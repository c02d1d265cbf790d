package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Runner produces one simulation for a request.
type Runner interface {
	Run(ctx context.Context, req model.Request) (*model.Result, error)
}

// Server serves the simulation page and its JSON API.
type Server struct {
	runner   Runner
	market   config.MarketConfig
	balance  float64
	rows     int
	logger   *zap.Logger
	router   *mux.Router
	timeout  time.Duration
	shutdown time.Duration
}

// New creates a server for runner. market and balance provide the form defaults.
func New(runner Runner, market config.MarketConfig, balance float64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:   runner,
		market:   market,
		balance:  balance,
		rows:     50,
		logger:   logger,
		timeout:  60 * time.Second,
		shutdown: 5 * time.Second,
	}
	router := mux.NewRouter()
	router.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	router.HandleFunc("/api/simulation", s.handleSimulation).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router = router
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown web server: %w", err)
		}
		s.logger.Info("web server stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRequest reads the simulation request from the query string, falling
// back to the configured defaults.
func (s *Server) parseRequest(r *http.Request) (model.Request, error) {
	q := r.URL.Query()
	req := model.Request{
		Symbol:         strings.TrimSpace(q.Get("symbol")),
		Period:         strings.TrimSpace(q.Get("period")),
		Interval:       strings.TrimSpace(q.Get("interval")),
		InitialBalance: s.balance,
	}
	if req.Symbol == "" {
		req.Symbol = s.market.Symbol
	}
	if req.Period == "" {
		req.Period = s.market.Period
	}
	if req.Interval == "" {
		req.Interval = s.market.Interval
	}
	if _, err := collector.ParsePeriod(req.Period); err != nil {
		return req, err
	}
	if _, err := collector.ParseInterval(req.Interval); err != nil {
		return req, err
	}
	if raw := strings.TrimSpace(q.Get("balance")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return req, fmt.Errorf("invalid balance %q", raw)
		}
		if v < 0 {
			return req, errors.New("initial balance must not be negative")
		}
		req.InitialBalance = v
	}
	return req, nil
}

func (s *Server) run(r *http.Request, req model.Request) (*model.Result, error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	result, err := s.runner.Run(ctx, req)
	if err != nil {
		if errors.Is(err, collector.ErrNoData) {
			s.logger.Warn("no data for request", zap.String("symbol", req.Symbol), zap.Error(err))
		} else {
			s.logger.Error("simulation failed", zap.String("symbol", req.Symbol), zap.Error(err))
		}
	}
	return result, err
}
