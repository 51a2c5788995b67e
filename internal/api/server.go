// Package api serves the hub's read endpoints, the SSE tail and the
// per-symbol websocket push channel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/broker"
	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/internal/store"
)

// Default listen ports.
const (
	DefaultHTTPPort = 6680
	DefaultWSPort   = 6681
)

// Server is the read-only HTTP surface over the EventStore.
type Server struct {
	store  *store.EventStore
	broker *broker.FanoutBroker
	server *http.Server
	logger *zap.Logger
	now    func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Now overrides the clock; tests use it. Defaults to wall clock in the
	// event zone.
	Now func() time.Time
}

// NewServer creates the HTTP server and wires its routes.
func NewServer(cfg Config, st *store.EventStore, br *broker.FanoutBroker, logger *zap.Logger) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultHTTPPort
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().In(domain.EventTZ) }
	}

	s := &Server{
		store:  st,
		broker: br,
		logger: logger.With(zap.String("server", "http")),
		now:    now,
	}

	router := mux.NewRouter()
	router.HandleFunc("/data", s.handleData).Methods(http.MethodGet)
	router.HandleFunc("/latest_liquidations", s.handleLatest).Methods(http.MethodGet)
	router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/symbol_stats", s.handleSymbolStats).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	// The CORS wrapper sits outside the router so preflight requests are
	// answered even for method-restricted routes.
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     corsMiddleware(router),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /stream is long-lived.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server stops. A bind failure is returned
// to the caller, which exits nonzero.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsMiddleware permits any origin on all endpoints.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.store.Aggregates(s.now()))
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.store.ListLatest(store.DefaultLatestLimit))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, s.store.Query(filter))
}

func (s *Server) handleSymbolStats(w http.ResponseWriter, r *http.Request) {
	symbols := domain.SymbolSet(r.URL.Query().Get("symbols"))
	s.writeJSON(w, s.store.SymbolStats(s.now(), symbols))
}

// healthEntry reports feed liveness for one exchange.
type healthEntry struct {
	LastSeen   *string  `json:"last_seen"`
	LagSeconds *float64 `json:"lag_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	lastSeen := s.store.LastSeen()

	status := make(map[domain.Exchange]healthEntry, 2)
	for _, ex := range []domain.Exchange{domain.ExchangeBinance, domain.ExchangeOKX} {
		entry := healthEntry{}
		if ts, ok := lastSeen[ex]; ok {
			formatted := ts.In(domain.EventTZ).Format(domain.TimeLayout)
			lag := now.Sub(ts).Seconds()
			entry.LastSeen = &formatted
			entry.LagSeconds = &lag
		}
		status[ex] = entry
	}
	s.writeJSON(w, status)
}
