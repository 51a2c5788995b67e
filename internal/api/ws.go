package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/broker"
)

const (
	// wsSymbolsWait is how long a client gets to name its symbols when the
	// query string carries none.
	wsSymbolsWait = 30 * time.Second

	// wsPingInterval is the server-side keepalive cadence.
	wsPingInterval = 20 * time.Second

	// wsWriteTimeout bounds every outbound write.
	wsWriteTimeout = 10 * time.Second
)

// WSServer pushes per-symbol events to websocket clients.
type WSServer struct {
	broker   *broker.FanoutBroker
	upgrader websocket.Upgrader
	server   *http.Server
	logger   *zap.Logger
}

// NewWSServer creates the websocket push server. Path "/" and "/ws" both
// accept connections.
func NewWSServer(host string, port int, br *broker.FanoutBroker, logger *zap.Logger) *WSServer {
	if port == 0 {
		port = DefaultWSPort
	}

	s := &WSServer{
		broker: br,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(zap.String("server", "ws")),
	}

	m := http.NewServeMux()
	m.HandleFunc("/", s.handleWS)
	m.HandleFunc("/ws", s.handleWS)
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: m,
	}
	return s
}

// Handler exposes the mux, for tests.
func (s *WSServer) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server stops.
func (s *WSServer) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ws server: %w", err)
	}
	return nil
}

// Shutdown drains the server.
func (s *WSServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// symbolsMessage is the JSON form of the first-message subscription.
type symbolsMessage struct {
	Symbols string `json:"symbols"`
}

func (s *WSServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		symbols = s.awaitSymbols(conn)
	}
	if len(symbols) == 0 {
		deadline := time.Now().Add(wsWriteTimeout)
		conn.SetWriteDeadline(deadline)
		conn.WriteJSON(map[string]string{"error": "symbols required"})
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "symbols required"), deadline)
		return
	}

	sub := s.broker.Subscribe(symbols)
	defer s.broker.Unsubscribe(sub)

	s.logger.Info("client subscribed", zap.Strings("symbols", symbols))

	// Reader: client messages are ignored, they only prove liveness. Close
	// or error ends the subscription.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case e := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}

// awaitSymbols waits for the client's first message: either a plain CSV
// string or {"symbols":"BTC,ETH"}.
func (s *WSServer) awaitSymbols(conn *websocket.Conn) []string {
	conn.SetReadDeadline(time.Now().Add(wsSymbolsWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	var parsed symbolsMessage
	if err := json.Unmarshal(msg, &parsed); err == nil && parsed.Symbols != "" {
		return splitSymbols(parsed.Symbols)
	}
	return splitSymbols(string(msg))
}

func splitSymbols(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
