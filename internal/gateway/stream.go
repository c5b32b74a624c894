package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// streamMessage is what the stream pushes: a report or an error banner.
type streamMessage struct {
	Type   string     `json:"type"`
	Report any        `json:"report,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

// streamRequest lets the client switch period without reconnecting.
type streamRequest struct {
	Period string `json:"period"`
}

type streamHandler struct {
	reports  Reports
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration
	upgrader websocket.Upgrader
}

func newStreamHandler(reports Reports, logger *slog.Logger, clock clockwork.Clock, interval time.Duration, allowedOrigins []string) *streamHandler {
	return &streamHandler{
		reports:  reports,
		logger:   logger,
		clock:    clock,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeHTTP upgrades the connection and pushes a sales report immediately and then
// every refresh interval until the client goes away.
func (s *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	logger := s.logger.With(slog.String("stream_id", id))
	logger.Debug("stream opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "this-month"
	}
	requests := make(chan string, 1)
	go s.readPump(ctx, cancel, conn, requests, logger)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if !s.push(ctx, conn, period, logger) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			logger.Debug("stream closed")
			return
		case next := <-requests:
			period = next
			if !s.push(ctx, conn, period, logger) {
				return
			}
		case <-ticker.Chan():
			if !s.push(ctx, conn, period, logger) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *streamHandler) push(ctx context.Context, conn *websocket.Conn, period string, logger *slog.Logger) bool {
	msg := streamMessage{Type: "sales-report"}
	report, err := s.reports.SalesReport(ctx, period)
	if err != nil {
		status, kind := httpStatus(err)
		logger.Warn("stream report failed", slog.String("period", period), slog.Int("status", status), slog.Any("error", err))
		msg = streamMessage{Type: "error", Error: &errorBody{Error: message(err), Kind: kind}}
	} else {
		msg.Report = report
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Debug("stream write failed", slog.Any("error", err))
		return false
	}
	return true
}

func (s *streamHandler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- string, logger *slog.Logger) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("stream read error", slog.Any("error", err))
			}
			return
		}
		if req.Period == "" {
			continue
		}
		select {
		case requests <- req.Period:
		case <-ctx.Done():
			return
		}
	}
}

// originChecker accepts same-origin requests, requests without an Origin header and
// any origin on the allow list ("*" allows all).
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		return false
	}
}
