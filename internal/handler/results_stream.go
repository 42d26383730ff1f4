package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/observability/metrics"
)

// Tallier is the part of the vote service the stream needs.
type Tallier interface {
	Today() domain.Date
	Tally(ctx context.Context, day domain.Date) ([]domain.Tally, error)
}

// ResultsFrame is one message on the live results feed.
type ResultsFrame struct {
	Date    domain.Date    `json:"date"`
	Results []domain.Tally `json:"results"`
}

// ResultsStreamHandler pushes today's tally over a websocket whenever it changes.
type ResultsStreamHandler struct {
	votes          Tallier
	interval       time.Duration
	allowedOrigins []string
	logger         *slog.Logger
}

func NewResultsStreamHandler(votes Tallier, interval time.Duration, allowedOrigins []string, logger *slog.Logger) *ResultsStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ResultsStreamHandler{
		votes:          votes,
		interval:       interval,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *ResultsStreamHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			if slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/vote/results
func (h *ResultsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	metrics.SubscriberJoined()
	defer metrics.SubscriberLeft()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends data; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.stream(ctx, ws); err != nil {
		h.logger.Debug("results stream ended", slog.String("reason", err.Error()))
	}
}

// stream sends a frame immediately, then again whenever the tally or the day
// changes. Idle connections get a ping every tick.
func (h *ResultsStreamHandler) stream(ctx context.Context, ws *websocket.Conn) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *ResultsFrame
	for {
		day := h.votes.Today()
		tallies, err := h.votes.Tally(ctx, day)
		if err != nil {
			return err
		}
		frame := &ResultsFrame{Date: day, Results: tallies}
		if last == nil || !last.Date.Equal(frame.Date) || !slices.Equal(last.Results, frame.Results) {
			_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := ws.WriteJSON(frame); err != nil {
				return err
			}
			last = frame
		} else if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
