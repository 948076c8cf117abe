package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/countdown"
	"github.com/satforge/exam-engine/internal/middleware"
	"github.com/satforge/exam-engine/internal/response"
	"github.com/satforge/exam-engine/internal/session"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// clockEvent is one server→client frame on the clock stream.
type clockEvent struct {
	Event    string `json:"event"` // "tick" or "expired"
	TimeLeft int    `json:"time_left"`
}

// ClockHandler streams the module countdown over WebSocket. The connection
// is the view mount: connecting attaches the view to the student's clock
// and starts ticking, disconnecting detaches it. With no connection open
// the clock stands still; away time is not charged.
type ClockHandler struct {
	registry *session.Registry
	clocks   *countdown.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewClockHandler creates a new ClockHandler.
func NewClockHandler(registry *session.Registry, clocks *countdown.Manager, log zerolog.Logger, allowedOrigins []string) *ClockHandler {
	return &ClockHandler{
		registry: registry,
		clocks:   clocks,
		log:      log.With().Str("component", "clock_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/exam/clock
// Upgrades to WebSocket and pushes one tick event per second while the
// module clock runs. Expiry is announced but triggers nothing server-side;
// the client decides when to call the submit path.
func (h *ClockHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	store := h.registry.ForStudent(c.Request.Context(), claims.UserID)
	clock := h.clocks.ForStudent(claims.UserID, store)

	ticks, detach := clock.Attach()
	defer detach()

	// Reader goroutine: the client never sends meaningful frames, but the
	// read pump is what detects the close handshake and network drops.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current value immediately so the client renders the clock
	// without waiting for the first tick.
	view := store.View()
	if err := conn.WriteJSON(clockEvent{Event: "tick", TimeLeft: view.TimeLeft}); err != nil {
		return
	}

	expired := view.TimeLeft == 0
	for {
		select {
		case <-done:
			return
		case remaining, ok := <-ticks:
			if !ok {
				return
			}
			event := clockEvent{Event: "tick", TimeLeft: remaining}
			if remaining > 0 {
				expired = false
			} else if !expired {
				event.Event = "expired"
				expired = true
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
