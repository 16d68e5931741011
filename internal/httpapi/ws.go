package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// subscriberBuffer bounds how many undelivered events a slow client may
// accumulate before further events are dropped for that client.
const subscriberBuffer = 16

type subscriber struct {
	userID string
	events chan course.ProgressEvent
}

// Hub fans ledger events out to websocket subscribers. It implements the
// progress notifier contract: NotifyProgress never blocks.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
	}
}

// NotifyProgress delivers the event to every subscriber of the user. Events
// for slow subscribers are dropped rather than blocking the ledger write
// path.
func (h *Hub) NotifyProgress(userID string, ev course.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			h.logger.Warn("dropping progress event for slow subscriber", "user_id", userID)
		}
	}
}

func (h *Hub) subscribe(userID string) *subscriber {
	sub := &subscriber{
		userID: userID,
		events: make(chan course.ProgressEvent, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// handleProgressWS upgrades the connection and streams the caller's ledger
// events until the client disconnects.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sub := s.hub.subscribe(userID)
	defer s.hub.unsubscribe(sub)

	// The client only listens; reads are drained to surface disconnects.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case ev := <-sub.events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}
