package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campaign_feed/internal/domain"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

// handleStream upgrades to a websocket and forwards every feed event as a
// JSON text frame until the client goes away. Clients that fall behind lose
// events rather than stall the bus.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed remote=%s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	events := s.stream.Subscribe(id)
	defer s.stream.Unsubscribe(id)
	s.logger.Printf("stream client connected id=%s remote=%s", id, r.RemoteAddr)
	if err := s.stream.SendTo(id, domain.FeedEvent{Type: domain.FeedSync, Tick: s.engine.Status().Tick}); err != nil {
		s.logger.Printf("stream sync failed id=%s: %v", id, err)
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			s.logger.Printf("stream client disconnected id=%s", id)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Printf("stream write failed id=%s: %v", id, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
