package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/liveset/pkg/live"
	"golang.org/x/net/html"
)

// handleStream upgrades to a WebSocket and sends a snapshot of the set
// after every membership change until the set is disposed or the client
// goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		set   *live.Set
		found bool
	)
	if !s.do(w, r, func() { set, found = s.reg.Lookup(id) }) {
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, unknownSet(id))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Warn("websocket upgrade failed", "set", id, "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan Snapshot, 1)
	completed := make(chan struct{})
	var once sync.Once

	var unsubscribe func()
	err = s.loop.Do(r.Context(), func() {
		unsubscribe = set.Subscribe(live.Subscriber[[]*html.Node]{
			Next: func(nodes []*html.Node) func() {
				offer(updates, TakeSnapshot(set, nodes))
				return nil
			},
			Error: func(err error) {
				s.logger.Warn("set reported an error", "set", id, "error", err)
			},
			Complete: func() {
				once.Do(func() { close(completed) })
			},
		})
	})
	if err != nil {
		return
	}
	defer s.loop.Post(unsubscribe)

	s.logger.Debug("stream opened", "set", id, "remote", r.RemoteAddr)
	gone := readUntilClosed(conn)

	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("stream write failed", "set", id, "error", err)
				return
			}

		case <-ping.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-completed:
			// Flush the final membership before closing.
			select {
			case snap := <-updates:
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				conn.WriteJSON(snap)
			default:
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "set disposed")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteTimeout))
			return

		case <-gone:
			s.logger.Debug("stream closed by client", "set", id)
			return

		case <-r.Context().Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteTimeout))
			return
		}
	}
}

// offer replaces any unsent snapshot in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// readUntilClosed discards client messages and closes the returned channel
// when the connection fails or the client closes it.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return gone
}
