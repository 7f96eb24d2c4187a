package testserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"github.com/five82/courtside/internal/event"
)

const writeWait = 2 * time.Second

type client struct {
	conn     *websocket.Conn
	username string
	isAdmin  bool
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	refuse := s.refuseWS
	s.mu.Unlock()
	if refuse {
		respondError(w, http.StatusServiceUnavailable, "Not accepting connections")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var env event.Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		s.handleInbound(c, env)
	}

	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		if c.username != "" {
			s.broadcastLocked(event.UserActivity{
				Action:     event.UserLeft,
				Username:   c.username,
				IsAdmin:    c.isAdmin,
				TotalUsers: s.onlineLocked(),
				HasTotal:   true,
			})
			s.broadcastLocked(event.ConnectedUsers{Users: s.identitiesLocked()})
		}
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) handleInbound(c *client, env event.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	switch env.Event {
	case event.NameUserLogin:
		var p event.LoginPayload
		if json.Unmarshal(env.Data, &p) != nil || p.Username == "" {
			return
		}
		c.username = p.Username
		c.isAdmin = p.IsAdmin
		s.broadcastLocked(event.UserActivity{
			Action:     event.UserJoined,
			Username:   p.Username,
			IsAdmin:    p.IsAdmin,
			TotalUsers: s.onlineLocked(),
			HasTotal:   true,
		})
		s.broadcastLocked(event.ConnectedUsers{Users: s.identitiesLocked()})
	case event.NameAdminAction:
		if !c.isAdmin {
			return
		}
		var p event.AdminActionPayload
		if json.Unmarshal(env.Data, &p) != nil {
			return
		}
		s.broadcastLocked(event.AdminActivity{Type: p.Type, Admin: c.username, Data: p.Data})
	}
}

// Emit broadcasts ev to every connected client without touching server
// state, for injecting duplicates and out-of-order deliveries.
func (s *Server) Emit(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(ev)
}

// DropConnections closes every websocket, as a network partition would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, c)
	}
}

// RefuseConnections makes /ws answer 503 until called with false.
func (s *Server) RefuseConnections(refuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuseWS = refuse
}

// ConnectionCount reports open websockets.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// LoggedIn reports whether a connected client has announced username.
func (s *Server) LoggedIn(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.ContainsBy(lo.Keys(s.clients), func(c *client) bool { return c.username == username })
}

func (s *Server) onlineLocked() int {
	return len(s.identitiesLocked())
}

func (s *Server) identitiesLocked() []event.Identity {
	ids := make([]event.Identity, 0, len(s.clients))
	for c := range s.clients {
		if c.username != "" {
			ids = append(ids, event.Identity{Username: c.username, IsAdmin: c.isAdmin})
		}
	}
	return ids
}

func (s *Server) broadcastLocked(ev event.Event) {
	env, err := event.Encode(ev)
	if err != nil {
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	for c := range s.clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			_ = c.conn.Close()
			delete(s.clients, c)
		}
	}
}
