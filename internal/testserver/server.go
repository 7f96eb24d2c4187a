// Package testserver runs an in-process, authoritative booking service for
// integration tests. It enforces capacity, answers the REST endpoints the
// client uses and broadcasts every accepted change over /ws.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
	"github.com/five82/courtside/internal/state"
)

// Seed is the initial server state.
type Seed struct {
	Venues    []domain.Venue
	TimeSlots []string
	Bookings  []domain.Booking
	Messages  []domain.Message
	Users     []domain.User
}

// Server holds the authoritative state. Every mutation and the broadcast it
// triggers happen under one lock, so all clients see changes in the same
// order.
type Server struct {
	mu        sync.Mutex
	venues    []domain.Venue
	slots     []string
	bookings  []domain.Booking
	messages  []domain.Message
	users     []domain.User
	nextMsgID domain.MessageID
	clients   map[*client]struct{}
	refuseWS  bool
	now       func() time.Time

	upgrader websocket.Upgrader
	http     *httptest.Server
}

// New starts a server seeded with seed. Close it when done.
func New(seed Seed) *Server {
	s := &Server{
		venues:   slices.Clone(seed.Venues),
		slots:    slices.Clone(seed.TimeSlots),
		bookings: slices.Clone(seed.Bookings),
		messages: slices.Clone(seed.Messages),
		users:    slices.Clone(seed.Users),
		clients:  make(map[*client]struct{}),
		now:      time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, m := range s.messages {
		s.nextMsgID = max(s.nextMsgID, m.ID)
	}
	s.http = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	router := httprouter.New()
	router.GET("/api/venues", s.handleVenues)
	router.GET("/api/time-slots", s.handleTimeSlots)
	router.GET("/api/bookings", s.handleBookings)
	router.GET("/api/messages", s.handleMessages)
	router.GET("/api/users", s.handleUsers)
	router.POST("/api/login", s.handleLogin)
	router.POST("/api/booking", s.handleCreateBooking)
	router.DELETE("/api/booking", s.handleCancelBooking)
	router.POST("/api/venue", s.handleCreateVenue)
	router.PUT("/api/venue", s.handleUpdateVenue)
	router.DELETE("/api/venue/:name", s.handleDeleteVenue)
	router.POST("/api/user", s.handleCreateUser)
	router.DELETE("/api/user/:username", s.handleDeleteUser)
	router.POST("/api/message", s.handleCreateMessage)
	router.DELETE("/api/message/:id", s.handleDeleteMessage)
	router.GET("/ws", s.handleWS)
	return router
}

// URL is the server root, suitable for api.NewClient.
func (s *Server) URL() string {
	return s.http.URL
}

// Close disconnects every client and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.http.Close()
}

// Snapshot returns the authoritative state in the client's snapshot shape.
func (s *Server) Snapshot() state.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := lo.Map(s.bookings, func(b domain.Booking, _ int) api.BookingRecord {
		return api.BookingRecord{VenueName: b.VenueName, TimeSlot: b.TimeSlot, Username: b.Username, SkillLevel: string(b.SkillLevel)}
	})
	return state.Snapshot{
		Venues:    slices.Clone(s.venues),
		TimeSlots: slices.Clone(s.slots),
		Bookings:  api.GroupBookings(rows),
		Messages:  slices.Clone(s.messages),
		Users:     slices.Clone(s.users),
	}
}

// BookedUsers lists who holds (venue, slot), in booking order.
func (s *Server) BookedUsers(venue, slot string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.FilterMap(s.bookings, func(b domain.Booking, _ int) (string, bool) {
		return b.Username, b.VenueName == venue && b.TimeSlot == slot
	})
}

func (s *Server) handleVenues(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// is_open comes back as 0/1, the way the production database stores it.
	out := lo.Map(s.venues, func(v domain.Venue, _ int) map[string]any {
		return map[string]any{"name": v.Name, "capacity": v.Capacity, "is_open": lo.Ternary(v.IsOpen, 1, 0)}
	})
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleTimeSlots(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, lo.Ternary(s.slots == nil, []string{}, s.slots))
}

func (s *Server) handleBookings(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Map(s.bookings, func(b domain.Booking, _ int) api.BookingRecord {
		return api.BookingRecord{VenueName: b.VenueName, TimeSlot: b.TimeSlot, Username: b.Username, SkillLevel: string(b.SkillLevel)}
	})
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMessages(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, lo.Ternary(s.messages == nil, []domain.Message{}, s.messages))
}

func (s *Server) handleUsers(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Map(s.users, func(u domain.User, _ int) map[string]any {
		return map[string]any{"username": u.Username, "skill_level": string(u.SkillLevel), "is_admin": u.IsAdmin}
	})
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.LoginRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := lo.Find(s.users, func(u domain.User) bool { return u.Username == req.Username }); !ok {
		u := domain.User{Username: req.Username, SkillLevel: domain.SkillBeginner, IsAdmin: req.IsAdmin}
		s.users = append(s.users, u)
		s.broadcastLocked(event.UserUpdate{Action: event.NewUser, Username: u.Username, SkillLevel: u.SkillLevel, IsAdmin: u.IsAdmin})
	}
	respondJSON(w, http.StatusOK, map[string]any{"username": req.Username, "isAdmin": req.IsAdmin})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.BookingRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if req.VenueName == "" || req.TimeSlot == "" || req.Username == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	venue, ok := lo.Find(s.venues, func(v domain.Venue) bool { return v.Name == req.VenueName })
	switch {
	case !ok:
		respondError(w, http.StatusNotFound, "Venue not found")
		return
	case !venue.IsOpen:
		respondError(w, http.StatusForbidden, "Venue is closed")
		return
	case !slices.Contains(s.slots, req.TimeSlot):
		respondError(w, http.StatusBadRequest, "Invalid time slot")
		return
	}
	held := lo.Filter(s.bookings, func(b domain.Booking, _ int) bool {
		return b.VenueName == req.VenueName && b.TimeSlot == req.TimeSlot
	})
	if lo.ContainsBy(held, func(b domain.Booking) bool { return b.Username == req.Username }) {
		respondError(w, http.StatusConflict, "You have already booked this time slot")
		return
	}
	if len(held) >= venue.EffectiveCapacity() {
		respondError(w, http.StatusConflict, "Time slot is full")
		return
	}

	b := domain.Booking{VenueName: req.VenueName, TimeSlot: req.TimeSlot, Username: req.Username, SkillLevel: req.SkillLevel}
	s.bookings = append(s.bookings, b)
	s.broadcastLocked(event.BookingUpdate{
		Action:     event.NewBooking,
		VenueName:  b.VenueName,
		TimeSlot:   b.TimeSlot,
		Username:   b.Username,
		SkillLevel: b.SkillLevel,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CancelRequest
	if !parseJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(b domain.Booking) bool {
		return b.VenueName == req.VenueName && b.TimeSlot == req.TimeSlot && b.Username == req.Username
	}
	if !lo.ContainsBy(s.bookings, match) {
		respondError(w, http.StatusNotFound, "Booking not found")
		return
	}
	s.bookings = lo.Reject(s.bookings, func(b domain.Booking, _ int) bool { return match(b) })
	s.broadcastLocked(event.BookingUpdate{
		Action:    event.CancelBooking,
		VenueName: req.VenueName,
		TimeSlot:  req.TimeSlot,
		Username:  req.Username,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateVenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.VenueRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Venue name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := lo.Find(s.venues, func(v domain.Venue) bool { return v.Name == req.Name }); ok {
		respondError(w, http.StatusConflict, "Venue already exists")
		return
	}
	v := domain.Venue{Name: req.Name, Capacity: req.Capacity, IsOpen: req.IsOpen}
	v.Capacity = v.EffectiveCapacity()
	s.venues = append(s.venues, v)
	s.broadcastLocked(event.VenueUpdate{Action: event.NewVenue, Name: v.Name, Capacity: v.Capacity, IsOpen: v.IsOpen})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUpdateVenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.VenueRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if req.OriginalName != "" && req.OriginalName != req.Name {
		respondError(w, http.StatusBadRequest, "Venue names cannot be changed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(s.venues, func(v domain.Venue) bool { return v.Name == req.Name })
	if !ok {
		respondError(w, http.StatusNotFound, "Venue not found")
		return
	}
	v := domain.Venue{Name: req.Name, Capacity: req.Capacity, IsOpen: req.IsOpen}
	v.Capacity = v.EffectiveCapacity()
	s.venues[idx] = v
	s.broadcastLocked(event.VenueUpdate{Action: event.UpdateVenue, Name: v.Name, Capacity: v.Capacity, IsOpen: v.IsOpen})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteVenue(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := lo.Find(s.venues, func(v domain.Venue) bool { return v.Name == name }); !ok {
		respondError(w, http.StatusNotFound, "Venue not found")
		return
	}
	s.venues = lo.Reject(s.venues, func(v domain.Venue, _ int) bool { return v.Name == name })
	s.bookings = lo.Reject(s.bookings, func(b domain.Booking, _ int) bool { return b.VenueName == name })
	s.broadcastLocked(event.VenueUpdate{Action: event.DeleteVenue, Name: name})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.UserRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := lo.Find(s.users, func(u domain.User) bool { return u.Username == req.Username }); ok {
		respondError(w, http.StatusConflict, "User already exists")
		return
	}
	u := domain.User{Username: req.Username, SkillLevel: req.SkillLevel, IsAdmin: req.IsAdmin}
	s.users = append(s.users, u)
	s.broadcastLocked(event.UserUpdate{Action: event.NewUser, Username: u.Username, SkillLevel: u.SkillLevel, IsAdmin: u.IsAdmin})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	username := ps.ByName("username")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := lo.Find(s.users, func(u domain.User) bool { return u.Username == username }); !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	s.users = lo.Reject(s.users, func(u domain.User, _ int) bool { return u.Username == username })
	s.bookings = lo.Reject(s.bookings, func(b domain.Booking, _ int) bool { return b.Username == username })
	s.broadcastLocked(event.UserUpdate{Action: event.DeleteUser, Username: username})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.MessageRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Author) == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Author and text are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	m := domain.Message{ID: s.nextMsgID, Author: req.Author, Text: req.Text, CreatedAt: s.now().UTC().Truncate(time.Second)}
	s.messages = append([]domain.Message{m}, s.messages...)
	s.broadcastLocked(event.MessageUpdate{Action: event.NewMessage, ID: m.ID, Message: m})
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, err := domain.ParseMessageID(ps.ByName("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid message id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lo.ContainsBy(s.messages, func(m domain.Message) bool { return m.ID == id }) {
		respondError(w, http.StatusNotFound, "Message not found")
		return
	}
	s.messages = lo.Reject(s.messages, func(m domain.Message, _ int) bool { return m.ID == id })
	s.broadcastLocked(event.MessageUpdate{Action: event.DeleteMessage, ID: id})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
