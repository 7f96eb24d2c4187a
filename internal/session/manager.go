package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/clock"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
	"github.com/five82/courtside/internal/notify"
	"github.com/five82/courtside/internal/state"
)

// Status is the push connection state.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected = errors.New("not connected")
	ErrNotAdmin     = errors.New("admin privileges required")
	ErrNotLoggedIn  = errors.New("not logged in")
)

const (
	defaultCommandTimeout = 10 * time.Second
	inboxSize             = 256
)

// Options configures a Manager. Loader and Transport are required.
type Options struct {
	Store     *state.Store
	Loader    SnapshotLoader
	Transport Transport
	Commander api.Commander
	Notifier  notify.Notifier
	Clock     clock.Clock
	Logger    *slog.Logger

	// BaseBackoff is the first reconnect delay; it doubles per consecutive
	// failed dial up to 30s.
	BaseBackoff    time.Duration
	CommandTimeout time.Duration
}

// Manager owns the push connection and is the Store's only writer.
type Manager struct {
	store          *state.Store
	loader         SnapshotLoader
	transport      Transport
	commander      api.Commander
	notifier       notify.Notifier
	clock          clock.Clock
	logger         *slog.Logger
	baseBackoff    time.Duration
	commandTimeout time.Duration

	mu         sync.RWMutex
	status     Status
	identity   domain.Session
	presence   int
	stream     Stream
	generation uint64

	inbox   chan item
	changes chan struct{}
}

type itemKind int

const (
	itemConnected itemKind = iota
	itemEvent
	itemSnapshot
)

// item is one unit of work for the consumer. Every item carries the
// generation of the connection that produced it.
type item struct {
	kind itemKind
	gen  uint64
	ev   event.Event
	snap state.Snapshot
	err  error
}

func New(opts Options) *Manager {
	m := &Manager{
		store:          opts.Store,
		loader:         opts.Loader,
		transport:      opts.Transport,
		commander:      opts.Commander,
		notifier:       opts.Notifier,
		clock:          opts.Clock,
		logger:         opts.Logger,
		baseBackoff:    opts.BaseBackoff,
		commandTimeout: opts.CommandTimeout,
		inbox:          make(chan item, inboxSize),
		changes:        make(chan struct{}, 1),
	}
	if m.store == nil {
		m.store = &state.Store{}
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.baseBackoff <= 0 {
		m.baseBackoff = defaultBaseBackoff
	}
	if m.commandTimeout <= 0 {
		m.commandTimeout = defaultCommandTimeout
	}
	return m
}

// Run connects, keeps reconnecting and feeds the Store until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.consume(gctx)
		return nil
	})
	g.Go(func() error {
		m.connectLoop(gctx)
		return nil
	})
	return g.Wait()
}

// Status reports the connection state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Session returns the current identity and connection flag.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.identity
	s.Connected = m.status == Connected
	return s
}

// Presence is the server-reported number of connected users.
func (m *Manager) Presence() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presence
}

// Generation is incremented on every successful connect.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Store is the mirror this Manager writes.
func (m *Manager) Store() *state.Store {
	return m.store
}

// Changes receives a value whenever derived views should be rebuilt. Signals
// coalesce; a reader only learns that something changed.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

// Login registers the identity with the server and announces it on the push
// channel. The identity is re-announced after every reconnect.
func (m *Manager) Login(ctx context.Context, username string, isAdmin bool) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &domain.ValidationError{Fields: []string{"username"}}
	}
	if m.commander == nil {
		return errors.New("login: no command client")
	}
	ctx, cancel := context.WithTimeout(ctx, m.commandTimeout)
	defer cancel()

	if err := m.commander.Login(ctx, api.LoginRequest{Username: username, IsAdmin: isAdmin}); err != nil {
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			m.show(notify.Error, "Login failed, please retry")
		} else {
			m.show(notify.Error, "Network error, please retry")
		}
		m.logger.Warn("login failed", "username", username, "error", err)
		return fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	m.identity = domain.Session{Username: username, IsAdmin: isAdmin}
	stream := m.stream
	m.mu.Unlock()

	if stream != nil {
		m.announce(stream, username, isAdmin)
	}
	m.logger.Info("logged in", "username", username, "admin", isAdmin)
	m.show(notify.Success, fmt.Sprintf("Welcome, %s!", username))
	m.signal()
	return nil
}

// Logout forgets the identity locally.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.identity = domain.Session{}
	m.mu.Unlock()
	m.show(notify.Success, "Logged out")
	m.signal()
}

// BroadcastAdminAction tells other clients about an admin change. It is
// informational only; state changes still arrive as entity events.
func (m *Manager) BroadcastAdminAction(actionType string, data map[string]any) error {
	m.mu.RLock()
	identity, stream := m.identity, m.stream
	m.mu.RUnlock()
	switch {
	case identity.Username == "":
		return ErrNotLoggedIn
	case !identity.IsAdmin:
		return ErrNotAdmin
	case stream == nil:
		return ErrNotConnected
	}
	return stream.Send(event.NameAdminAction, event.AdminActionPayload{Type: actionType, Data: data})
}

func (m *Manager) connectLoop(ctx context.Context) {
	failures := 0
	for ctx.Err() == nil {
		m.setStatus(Connecting)
		stream, err := m.transport.Dial(ctx)
		if err != nil {
			m.setStatus(Disconnected)
			if ctx.Err() != nil {
				return
			}
			delay := calculateBackoff(failures, m.baseBackoff)
			failures++
			m.logger.Warn("push connect failed", "error", err, "attempt", failures, "retry_in", delay)
			if !m.sleep(ctx, delay) {
				return
			}
			continue
		}
		failures = 0
		m.serve(ctx, stream)
		if !m.sleep(ctx, m.baseBackoff) {
			return
		}
	}
}

// serve runs one connection until it drops.
func (m *Manager) serve(ctx context.Context, stream Stream) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { _ = stream.Close() })
	defer stop()

	gen, identity := m.attach(stream)
	logger := m.logger.With("generation", gen)
	logger.Info("push connected")
	if !m.post(ctx, item{kind: itemConnected, gen: gen}) {
		m.detach(gen)
		return
	}
	m.signal()
	if identity.Username != "" {
		m.announce(stream, identity.Username, identity.IsAdmin)
	}

	go func() {
		snap, err := m.loader.Load(connCtx)
		m.post(ctx, item{kind: itemSnapshot, gen: gen, snap: snap, err: err})
	}()

	for {
		ev, err := stream.ReadEvent()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("push connection lost", "error", err)
			}
			break
		}
		if !m.post(ctx, item{kind: itemEvent, gen: gen, ev: ev}) {
			break
		}
	}
	m.detach(gen)
	_ = stream.Close()
	m.signal()
}

func (m *Manager) attach(stream Stream) (uint64, domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.stream = stream
	m.status = Connected
	m.presence = 0
	return m.generation, m.identity
}

func (m *Manager) detach(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return
	}
	m.stream = nil
	m.status = Disconnected
}

// isLive reports whether gen is the generation of the open connection.
func (m *Manager) isLive(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation == gen && m.stream != nil
}

// dropConnection closes the connection of gen so the loop reconnects.
func (m *Manager) dropConnection(gen uint64) {
	m.mu.RLock()
	stream := m.stream
	live := m.generation == gen
	m.mu.RUnlock()
	if live && stream != nil {
		_ = stream.Close()
	}
}

func (m *Manager) announce(stream Stream, username string, isAdmin bool) {
	if err := stream.Send(event.NameUserLogin, event.LoginPayload{Username: username, IsAdmin: isAdmin}); err != nil {
		m.logger.Warn("announce identity failed", "username", username, "error", err)
	}
}

// consume is the single writer of the Store. Events that arrive while the
// connection's snapshot is loading are applied at once and replayed over the
// snapshot when it lands.
func (m *Manager) consume(ctx context.Context) {
	var (
		current uint64
		loading bool
		replay  []event.Event
	)
	for {
		var it item
		select {
		case <-ctx.Done():
			return
		case it = <-m.inbox:
		}

		switch it.kind {
		case itemConnected:
			current, loading, replay = it.gen, true, nil

		case itemEvent:
			if it.gen != current {
				m.logger.Debug("dropping event from closed connection", "event", it.ev.EventName(), "generation", it.gen)
				continue
			}
			m.handle(it.ev)
			if loading && storeEvent(it.ev) {
				replay = append(replay, it.ev)
			}

		case itemSnapshot:
			if it.gen != current || !m.isLive(it.gen) {
				m.logger.Debug("discarding stale snapshot", "generation", it.gen, "current", current)
				continue
			}
			pending := replay
			loading, replay = false, nil
			if it.err != nil {
				m.logger.Warn("snapshot load failed", "generation", it.gen, "error", it.err)
				m.show(notify.Error, "Error loading data")
				m.dropConnection(it.gen)
				continue
			}
			m.store.ReplaceAll(it.snap)
			for _, ev := range pending {
				_, _ = m.store.Apply(ev)
			}
			m.logger.Info("snapshot installed",
				"generation", it.gen,
				"venues", len(it.snap.Venues),
				"bookings", it.snap.TotalBookings(),
				"replayed", len(pending),
			)
			m.signal()
		}
	}
}

func storeEvent(ev event.Event) bool {
	switch ev.(type) {
	case event.BookingUpdate, event.VenueUpdate, event.MessageUpdate, event.UserUpdate:
		return true
	}
	return false
}

func (m *Manager) handle(ev event.Event) {
	switch e := ev.(type) {
	case event.ConnectedUsers:
		m.setPresence(e.Count())

	case event.UserActivity:
		m.mu.Lock()
		switch {
		case e.HasTotal:
			m.presence = e.TotalUsers
		case e.Action == event.UserJoined:
			m.presence++
		case m.presence > 0:
			m.presence--
		}
		self := e.Username == m.identity.Username
		m.mu.Unlock()
		m.signal()
		if self {
			return
		}
		if e.Action == event.UserJoined {
			who := e.Username
			if e.IsAdmin {
				who += " (admin)"
			}
			m.show(notify.Success, who+" joined")
		} else {
			m.show(notify.Success, e.Username+" left")
		}

	case event.AdminActivity:
		m.mu.RLock()
		self := e.Admin != "" && e.Admin == m.identity.Username
		m.mu.RUnlock()
		if !self {
			m.show(notify.Info, adminSummary(e))
		}

	default:
		changed, err := m.store.Apply(ev)
		if err != nil {
			m.logger.Warn("event rejected", "event", ev.EventName(), "error", err)
			return
		}
		if changed {
			m.signal()
		}
	}
}

func adminSummary(e event.AdminActivity) string {
	field := func(key string) string {
		if v, ok := e.Data[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	admin := "Admin " + e.Admin
	switch e.Type {
	case event.AdminVenueAdded:
		return admin + " added venue: " + field("name")
	case event.AdminVenueUpdated:
		return admin + " updated venue: " + field("name")
	case event.AdminVenueDeleted:
		return admin + " deleted venue: " + field("name")
	case event.AdminMessageAdded:
		return admin + " posted a new message"
	case event.AdminMessageDeleted:
		return admin + " deleted a message"
	case event.AdminUserAdded:
		return admin + " added user: " + field("username")
	case event.AdminUserDeleted:
		return admin + " deleted user: " + field("username")
	}
	return admin + ": " + e.Type
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	changed := m.status != s
	m.status = s
	m.mu.Unlock()
	if changed {
		m.signal()
	}
}

func (m *Manager) setPresence(n int) {
	m.mu.Lock()
	m.presence = n
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) post(ctx context.Context, it item) bool {
	select {
	case m.inbox <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-m.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Manager) show(kind notify.Kind, text string) {
	if m.notifier != nil {
		m.notifier.Show(kind, text)
	}
}
