// Package push is the client side of the server's websocket event channel.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/five82/courtside/internal/event"
)

// Path is where the server accepts websocket upgrades.
const Path = "/ws"

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// Dialer opens push connections to one server.
type Dialer struct {
	url    string
	header http.Header
	ws     *websocket.Dialer
	logger *slog.Logger
}

// NewDialer derives the websocket endpoint from the REST base URL
// (http→ws, https→wss). clientID is sent as X-Client-ID.
func NewDialer(base *url.URL, clientID string, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	header := http.Header{}
	if clientID != "" {
		header.Set("X-Client-ID", clientID)
	}
	return &Dialer{
		url:    EndpointURL(base),
		header: header,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// EndpointURL returns the websocket URL for a REST base URL.
func EndpointURL(base *url.URL) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = Path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Dial opens a connection. The returned Conn is independent of ctx once
// established; close it to stop reading.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	ws, resp, err := d.ws.DialContext(ctx, d.url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	id := uuid.NewString()
	return &Conn{
		ws:     ws,
		id:     id,
		logger: d.logger.With("conn", id),
	}, nil
}

// Conn is one push connection. ReadEvent must be called from a single
// goroutine; Send is safe for concurrent use.
type Conn struct {
	ws     *websocket.Conn
	id     string
	logger *slog.Logger

	writeMu sync.Mutex
	closed  sync.Once
}

// ID identifies the connection in logs.
func (c *Conn) ID() string {
	return c.id
}

// ReadEvent blocks until the next recognised event arrives. Frames that do
// not decode (unknown names, unknown actions, malformed payloads) are logged
// and skipped. The returned error is always a transport failure.
func (c *Conn) ReadEvent() (event.Event, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		var env event.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("malformed push frame", "error", err)
			continue
		}
		ev, err := event.Decode(env)
		if err != nil {
			if errors.Is(err, event.ErrUnknownEvent) {
				c.logger.Debug("skipping unknown event", "event", env.Event)
			} else {
				c.logger.Warn("skipping undecodable event", "event", env.Event, "error", err)
			}
			continue
		}
		return ev, nil
	}
}

// Send writes one outbound event.
func (c *Conn) Send(name string, data any) error {
	env, err := event.Outbound(name, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

// Close sends a close frame and releases the connection. Safe to call more
// than once.
func (c *Conn) Close() error {
	var err error
	c.closed.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
