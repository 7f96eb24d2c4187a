package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/courtside/internal/domain"
)

// Fetcher reads the five collections that make up a snapshot.
type Fetcher interface {
	FetchVenues(ctx context.Context) ([]domain.Venue, error)
	FetchTimeSlots(ctx context.Context) ([]string, error)
	FetchBookings(ctx context.Context) ([]BookingRecord, error)
	FetchMessages(ctx context.Context) ([]domain.Message, error)
	FetchUsers(ctx context.Context) ([]domain.User, error)
}

// Commander issues the mutating calls. Successful calls return no data: the
// resulting change arrives through the push channel.
type Commander interface {
	Login(ctx context.Context, req LoginRequest) error
	CreateBooking(ctx context.Context, req BookingRequest) error
	CancelBooking(ctx context.Context, req CancelRequest) error
	CreateVenue(ctx context.Context, req VenueRequest) error
	UpdateVenue(ctx context.Context, req VenueRequest) error
	DeleteVenue(ctx context.Context, name string) error
	CreateUser(ctx context.Context, req UserRequest) error
	DeleteUser(ctx context.Context, username string) error
	CreateMessage(ctx context.Context, req MessageRequest) error
	DeleteMessage(ctx context.Context, id domain.MessageID) error
}

var (
	_ Fetcher   = (*Client)(nil)
	_ Commander = (*Client)(nil)
)

// Client talks to the booking service's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	clientID  string
}

const (
	DefaultServer    = "127.0.0.1:3001"
	defaultUserAgent = "courtside/0.1"
	requestTimeout   = 15 * time.Second
	maxErrorBody     = 4 << 10
)

// NewClient builds a Client for a host:port or URL.
func NewClient(server string) (*Client, error) {
	base, err := parseBaseURL(server)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		clientID:  uuid.NewString(),
	}, nil
}

// BaseURL returns a copy of the server root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// ClientID identifies this process to the server and in logs.
func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) FetchVenues(ctx context.Context) ([]domain.Venue, error) {
	var payload []VenueRecord
	if err := c.do(ctx, http.MethodGet, "/api/venues", nil, &payload); err != nil {
		return nil, err
	}
	venues := make([]domain.Venue, 0, len(payload))
	for _, r := range payload {
		venues = append(venues, r.Venue())
	}
	return venues, nil
}

func (c *Client) FetchTimeSlots(ctx context.Context) ([]string, error) {
	var payload []string
	if err := c.do(ctx, http.MethodGet, "/api/time-slots", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) FetchBookings(ctx context.Context) ([]BookingRecord, error) {
	var payload []BookingRecord
	if err := c.do(ctx, http.MethodGet, "/api/bookings", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) FetchMessages(ctx context.Context) ([]domain.Message, error) {
	var payload []domain.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) FetchUsers(ctx context.Context) ([]domain.User, error) {
	var payload []UserRecord
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &payload); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(payload))
	for _, r := range payload {
		users = append(users, r.User())
	}
	return users, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) error {
	return c.do(ctx, http.MethodPost, "/api/login", req, nil)
}

func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) error {
	return c.do(ctx, http.MethodPost, "/api/booking", req, nil)
}

func (c *Client) CancelBooking(ctx context.Context, req CancelRequest) error {
	return c.do(ctx, http.MethodDelete, "/api/booking", req, nil)
}

func (c *Client) CreateVenue(ctx context.Context, req VenueRequest) error {
	req.OriginalName = ""
	return c.do(ctx, http.MethodPost, "/api/venue", req, nil)
}

// UpdateVenue sends a PUT; an empty OriginalName means the venue keeps its
// name.
func (c *Client) UpdateVenue(ctx context.Context, req VenueRequest) error {
	if req.OriginalName == "" {
		req.OriginalName = req.Name
	}
	return c.do(ctx, http.MethodPut, "/api/venue", req, nil)
}

func (c *Client) DeleteVenue(ctx context.Context, name string) error {
	return c.doURL(ctx, http.MethodDelete, keyPath("/api/venue/", name), nil, nil)
}

func (c *Client) CreateUser(ctx context.Context, req UserRequest) error {
	return c.do(ctx, http.MethodPost, "/api/user", req, nil)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.doURL(ctx, http.MethodDelete, keyPath("/api/user/", username), nil, nil)
}

func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) error {
	return c.do(ctx, http.MethodPost, "/api/message", req, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, id domain.MessageID) error {
	return c.doURL(ctx, http.MethodDelete, keyPath("/api/message/", id.String()), nil, nil)
}

func keyPath(prefix, key string) *url.URL {
	return &url.URL{Path: prefix + key, RawPath: prefix + url.PathEscape(key)}
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)
	op := method + " " + rel.Path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Client-ID", c.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return &TransportError{Op: op, Err: fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &RejectedError{Path: rel.Path, Status: resp.StatusCode, Reason: readReason(resp.Body)}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readReason extracts the server's explanation from an error body, which is
// usually {"error": "..."} but may be plain text.
func readReason(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		return strings.TrimSpace(body.Error)
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(server string) (*url.URL, error) {
	trimmed := strings.TrimSpace(server)
	if trimmed == "" {
		trimmed = DefaultServer
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server %q: %w", server, err)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
