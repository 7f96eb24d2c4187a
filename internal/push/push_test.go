package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/event"
)

func TestEndpointURL(t *testing.T) {
	cases := map[string]string{
		"http://127.0.0.1:3001":       "ws://127.0.0.1:3001/ws",
		"https://courts.example.com/": "wss://courts.example.com/ws",
	}
	for in, want := range cases {
		u, err := url.Parse(in)
		require.NoError(t, err)
		require.Equal(t, want, EndpointURL(u))
	}
}

func TestConn_SkipsUnknownFramesAndSends(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan event.Envelope, 1)
	var gotClientID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path {
			http.NotFound(w, r)
			return
		}
		gotClientID = r.Header.Get("X-Client-ID")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"weather_update","data":{}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"booking_update","data":{"type":"teleport_booking"}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected_users","data":["alice","bob"]}`))

		var env event.Envelope
		if err := conn.ReadJSON(&env); err == nil {
			received <- env
		}
		// Wait for the client to go away.
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(server.Close)

	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	d := NewDialer(base, "client-1", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NotEmpty(t, conn.ID())

	ev, err := conn.ReadEvent()
	require.NoError(t, err)
	users, ok := ev.(event.ConnectedUsers)
	require.True(t, ok, "got %T", ev)
	require.Equal(t, 2, users.Count())

	require.NoError(t, conn.Send(event.NameUserLogin, event.LoginPayload{Username: "alice"}))
	select {
	case env := <-received:
		require.Equal(t, event.NameUserLogin, env.Event)
		require.JSONEq(t, `{"username":"alice","isAdmin":false}`, string(env.Data))
	case <-ctx.Done():
		t.Fatal("server never received user_login")
	}
	require.Equal(t, "client-1", gotClientID)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}

func TestConn_ReadEventReportsTransportFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(server.Close)

	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	conn, err := NewDialer(base, "", nil).Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.ReadEvent()
	require.Error(t, err)
}
