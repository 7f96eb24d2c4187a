package session

import (
	"context"

	"github.com/five82/courtside/internal/event"
	"github.com/five82/courtside/internal/push"
)

// Stream is one live push connection.
type Stream interface {
	ReadEvent() (event.Event, error)
	Send(name string, data any) error
	Close() error
}

// Transport opens push connections.
type Transport interface {
	Dial(ctx context.Context) (Stream, error)
}

// PushTransport adapts a push.Dialer.
func PushTransport(d *push.Dialer) Transport {
	return pushTransport{d: d}
}

type pushTransport struct {
	d *push.Dialer
}

func (p pushTransport) Dial(ctx context.Context) (Stream, error) {
	conn, err := p.d.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
