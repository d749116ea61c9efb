package channel

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
)

type natsChannel struct {
	nc      *nats.Conn
	subject string
	closed  chan struct{}
}

func subscribeNATS(url, subject string) (*natsChannel, error) {
	c := &natsChannel{subject: subject, closed: make(chan struct{})}
	nc, err := nats.Connect(url,
		nats.Name("live-map"),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("nats connection closed")
			close(c.closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	log.Printf("nats connection opened: %s subject=%s", nc.ConnectedUrlRedacted(), subject)
	c.nc = nc
	return c, nil
}

func (c *natsChannel) Run(ctx context.Context, out chan<- []byte) error {
	fwd := newForwarder(out)
	defer fwd.stop()
	sub, err := c.nc.Subscribe(c.subject, func(m *nats.Msg) {
		fwd.deliver(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", c.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrClosed
	}
}

// forwarder hands subscription callbacks to out. Once stop returns no
// callback is sending on out, so the caller may close it.
type forwarder struct {
	out  chan<- []byte
	done chan struct{}

	mu      sync.RWMutex
	stopped bool
}

func newForwarder(out chan<- []byte) *forwarder {
	return &forwarder{out: out, done: make(chan struct{})}
}

func (f *forwarder) deliver(ctx context.Context, data []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.stopped {
		return
	}
	select {
	case f.out <- data:
	case <-ctx.Done():
	case <-f.done:
	}
}

// stop releases blocked callbacks and waits for them to return.
func (f *forwarder) stop() {
	close(f.done)
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (c *natsChannel) Close() error {
	c.nc.Close()
	return nil
}
