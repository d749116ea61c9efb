// Package channel opens the live message channel that delivers vehicle
// batches. Reconnecting is left to the caller.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrUnsupportedTransport is returned for channel URLs whose scheme has
	// no streaming transport.
	ErrUnsupportedTransport = errors.New("unsupported transport")
	// ErrClosed is returned when the remote end closes the channel.
	ErrClosed = errors.New("channel closed")
)

// Channel is an open live channel.
type Channel interface {
	// Run delivers each message payload to out until ctx is done or the
	// channel closes. It does not close out.
	Run(ctx context.Context, out chan<- []byte) error
	Close() error
}

// Open connects to rawURL. ws:// and wss:// dial a websocket endpoint;
// nats:// subscribes to subject.
func Open(ctx context.Context, rawURL, subject string) (Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("channel url: %w", err)
	}
	var ch Channel
	switch u.Scheme {
	case "ws", "wss":
		ch, err = dialWebSocket(ctx, u.String())
	case "nats", "tls":
		ch, err = subscribeNATS(u.String(), subject)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}
