package relay

import (
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// NATSPublisher publishes every batch on one subject. It reconnects on its
// own; publishes during an outage are buffered by the client.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	metrics PublisherMetrics
}

func NewNATSPublisher(url, subject, name string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	log.Printf("nats publisher connected: %s subject=%s", nc.ConnectedUrlRedacted(), subject)
	return &NATSPublisher{nc: nc, subject: subject, metrics: m}, nil
}

func (p *NATSPublisher) Publish(payload []byte) error {
	err := p.nc.Publish(p.subject, payload)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}
