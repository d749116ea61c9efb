package channel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

type wsChannel struct {
	url  string
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, url string) (*wsChannel, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Printf("websocket connection opened: %s", url)
	return &wsChannel{url: url, conn: conn}, nil
}

func (c *wsChannel) Run(ctx context.Context, out chan<- []byte) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("websocket connection closed: %s: %v", c.url, err)
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case out <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *wsChannel) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
