package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn adapts a gorilla connection to connection.Conn. Reads must come from
// a single goroutine; writes and Close are safe from any goroutine.
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *logrus.Entry

	mutex     sync.Mutex // Serializes writes
	closeOnce sync.Once
	closeErr  error
}

// ReadMessage blocks until the next data frame. A normal or going-away close
// from the peer is reported as connection.ErrClosed.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.Debugf("Peer closed connection: %v", err)
			return nil, connection.ErrClosed
		}
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	return message, nil
}
