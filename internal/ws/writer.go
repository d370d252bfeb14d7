package ws

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WriteMessage sends a text frame, applying the write deadline if one is set.
func (c *Conn) WriteMessage(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	c.logger.Tracef("Writing message to WebSocket: %s", string(data))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close sends a normal-closure control frame and closes the socket. Only the
// first call has an effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mutex.Lock()
		c.logger.Trace("Sending close message through ws connection")
		err := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.mutex.Unlock()
		if err != nil && err != websocket.ErrCloseSent {
			c.logger.Debugf("Error sending close message: %v", err)
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
