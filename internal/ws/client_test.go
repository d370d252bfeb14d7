package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/alejoacosta74/trading-stream/internal/ws/test"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, server *test.MockWebSocketServer) connection.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewDialer().Dial(ctx, server.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDialer_RoundTrip(t *testing.T) {
	server := test.NewMockWebSocketServer()
	defer server.Close()

	server.Greet([]byte(`{"type":"connected"}`))
	server.RegisterHandler(string(protocol.ActionPing), func([]byte) interface{} {
		return protocol.Envelope{Type: protocol.TypePong}
	})

	conn := dial(t, server)

	frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connected"}`, string(frame))

	ping, err := json.Marshal(protocol.PingCommand())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ping))

	frame, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(frame))

	assert.Eventually(t, func() bool {
		return len(server.GetReceivedMessages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"action":"ping"}`, string(server.GetReceivedMessages()[0]))
}

func TestConn_PeerClose(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantClean bool
	}{
		{name: "normal closure", code: websocket.CloseNormalClosure, wantClean: true},
		{name: "going away", code: websocket.CloseGoingAway, wantClean: true},
		{name: "internal error", code: websocket.CloseInternalServerErr},
		{name: "abrupt", code: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := test.NewMockWebSocketServer()
			defer server.Close()

			conn := dial(t, server)
			require.Eventually(t, func() bool { return server.Accepted() == 1 }, 2*time.Second, 10*time.Millisecond)

			server.CloseConnections(tt.code)

			_, err := conn.ReadMessage()
			require.Error(t, err)
			if tt.wantClean {
				assert.ErrorIs(t, err, connection.ErrClosed)
			} else {
				assert.NotErrorIs(t, err, connection.ErrClosed)
			}
		})
	}
}

func TestDialer_Failure(t *testing.T) {
	server := test.NewMockWebSocketServer()
	url := server.URL
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewDialer(WithHandshakeTimeout(time.Second)).Dial(ctx, url)
	assert.Error(t, err)
}

func TestDialer_CancelledContext(t *testing.T) {
	server := test.NewMockWebSocketServer()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDialer().Dial(ctx, server.URL)
	assert.Error(t, err)
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	server := test.NewMockWebSocketServer()
	defer server.Close()

	conn := dial(t, server)
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	_, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Error(t, conn.WriteMessage([]byte(`{}`)))
}
