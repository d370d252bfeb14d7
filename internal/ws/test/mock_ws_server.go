package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageHandler is a function that processes a received message and returns a response
type MessageHandler func([]byte) interface{}

type serverConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
}

func (c *serverConn) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *serverConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// MockWebSocketServer represents a mock stream server for testing
type MockWebSocketServer struct {
	Server *httptest.Server
	// URL is the ws:// address of the server
	URL string

	connections []*serverConn
	accepted    int
	// Messages received from clients
	receivedMessages [][]byte
	// Messages sent to every client right after the upgrade
	greeting [][]byte
	// Map of action to handler
	messageHandlers map[string]MessageHandler
	mu              sync.Mutex
	upgrader        websocket.Upgrader
}

// NewMockWebSocketServer creates and starts a new mock WebSocket server
func NewMockWebSocketServer() *MockWebSocketServer {
	mock := &MockWebSocketServer{
		messageHandlers: make(map[string]MessageHandler),
		upgrader: websocket.Upgrader{
			// Allow all origins for testing
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handleWebSocket))
	// Convert http:// to ws://
	mock.URL = "ws" + mock.Server.URL[len("http"):]

	return mock
}

// handleWebSocket handles incoming WebSocket connections in the mock server
func (m *MockWebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sc := &serverConn{conn: conn}

	m.mu.Lock()
	greeting := append([][]byte(nil), m.greeting...)
	m.mu.Unlock()

	for _, msg := range greeting {
		if err := sc.write(msg); err != nil {
			return
		}
	}

	// Register only after the greeting so Broadcast frames follow it.
	m.mu.Lock()
	m.connections = append(m.connections, sc)
	m.accepted++
	m.mu.Unlock()

	go m.readMessages(sc)
}

// readMessages reads messages from the client
func (m *MockWebSocketServer) readMessages(sc *serverConn) {
	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			m.remove(sc)
			return
		}
		m.mu.Lock()
		m.receivedMessages = append(m.receivedMessages, message)
		handler, ok := m.messageHandlers[m.determineMessageType(message)]
		m.mu.Unlock()

		if ok {
			if response := handler(message); response != nil {
				if err := sc.writeJSON(response); err != nil {
					return
				}
			}
		}
	}
}

func (m *MockWebSocketServer) remove(sc *serverConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.connections {
		if c == sc {
			m.connections = append(m.connections[:i], m.connections[i+1:]...)
			return
		}
	}
}

// Greet queues a message sent to every client as soon as it connects
func (m *MockWebSocketServer) Greet(message []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.greeting = append(m.greeting, message)
}

// Broadcast sends a message to every live connection
func (m *MockWebSocketServer) Broadcast(message []byte) {
	m.mu.Lock()
	conns := append([]*serverConn(nil), m.connections...)
	m.mu.Unlock()

	for _, c := range conns {
		_ = c.write(message)
	}
}

// CloseConnections closes every live connection with the given close code,
// or abruptly when code is zero.
func (m *MockWebSocketServer) CloseConnections(code int) {
	m.mu.Lock()
	conns := m.connections
	m.connections = nil
	m.mu.Unlock()

	for _, c := range conns {
		if code != 0 {
			c.mu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
			c.mu.Unlock()
		}
		c.conn.Close()
	}
}

// GetReceivedMessages returns all messages received from clients
func (m *MockWebSocketServer) GetReceivedMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.receivedMessages...)
}

// Accepted returns the number of upgraded connections so far
func (m *MockWebSocketServer) Accepted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// Close shuts down the mock server and closes all connections
func (m *MockWebSocketServer) Close() {
	m.CloseConnections(0)
	m.Server.Close()
}

// RegisterHandler registers a handler for a specific action
func (m *MockWebSocketServer) RegisterHandler(action string, handler MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageHandlers[action] = handler
}

// determineMessageType determines the action of a client command
func (m *MockWebSocketServer) determineMessageType(message []byte) string {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		return "error"
	}
	if action, ok := msg["action"].(string); ok {
		return action
	}

	return "unknown"
}
