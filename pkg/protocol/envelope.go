package protocol

// MessageType is the value of the "type" discriminator of an inbound frame.
type MessageType string

// Message types sent by the trading server
const (
	TypeConnected         MessageType = "connected"          // Server side handshake acknowledgment
	TypePriceUpdate       MessageType = "price_update"       // Ticker update for a subscribed symbol
	TypeTradeUpdate       MessageType = "trade_update"       // A trade was executed
	TypeAlertTriggered    MessageType = "alert_triggered"    // A price alert fired
	TypePerformanceUpdate MessageType = "performance_update" // Portfolio performance summary changed
	TypeHeartbeat         MessageType = "heartbeat"          // Keep-alive message
	TypePong              MessageType = "pong"               // Answer to a ping command
)

// Envelope is the part of every inbound frame the client understands.
// Everything beyond the discriminator belongs to the consumer.
type Envelope struct {
	Type MessageType `json:"type"`
}
