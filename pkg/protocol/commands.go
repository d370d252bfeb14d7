package protocol

// Action is the verb of an outbound command.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
	ActionPing        Action = "ping"
)

// Command is the only message the client ever writes to the server.
type Command struct {
	Action  Action   `json:"action"`            // subscribe, unsubscribe or ping
	Symbols []string `json:"symbols,omitempty"` // Upper-case symbols, omitted for ping
}

// SubscribeCommand builds a subscribe command for the given symbols.
func SubscribeCommand(symbols ...string) Command {
	return Command{Action: ActionSubscribe, Symbols: symbols}
}

// UnsubscribeCommand builds an unsubscribe command for the given symbols.
func UnsubscribeCommand(symbols ...string) Command {
	return Command{Action: ActionUnsubscribe, Symbols: symbols}
}

// PingCommand builds a ping command. The server answers with a pong frame.
func PingCommand() Command {
	return Command{Action: ActionPing}
}
