package client

// Subscribe adds symbols to the subscription set and sends a subscribe
// command. The set is updated even when the command cannot be sent; it is
// replayed on the next connection.
func (c *Client) Subscribe(symbols ...string) error {
	return c.registry.Subscribe(symbols...)
}

// Unsubscribe removes symbols from the subscription set and sends an
// unsubscribe command.
func (c *Client) Unsubscribe(symbols ...string) error {
	return c.registry.Unsubscribe(symbols...)
}

// Topics returns the normalized subscription set, sorted.
func (c *Client) Topics() []string {
	topics := c.registry.Topics()
	out := make([]string, len(topics))
	for i, topic := range topics {
		out[i] = string(topic)
	}
	return out
}
