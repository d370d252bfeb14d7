// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single logical connection and its state machine
//   - Reconnects after every close with capped exponential backoff
//   - Hands inbound frames, in transport order, to its hooks
//   - Suppresses reconnects only after an explicit Disconnect
package connection
