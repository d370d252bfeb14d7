//go:generate mockgen -destination=mock_event_bus.go -package=mocks github.com/alejoacosta74/trading-stream/internal/events Bus

package mocks
