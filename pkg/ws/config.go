package ws

import "time"

// HubOption configures Hub.
type HubOption func(*HubConfig)

// HubConfig holds hub tuning knobs.
type HubConfig struct {
	SendBuffer      int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	BroadcastBuffer int
}

// WithSendBuffer sets per-client outbound buffer size.
func WithSendBuffer(n int) HubOption {
	return func(c *HubConfig) {
		c.SendBuffer = n
	}
}

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) HubOption {
	return func(c *HubConfig) {
		c.PingInterval = d
	}
}

// WithWriteTimeout sets the per-write deadline.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(c *HubConfig) {
		c.WriteTimeout = d
	}
}

// WithMaxMessageBytes caps inbound message size.
func WithMaxMessageBytes(n int64) HubOption {
	return func(c *HubConfig) {
		c.MaxMessageBytes = n
	}
}
