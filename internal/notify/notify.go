// Package notify delivers change summaries over the configured channels:
// email, PushPlus, and Telegram.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a formatted change summary ready for delivery.
type Message struct {
	Title       string
	Text        string
	HTML        string
	Attachments []string // local file paths, used by channels that support them
}

// Channel delivers a message over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Notifier fans a message out to every configured channel. One channel's
// failure never blocks the others.
type Notifier struct {
	channels []Channel
	log      *zap.Logger
}

// New creates a notifier over the given channels.
func New(log *zap.Logger, channels ...Channel) *Notifier {
	return &Notifier{channels: channels, log: log}
}

// Configured reports whether any channel is set up.
func (n *Notifier) Configured() bool {
	return len(n.channels) > 0
}

// SendAll delivers msg on every channel and returns the per-channel outcome,
// keyed by channel name. A nil value means the channel succeeded.
func (n *Notifier) SendAll(ctx context.Context, msg Message) map[string]error {
	if len(n.channels) == 0 {
		n.log.Warn("no notification channels configured")
		return nil
	}

	results := make(map[string]error, len(n.channels))
	for _, ch := range n.channels {
		err := ch.Send(ctx, msg)
		results[ch.Name()] = err
		if err != nil {
			n.log.Error("notification failed",
				zap.String("channel", ch.Name()), zap.Error(err))
			continue
		}
		n.log.Info("notification sent", zap.String("channel", ch.Name()))
	}
	return results
}

// Succeeded counts the channels that delivered.
func Succeeded(results map[string]error) int {
	n := 0
	for _, err := range results {
		if err == nil {
			n++
		}
	}
	return n
}
