// Package notifier provides notification channel implementations.
package notifier

import (
	"context"

	"github.com/ryvertools/ryver-relay/internal/model"
)

// Notifier is the interface for sending alert batches to external channels.
type Notifier interface {
	// Send sends the batch to the notification channel.
	Send(ctx context.Context, batch *model.MatchBatch) error

	// Name returns the name of the notifier.
	Name() string

	// Info returns an operator-facing descriptor of the channel and its
	// destination. It must never contain credentials.
	Info() map[string]string
}
