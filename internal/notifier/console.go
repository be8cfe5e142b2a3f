package notifier

import (
	"context"
	"log"

	"github.com/ryvertools/ryver-relay/internal/model"
	"github.com/ryvertools/ryver-relay/internal/render"
)

// ConsoleNotifier prints alert batches to the log (useful for testing).
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a new console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Name returns the notifier name.
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// Info returns the operator-facing descriptor.
func (c *ConsoleNotifier) Info() map[string]string {
	return map[string]string{"type": "console"}
}

// Send prints the rendered batch to the log.
func (c *ConsoleNotifier) Send(ctx context.Context, batch *model.MatchBatch) error {
	log.Printf("Alert batch %s (%d matches):\n%s", batch.ReqID, len(batch.Matches), render.Body(batch))
	return nil
}
