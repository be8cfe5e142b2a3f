// Package relay assembles pending matches into dispatch batches and
// acknowledges them after delivery.
package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ryvertools/ryver-relay/internal/config"
	"github.com/ryvertools/ryver-relay/internal/model"
)

// MatchSource is the queue access the relay needs. Implemented by
// reader.Reader.
type MatchSource interface {
	FetchPending(ctx context.Context, limit int) ([]model.Match, error)
	MarkDispatched(ctx context.Context, ids []int64) error
}

// Relay coordinates between the match queue and the notifier.
type Relay struct {
	cfg    *config.Config
	source MatchSource
}

// New creates a new Relay with the given configuration and match source.
func New(cfg *config.Config, source MatchSource) *Relay {
	return &Relay{
		cfg:    cfg,
		source: source,
	}
}

// Collect fetches pending matches and assembles them into a batch. It
// returns a nil batch when the queue is empty.
func (r *Relay) Collect(ctx context.Context) (*model.MatchBatch, error) {
	matches, err := r.source.FetchPending(ctx, r.cfg.Relay.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching pending matches: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	return &model.MatchBatch{
		ReqID:     newReqID(),
		Rule:      matches[0].Rule,
		Timestamp: time.Now(),
		Matches:   matches,
	}, nil
}

// Ack marks every match in the batch as dispatched.
func (r *Relay) Ack(ctx context.Context, batch *model.MatchBatch) error {
	return r.source.MarkDispatched(ctx, batch.IDs())
}

// newReqID returns a random hex identifier for a dispatch run.
func newReqID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
