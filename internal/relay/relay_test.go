package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ryvertools/ryver-relay/internal/config"
	"github.com/ryvertools/ryver-relay/internal/model"
)

// fakeSource implements MatchSource for testing
type fakeSource struct {
	pending   []model.Match
	fetchErr  error
	ackedIDs  []int64
	lastLimit int
}

func (f *fakeSource) FetchPending(ctx context.Context, limit int) ([]model.Match, error) {
	f.lastLimit = limit
	return f.pending, f.fetchErr
}

func (f *fakeSource) MarkDispatched(ctx context.Context, ids []int64) error {
	f.ackedIDs = append(f.ackedIDs, ids...)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Relay: config.RelayConfig{BatchLimit: 50, DispatchTimeout: "1m"},
	}
}

func TestRelay_Collect(t *testing.T) {
	src := &fakeSource{
		pending: []model.Match{
			{ID: 1, Rule: "cpu_spike", Timestamp: time.Now()},
			{ID: 2, Rule: "cpu_spike", Timestamp: time.Now()},
		},
	}
	r := New(testConfig(), src)

	batch, err := r.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch == nil {
		t.Fatal("expected a batch")
	}

	if src.lastLimit != 50 {
		t.Errorf("fetch limit = %d, want the configured batch limit 50", src.lastLimit)
	}
	if batch.Rule != "cpu_spike" {
		t.Errorf("Rule = %q, want cpu_spike", batch.Rule)
	}
	if batch.ReqID == "" {
		t.Error("ReqID should be set")
	}
	if len(batch.Matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(batch.Matches))
	}
}

func TestRelay_Collect_EmptyQueue(t *testing.T) {
	r := New(testConfig(), &fakeSource{})

	batch, err := r.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch != nil {
		t.Errorf("expected nil batch for empty queue, got %v", batch)
	}
}

func TestRelay_Collect_FetchError(t *testing.T) {
	r := New(testConfig(), &fakeSource{fetchErr: errors.New("connection reset")})

	if _, err := r.Collect(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRelay_Ack(t *testing.T) {
	src := &fakeSource{}
	r := New(testConfig(), src)

	batch := &model.MatchBatch{
		Matches: []model.Match{{ID: 3}, {ID: 5}},
	}
	if err := r.Ack(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(src.ackedIDs) != 2 || src.ackedIDs[0] != 3 || src.ackedIDs[1] != 5 {
		t.Errorf("acked ids = %v, want [3 5]", src.ackedIDs)
	}
}
