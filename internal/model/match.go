// Package model defines the alert match data structures shared across the relay.
package model

import "time"

// Match is a single event produced by the upstream rules engine.
type Match struct {
	// ID is the queue row identifier assigned by the rules engine.
	ID int64 `json:"id"`

	// Rule is the name of the rule that produced this match.
	Rule string `json:"rule"`

	// Timestamp is when the rules engine recorded the match.
	Timestamp time.Time `json:"timestamp"`

	// Fields holds the flat key/value payload captured with the match.
	Fields map[string]string `json:"fields,omitempty"`
}

// MatchBatch groups the pending matches collected for a single dispatch run.
type MatchBatch struct {
	// ReqID is a unique identifier for this dispatch run.
	ReqID string `json:"req_id"`

	// Rule is the rule name the batch is reported under.
	Rule string `json:"rule"`

	// Timestamp is when the batch was assembled.
	Timestamp time.Time `json:"timestamp"`

	// Matches are the events included in this batch, in queue order.
	Matches []Match `json:"matches"`
}

// IDs returns the queue identifiers of all matches in the batch.
func (b *MatchBatch) IDs() []int64 {
	ids := make([]int64, len(b.Matches))
	for i, m := range b.Matches {
		ids[i] = m.ID
	}
	return ids
}
