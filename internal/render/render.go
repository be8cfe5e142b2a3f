// Package render turns match batches into the alert body text posted to
// notification channels.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ryvertools/ryver-relay/internal/model"
)

const matchSeparator = "----------------------------------------\n"

// Body renders the batch into plain text: a header naming the rule and match
// count, then one block per match with its timestamp and sorted fields.
func Body(batch *model.MatchBatch) string {
	var sb strings.Builder

	rule := batch.Rule
	if rule == "" {
		rule = "unknown rule"
	}
	sb.WriteString(fmt.Sprintf("%s - %d matching event(s)\n\n", rule, len(batch.Matches)))

	for i, m := range batch.Matches {
		if i > 0 {
			sb.WriteString(matchSeparator)
		}
		sb.WriteString(fmt.Sprintf("@timestamp: %s\n", m.Timestamp.UTC().Format("2006-01-02T15:04:05Z")))

		// Deterministic field order
		keys := make([]string, 0, len(m.Fields))
		for k := range m.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("%s: %s\n", k, m.Fields[k]))
		}
	}

	return sb.String()
}
