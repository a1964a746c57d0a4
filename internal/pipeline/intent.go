package pipeline

import "strings"

// Intent is the router's classification of a user message.
type Intent string

const (
	IntentDataQuery      Intent = "database_query"
	IntentConversational Intent = "casual_conversation"
	IntentUnrecognized   Intent = "unrecognized"
)

// ParseIntent interprets the router model's raw reply. The reply is expected
// to be a bare category name, but models decorate: the parse tolerates
// whitespace, case and a trailing period, then falls back to substring
// detection. A reply containing both category names, or neither, is
// unrecognized: guessing on an ambiguous route would send the question down
// the wrong half of the graph.
func ParseIntent(raw string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimSuffix(normalized, ".")

	switch Intent(normalized) {
	case IntentDataQuery, IntentConversational, IntentUnrecognized:
		return Intent(normalized)
	}

	hasData := strings.Contains(normalized, string(IntentDataQuery))
	hasConv := strings.Contains(normalized, string(IntentConversational))
	switch {
	case hasData && !hasConv:
		return IntentDataQuery
	case hasConv && !hasData:
		return IntentConversational
	default:
		return IntentUnrecognized
	}
}
