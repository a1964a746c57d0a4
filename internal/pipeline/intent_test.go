package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{"exact data query", "database_query", IntentDataQuery},
		{"exact conversational", "casual_conversation", IntentConversational},
		{"exact unrecognized", "unrecognized", IntentUnrecognized},
		{"uppercase", "DATABASE_QUERY", IntentDataQuery},
		{"surrounding whitespace", "  casual_conversation \n", IntentConversational},
		{"trailing period", "database_query.", IntentDataQuery},
		{"decorated reply", "The category is: database_query", IntentDataQuery},
		{"decorated conversational", "casual_conversation (greeting)", IntentConversational},
		{"both keywords", "database_query or casual_conversation", IntentUnrecognized},
		{"neither keyword", "I cannot classify this", IntentUnrecognized},
		{"empty", "", IntentUnrecognized},
		{"unrelated word", "query", IntentUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntent(tt.raw))
		})
	}
}
