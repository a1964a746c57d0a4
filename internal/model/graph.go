package model

import (
	"time"

	"github.com/suppbot/server/internal/session"
)

// PipelineState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - This struct is registered as graph local state via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex is required as long as it is never touched outside handlers.
type PipelineState struct {
	SessionID string
	Question  string
	StartedAt time.Time

	// Loaded once at the start of the turn.
	History []session.Turn
	LastSQL string
	HasSQL  bool

	// Filled as the turn progresses.
	Intent       string
	Standalone   string
	GeneratedSQL string
	QueryResult  string

	// StageStartedAt times the chat-model node currently running. Node
	// execution is sequential within one invocation, so a single slot is
	// enough.
	StageStartedAt time.Time

	// Accumulated total LLM cost (USD) across model invocations for this turn.
	TotalCostUSD float64
}
