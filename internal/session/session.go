package session

import "context"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is an immutable (role, text) pair appended to a session's history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Snapshot is a point-in-time copy of one session's state. Mutating it does
// not affect the store.
type Snapshot struct {
	SessionID string
	Turns     []Turn
	LastSQL   string
	HasSQL    bool
}

// Store keeps per-session conversational state: ordered turn history plus
// the most recently executed SQL statement. Sessions are created lazily on
// first reference and live for the process lifetime unless a driver applies
// its own expiry (the Redis driver does, via TTL).
type Store interface {
	// GetOrCreate returns the session for the id, creating it when unknown.
	GetOrCreate(ctx context.Context, sessionID string) (*Snapshot, error)

	// RecordTurn appends a turn to the session's history.
	RecordTurn(ctx context.Context, sessionID string, role Role, text string) error

	// LastSQL returns the last successfully executed SQL statement.
	// The second return is false when no statement has been stored yet.
	LastSQL(ctx context.Context, sessionID string) (string, bool, error)

	// SetLastSQL stores the statement. Callers invoke this only after a
	// non-error execution.
	SetLastSQL(ctx context.Context, sessionID string, sql string) error
}

// TrimTurns returns a view of at most maxTurns most recent turns. Older
// turns stay in storage; this only bounds prompt construction.
func TrimTurns(turns []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		result := make([]Turn, len(turns))
		copy(result, turns)
		return result
	}
	source := turns[len(turns)-maxTurns:]
	result := make([]Turn, len(source))
	copy(result, source)
	return result
}
