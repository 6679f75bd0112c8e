package followers

import "time"

// RunID identifies one operator-initiated run.
type RunID string

// State of a stream session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further events will be processed in this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Run is the persisted record of one session: what was asked for, how it
// ended, and where the exported artifact went.
type Run struct {
	ID             RunID     `json:"id"`
	Identifier     string    `json:"identifier"`
	Prompt         string    `json:"prompt,omitempty"`
	RequestedCount int       `json:"requested_count"`
	StartedAt      time.Time `json:"started_at"`
	Status         State     `json:"status"`
	MergedCount    int       `json:"merged_count"`
	TotalFetched   int       `json:"total_fetched"`
	LastCursor     string    `json:"last_cursor,omitempty"`
	ArtifactURL    string    `json:"artifact_url,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
}
