package taskreg

import "time"

// State is the lifecycle position of a Record.
type State int

const (
	StatePending State = iota
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is the stored outcome of one long-running request.
type Record struct {
	ID    string
	State State

	// Result is set once State is StateCompleted, Err once it is StateFailed.
	Result string
	Err    string

	// Note is what Poll reports while the record is pending.
	Note string

	CreatedAt  time.Time
	FinishedAt time.Time
}

func (r Record) Terminal() bool {
	return r.State != StatePending
}
