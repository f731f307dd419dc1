package models

import "time"

// SessionStatus tracks a stored or running solve session.
type SessionStatus string

const (
	SessionRunning  SessionStatus = "running"
	SessionFinished SessionStatus = "finished"
	SessionFailed   SessionStatus = "failed"
)

// Session is an archived solve: the result plus downstream hints, keyed by a generated ID.
type Session struct {
	ID        string        `json:"id" db:"id"`
	Puzzle    string        `json:"puzzle" db:"puzzle"`
	Status    SessionStatus `json:"status" db:"status"`
	Error     string        `json:"error,omitempty" db:"error"`
	Result    *SolveResult  `json:"result,omitempty" db:"-"`
	Hints     *Hints        `json:"hints,omitempty" db:"hints"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
