package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// QuotaWindow is the per-identifier rate-limit state: one row per
// identifier, reset in place when the window expires. Owned exclusively by
// the quota gate; nothing else mutates these rows.
type QuotaWindow struct {
	Identifier   string
	Tier         string // "free" or "paid"
	WindowStart  time.Time
	RequestCount int
}

// Acquisition is one audit-log entry for an orchestrated acquisition,
// success or failure.
type Acquisition struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Identifier string    `json:"identifier"`
	Strategy   string    `json:"strategy"`
	Status     string    `json:"status"` // "success" or "failure"
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
