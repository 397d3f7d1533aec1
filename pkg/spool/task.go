package spool

import "time"

// Task is one unit of pending work.
type Task struct {
	// Type routes the task to handlers, e.g. "commit".
	Type string `json:"type"`
	// ID identifies the subject within Type.
	ID string `json:"id"`
	// Data is the optional structured payload.
	Data map[string]any `json:"data,omitempty"`
	// ScheduledAt is the earliest time the task may be claimed.
	// It has microsecond precision once stored.
	ScheduledAt time.Time `json:"scheduled_at"`
	// Record is the file name the task was stored under.
	Record string `json:"record,omitempty"`
}

// Counts partitions valid records by eligibility.
type Counts struct {
	Current int `json:"current"`
	Future  int `json:"future"`
	Total   int `json:"total"`
}
