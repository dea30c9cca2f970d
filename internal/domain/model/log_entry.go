package model

import "time"

// LogEntry is a persisted log line shown on the dashboard.
type LogEntry struct {
	ID        int64
	Level     string
	Message   string
	UserID    string
	Metadata  map[string]any
	Timestamp time.Time
}
