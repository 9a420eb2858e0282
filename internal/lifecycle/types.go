// Lifecycle record structs with greptime tags
package lifecycle

import (
	"os"
	"time"
)

// EventType identifies the kind of lifecycle record.
type EventType string

// Lifecycle event types emitted by the controller.
const (
	EventStart  EventType = "SIMULATOR_START"
	EventStop   EventType = "SIMULATOR_STOP"
	EventPause  EventType = "SIMULATOR_PAUSE"
	EventResume EventType = "SIMULATOR_RESUME"
	EventSystem EventType = "SYSTEM_LOG"
)

// Levels for SYSTEM_LOG records.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Record represents one lifecycle record handed to sinks.
type Record struct {
	RunID     string         `json:"run_id"`          // TAG
	Name      string         `json:"name"`            // TAG
	Event     EventType      `json:"event"`           // FIELD
	Level     string         `json:"level,omitempty"` // FIELD
	Message   string         `json:"message"`         // FIELD
	Data      map[string]any `json:"data,omitempty"`  // FIELD (JSON)
	Timestamp time.Time      `json:"ts"`              // TIME INDEX
}

// RecordTableName holds the table name used when writing to GreptimeDB.
// It defaults to "simulation_lifecycle" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var RecordTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "simulation_lifecycle"
}()

func (Record) TableName() string {
	return RecordTableName
}

// IsError reports whether the record carries an error-level SYSTEM_LOG payload.
func (r Record) IsError() bool {
	return r.Event == EventSystem && r.Level == LevelError
}
