package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Run status values. A run moves pending -> processing -> completed,
// or to failed from any earlier state.
const (
	RunPending    = "pending"
	RunProcessing = "processing"
	RunCompleted  = "completed"
	RunFailed     = "failed"
)

// Run is one timeline generation request tracked through the pipeline.
type Run struct {
	RunID     string          `json:"run_id"`
	Status    string          `json:"status"`
	Step      string          `json:"step,omitempty"`
	Error     *string         `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Media is an uploaded A-roll or B-roll source file.
type Media struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Kind        string    `json:"kind"`
	DurationSec float64   `json:"duration_sec"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
