package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdCheckNow       CommandType = "check_now"
	CmdPause          CommandType = "pause"
	CmdResume         CommandType = "resume"
	CmdSweepArtifacts CommandType = "sweep_artifacts"
)

// Command is an operator request queued by the external chat interface.
// The daemon polls and processes them in order.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

// CommandParams narrows a check_now to a single user's criteria when set.
type CommandParams struct {
	OwnerID int64 `json:"owner_id,omitempty"`
}
