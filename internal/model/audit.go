package model

import "time"

// Action is the kind of mutation an audit entry records.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionComment Action = "comment"
)

// Actions lists every action kind.
var Actions = []Action{ActionCreate, ActionEdit, ActionDelete, ActionComment}

// Valid reports whether a is a known action kind.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// AuditEntry is one immutable row of the history log. Data and OldData hold
// JSON-serialized record state.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Key       string    `json:"key"`
	PointName string    `json:"point_name,omitempty"`
	Data      string    `json:"data,omitempty"`
	OldData   string    `json:"old_data,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	User      string    `json:"user,omitempty"`
}
