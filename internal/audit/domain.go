package audit

import (
	"encoding/json"
	"time"
)

// ActionKind classifies what an audit entry records.
type ActionKind string

// The fixed action enumeration.
const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
	ActionView   ActionKind = "view"
	ActionExport ActionKind = "export"
	ActionLogin  ActionKind = "login"
	ActionLogout ActionKind = "logout"
)

// ValidActionKind reports whether the value is part of the enumeration.
func ValidActionKind(kind ActionKind) bool {
	switch kind {
	case ActionCreate, ActionUpdate, ActionDelete, ActionView, ActionExport, ActionLogin, ActionLogout:
		return true
	}
	return false
}

// Outcome records whether the audited operation succeeded.
type Outcome string

// Outcome values.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// ValidOutcome reports whether the value is a known outcome.
func ValidOutcome(outcome Outcome) bool {
	return outcome == OutcomeSuccess || outcome == OutcomeFailed
}

// Entry is one immutable audit record. Actor name and role are captured at
// write time so a later rename or deletion of the account cannot corrupt
// history. Before and After are opaque snapshots; diffing them is a
// presentation concern, not done here.
type Entry struct {
	ID          int64          `json:"id"`
	ActorID     int64          `json:"actor_id"`
	ActorName   string         `json:"actor_name"`
	ActorRole   string         `json:"actor_role"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id,omitempty"`
	Action      ActionKind     `json:"action"`
	Outcome     Outcome        `json:"outcome"`
	Description string         `json:"description,omitempty"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	At          time.Time      `json:"at"`
}

// Snapshot converts any JSON-marshalable value into the opaque map shape
// stored on an entry. Callers capture the before snapshot by reading the
// entity prior to mutation and the after snapshot from the mutation result.
func Snapshot(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil
	}
	return snap
}
