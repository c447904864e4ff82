package projects

import (
	"errors"
	"time"
)

// Status is the project workflow state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ValidStatus reports whether the value is a known workflow state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ErrInvalidTransition indicates a workflow move the state machine does not
// permit.
var ErrInvalidTransition = errors.New("projects: invalid status transition")

// ErrNotOwner indicates a contractor acted on a project assigned to another
// contractor.
var ErrNotOwner = errors.New("projects: not the assigned contractor")

// Project is a government project executed by a contractor under an MDA
// (ministry, department or agency).
type Project struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	MDA          string    `json:"mda"`
	ContractorID int64     `json:"contractor_id"`
	BudgetNGN    int64     `json:"budget_ngn"`
	Status       Status    `json:"status"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// canTransition encodes the workflow edges. A rejected project re-enters
// review through submitted when its contractor edits it; that edge is applied
// by the service, not requested by the caller.
func canTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusApproved || to == StatusRejected
	case StatusRejected:
		return to == StatusSubmitted
	}
	return false
}
