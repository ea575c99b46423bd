package lifecycle

import "fmt"

// Domain rejections carry the issue id and the requested transition so
// the caller can render a specific message; no operation fails with a
// bare boolean. Handlers match these with errors.As.

// PermissionDeniedError means the actor lacks the required capability
// for the issue's team. It is raised before any state is touched.
type PermissionDeniedError struct {
	UserID     string
	TeamID     string
	IssueID    string
	Capability string // "can_edit", "can_delete" or "can_manage"
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("user %s lacks %s in team %s (issue %s)",
		e.UserID, e.Capability, e.TeamID, e.IssueID)
}

// AlreadyOnHoldError rejects a hold on an issue that already has an
// active hold.
type AlreadyOnHoldError struct {
	IssueID string
}

func (e *AlreadyOnHoldError) Error() string {
	return fmt.Sprintf("issue %s is already on hold", e.IssueID)
}

// NotOnHoldError rejects a resume on an issue with no active hold.
type NotOnHoldError struct {
	IssueID string
}

func (e *NotOnHoldError) Error() string {
	return fmt.Sprintf("issue %s is not on hold", e.IssueID)
}

// EmptyReasonError rejects a hold whose reason is empty after trimming
// whitespace. No hold record is created.
type EmptyReasonError struct {
	IssueID string
}

func (e *EmptyReasonError) Error() string {
	return fmt.Sprintf("hold reason for issue %s must not be empty", e.IssueID)
}

// StatusNotInTeamError rejects a status change to a column configured
// for a different team.
type StatusNotInTeamError struct {
	IssueID  string
	StatusID string
	TeamID   string
}

func (e *StatusNotInTeamError) Error() string {
	return fmt.Sprintf("status %s does not belong to team %s (issue %s)",
		e.StatusID, e.TeamID, e.IssueID)
}

// ConflictError means a compare-and-swap commit lost a race with a
// concurrent mutation of the same issue. The caller retries with a
// fresh read; the core never retries on its own.
type ConflictError struct {
	IssueID   string
	Operation string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("issue %s changed concurrently during %s, retry with fresh state",
		e.IssueID, e.Operation)
}
