package models

import "time"

// IssuePriority is a closed enumeration; unknown values are rejected at
// the boundary instead of falling through to a default.
type IssuePriority string

const (
	PriorityLow    IssuePriority = "LOW"
	PriorityNormal IssuePriority = "NORMAL"
	PriorityHigh   IssuePriority = "HIGH"
	PriorityUrgent IssuePriority = "URGENT"
)

// Valid reports whether p is one of the four known priorities.
func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Issue is a trackable unit of work. StatusID always references a status
// belonging to the same team. IsOnHold is denormalized from the hold
// ledger (true iff exactly one unresolved HoldRecord exists) and is only
// ever written in the same commit as the ledger mutation. Version backs
// the compare-and-swap used for every lifecycle mutation.
type Issue struct {
	ID          string        `json:"id" db:"id"`
	TeamID      string        `json:"team_id" db:"team_id"`
	StatusID    string        `json:"status_id" db:"status_id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description,omitempty" db:"description"`
	Priority    IssuePriority `json:"priority" db:"priority"`
	Deadline    *time.Time    `json:"deadline,omitempty" db:"deadline"`
	CreatedBy   string        `json:"created_by" db:"created_by"`
	IsOnHold    bool          `json:"is_on_hold" db:"is_on_hold"`
	Version     int64         `json:"-" db:"version"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// HoldRecord is one entry in an issue's hold ledger. ResolvedAt is null
// while the hold is active; at most one record per issue may be
// unresolved at any time.
type HoldRecord struct {
	ID         string     `json:"id" db:"id"`
	IssueID    string     `json:"issue_id" db:"issue_id"`
	Reason     string     `json:"reason" db:"reason"`
	CreatedBy  string     `json:"created_by" db:"created_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}

// Resolved reports whether the hold has been lifted.
func (h HoldRecord) Resolved() bool {
	return h.ResolvedAt != nil
}

// Assignment places a user on an issue for a date range. The bounds are
// consumed by the calendar view, the core only stores them.
type Assignment struct {
	ID         string    `json:"id" db:"id"`
	IssueID    string    `json:"issue_id" db:"issue_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	EndDate    time.Time `json:"end_date" db:"end_date"`
	AssignedBy string    `json:"assigned_by" db:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

// AuditEventType enumerates the kinds of entries the lifecycle appends
// to an issue's audit trail.
type AuditEventType string

const (
	AuditCreated       AuditEventType = "created"
	AuditStatusChanged AuditEventType = "status_changed"
	AuditHold          AuditEventType = "hold"
	AuditResumed       AuditEventType = "resumed"
	AuditAssigned      AuditEventType = "assigned"
	AuditCommented     AuditEventType = "commented"
)

// AuditEvent is one append-only ledger entry. Events are never updated
// or deleted; the trail is read newest-first.
type AuditEvent struct {
	ID           string         `json:"id" db:"id"`
	IssueID      string         `json:"issue_id" db:"issue_id"`
	ActorID      string         `json:"actor_id" db:"actor_id"`
	Type         AuditEventType `json:"type" db:"event_type"`
	Description  string         `json:"description" db:"description"`
	FromStatusID *string        `json:"from_status_id,omitempty" db:"from_status_id"`
	ToStatusID   *string        `json:"to_status_id,omitempty" db:"to_status_id"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
