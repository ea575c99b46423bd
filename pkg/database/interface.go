package database

import (
	"context"
	"errors"
	"time"

	"taskboard-backend/pkg/models"
)

// Storage-level sentinel errors. The lifecycle and handler layers match
// on these with errors.Is and translate them into domain errors.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a uniqueness constraint was violated
	// (e-mail already registered, user already a team member).
	ErrDuplicate = errors.New("record already exists")
	// ErrVersionConflict means a compare-and-swap commit lost the race:
	// the issue changed since it was read. Callers retry with a fresh read.
	ErrVersionConflict = errors.New("issue version conflict")
	// ErrCrossOrgMembership means an attempt to add a user to a team in
	// another organization.
	ErrCrossOrgMembership = errors.New("user and team belong to different organizations")
)

// Store defines the persistence surface of the backend. Two
// implementations exist: PostgresStore for production and MemoryStore
// for local development and tests.
//
// All issue mutations that touch (status_id, is_on_hold, hold ledger)
// are compare-and-swap: they take the version observed at read time and
// fail with ErrVersionConflict if the row moved on. The denormalized
// is_on_hold flag is only ever written in the same commit as the ledger.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)

	// Teams
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeamsByOrganization(ctx context.Context, orgID string) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, id string) error

	// Memberships
	AddTeamMember(ctx context.Context, m *models.TeamMembership) error
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	GetTeamMember(ctx context.Context, teamID, userID string) (*models.TeamMembership, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]models.TeamMembership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]models.TeamMembership, error)

	// Statuses (returned in ascending position order, ties by id)
	CreateStatus(ctx context.Context, status *models.IssueStatus) error
	GetStatus(ctx context.Context, id string) (*models.IssueStatus, error)
	ListStatusesByTeam(ctx context.Context, teamID string) ([]models.IssueStatus, error)
	UpdateStatus(ctx context.Context, status *models.IssueStatus) error
	DeleteStatus(ctx context.Context, id string) error

	// Issues
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	ListIssuesByTeam(ctx context.Context, teamID string) ([]models.Issue, error)
	UpdateIssue(ctx context.Context, issue *models.Issue, expectedVersion int64) error
	UpdateIssueStatus(ctx context.Context, issueID, statusID string, expectedVersion int64) error
	// HoldIssue creates the unresolved hold record and flips is_on_hold
	// in a single commit.
	HoldIssue(ctx context.Context, issueID string, rec *models.HoldRecord, expectedVersion int64) error
	// ResumeIssue stamps resolved_at/resolved_by on the single
	// unresolved record and clears is_on_hold in a single commit.
	ResumeIssue(ctx context.Context, issueID, resolvedBy string, resolvedAt time.Time, expectedVersion int64) error
	// ArchiveIssue moves the issue and its history out of the active
	// tables. The hold ledger is preserved.
	ArchiveIssue(ctx context.Context, id string) error
	ListHoldRecords(ctx context.Context, issueID string) ([]models.HoldRecord, error) // newest-first

	// Assignments
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignmentsByIssue(ctx context.Context, issueID string) ([]models.Assignment, error)

	// Audit trail (append-only, read newest-first)
	AppendAuditEvent(ctx context.Context, ev *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, issueID string) ([]models.AuditEvent, error)
}
