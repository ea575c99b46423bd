// Package lifecycle implements the issue state machine: status movement
// and the hold/resume workflow, with an append-only audit trail.
//
// An issue's lifecycle state is the pair (status_id, hold flag). The two
// axes are independent: a held issue can still change status. Every
// mutation is permission-checked first, then committed with a
// compare-and-swap on the issue version; conflicting writers get a
// ConflictError and must retry with a fresh read.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/permissions"

	"github.com/rs/zerolog"
)

// Lifecycle is the only writer of issue status, hold state, the hold
// ledger and the audit trail.
type Lifecycle struct {
	store    database.Store
	resolver *permissions.Resolver
	log      zerolog.Logger
}

// New creates a lifecycle service over the given store and permission
// resolver.
func New(store database.Store, resolver *permissions.Resolver, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{store: store, resolver: resolver, log: log}
}

// requireCapability resolves a fresh permission snapshot for the actor
// and checks one capability against the issue's team. The check always
// runs before any state is touched.
func (l *Lifecycle) requireCapability(ctx context.Context, actor *models.User, teamID, issueID, capability string) error {
	perms, err := l.resolver.Resolve(ctx, actor)
	if err != nil {
		return err
	}

	var allowed bool
	switch capability {
	case "can_edit":
		allowed = perms.CanEdit(teamID)
	case "can_delete":
		allowed = perms.CanDelete(teamID)
	case "can_manage":
		allowed = perms.CanManage(teamID)
	}
	if !allowed {
		return &PermissionDeniedError{
			UserID:     actor.ID,
			TeamID:     teamID,
			IssueID:    issueID,
			Capability: capability,
		}
	}
	return nil
}

// Create validates and stores a new issue. The issue starts in the
// team's first status column (lowest position) and not on hold.
func (l *Lifecycle) Create(ctx context.Context, issue *models.Issue, actor *models.User) error {
	if strings.TrimSpace(issue.Title) == "" {
		return fmt.Errorf("issue title is required")
	}
	if len(issue.Title) > 500 {
		return fmt.Errorf("issue title must be 500 characters or less")
	}
	if issue.Priority == "" {
		issue.Priority = models.PriorityNormal
	}
	if !issue.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", issue.Priority)
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, "", "can_edit"); err != nil {
		return err
	}

	if issue.StatusID == "" {
		statuses, err := l.store.ListStatusesByTeam(ctx, issue.TeamID)
		if err != nil {
			return fmt.Errorf("failed to load team statuses: %w", err)
		}
		if len(statuses) == 0 {
			return fmt.Errorf("team %s has no statuses configured", issue.TeamID)
		}
		issue.StatusID = statuses[0].ID
	} else {
		status, err := l.store.GetStatus(ctx, issue.StatusID)
		if err != nil {
			return fmt.Errorf("failed to load status: %w", err)
		}
		if status.TeamID != issue.TeamID {
			return &StatusNotInTeamError{StatusID: issue.StatusID, TeamID: issue.TeamID}
		}
	}

	issue.CreatedBy = actor.ID
	issue.IsOnHold = false
	if err := l.store.CreateIssue(ctx, issue); err != nil {
		return err
	}

	return l.appendAudit(ctx, &models.AuditEvent{
		IssueID:     issue.ID,
		ActorID:     actor.ID,
		Type:        models.AuditCreated,
		Description: "Issue created",
	})
}

// ChangeStatus moves the issue to another column of the same team.
// Changing to the current status is a no-op: success, no audit entry.
// The hold flag is untouched either way.
func (l *Lifecycle) ChangeStatus(ctx context.Context, issueID, newStatusID string, actor *models.User) (*models.Issue, error) {
	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_edit"); err != nil {
		return nil, err
	}

	if issue.StatusID == newStatusID {
		return issue, nil
	}

	status, err := l.store.GetStatus(ctx, newStatusID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &StatusNotInTeamError{IssueID: issueID, StatusID: newStatusID, TeamID: issue.TeamID}
		}
		return nil, err
	}
	if status.TeamID != issue.TeamID {
		return nil, &StatusNotInTeamError{IssueID: issueID, StatusID: newStatusID, TeamID: issue.TeamID}
	}

	if err := l.store.UpdateIssueStatus(ctx, issueID, newStatusID, issue.Version); err != nil {
		return nil, l.translateCommit(err, issueID, "status change")
	}

	fromID := issue.StatusID
	if err := l.appendAudit(ctx, &models.AuditEvent{
		IssueID:      issueID,
		ActorID:      actor.ID,
		Type:         models.AuditStatusChanged,
		Description:  fmt.Sprintf("Status changed to %s", status.Name),
		FromStatusID: &fromID,
		ToStatusID:   &newStatusID,
	}); err != nil {
		return nil, err
	}

	return l.store.GetIssue(ctx, issueID)
}

// Hold suspends active work on the issue. The reason is mandatory.
// Exactly one unresolved hold record exists after a successful call.
func (l *Lifecycle) Hold(ctx context.Context, issueID, reason string, actor *models.User) error {
	reason = strings.TrimSpace(reason)

	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_edit"); err != nil {
		return err
	}

	if reason == "" {
		return &EmptyReasonError{IssueID: issueID}
	}
	if issue.IsOnHold {
		return &AlreadyOnHoldError{IssueID: issueID}
	}

	rec := &models.HoldRecord{
		IssueID:   issueID,
		Reason:    reason,
		CreatedBy: actor.ID,
	}
	if err := l.store.HoldIssue(ctx, issueID, rec, issue.Version); err != nil {
		return l.translateCommit(err, issueID, "hold")
	}

	l.log.Info().Str("issue_id", issueID).Str("actor_id", actor.ID).Msg("issue put on hold")

	return l.appendAudit(ctx, &models.AuditEvent{
		IssueID:     issueID,
		ActorID:     actor.ID,
		Type:        models.AuditHold,
		Description: "Issue put on hold: " + reason,
	})
}

// Resume lifts the active hold, stamping resolved_at/resolved_by on the
// single unresolved record. Earlier resolved records stay untouched, so
// the full hold history is preserved.
func (l *Lifecycle) Resume(ctx context.Context, issueID string, actor *models.User) error {
	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_edit"); err != nil {
		return err
	}

	if !issue.IsOnHold {
		return &NotOnHoldError{IssueID: issueID}
	}

	if err := l.store.ResumeIssue(ctx, issueID, actor.ID, time.Now().UTC(), issue.Version); err != nil {
		return l.translateCommit(err, issueID, "resume")
	}

	l.log.Info().Str("issue_id", issueID).Str("actor_id", actor.ID).Msg("issue resumed")

	return l.appendAudit(ctx, &models.AuditEvent{
		IssueID:     issueID,
		ActorID:     actor.ID,
		Type:        models.AuditResumed,
		Description: "Issue resumed",
	})
}

// Update edits the issue's descriptive fields (title, description,
// priority, deadline). Status and hold state have their own operations.
func (l *Lifecycle) Update(ctx context.Context, issueID string, patch *models.Issue, actor *models.User) (*models.Issue, error) {
	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_edit"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(patch.Title) != "" {
		issue.Title = patch.Title
	}
	if len(issue.Title) > 500 {
		return nil, fmt.Errorf("issue title must be 500 characters or less")
	}
	if patch.Description != "" {
		issue.Description = patch.Description
	}
	if patch.Priority != "" {
		if !patch.Priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q", patch.Priority)
		}
		issue.Priority = patch.Priority
	}
	if patch.Deadline != nil {
		issue.Deadline = patch.Deadline
	}

	if err := l.store.UpdateIssue(ctx, issue, issue.Version); err != nil {
		return nil, l.translateCommit(err, issueID, "update")
	}
	return issue, nil
}

// Delete archives the issue and its history. It requires can_delete,
// which only managers hold.
func (l *Lifecycle) Delete(ctx context.Context, issueID string, actor *models.User) error {
	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_delete"); err != nil {
		return err
	}

	return l.store.ArchiveIssue(ctx, issueID)
}

// Assign places a user on the issue for a date range. Requires
// can_manage for the issue's team.
func (l *Lifecycle) Assign(ctx context.Context, issueID string, a *models.Assignment, actor *models.User) error {
	issue, err := l.store.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}

	if err := l.requireCapability(ctx, actor, issue.TeamID, issueID, "can_manage"); err != nil {
		return err
	}

	a.IssueID = issueID
	a.AssignedBy = actor.ID
	if err := l.store.CreateAssignment(ctx, a); err != nil {
		return err
	}

	return l.appendAudit(ctx, &models.AuditEvent{
		IssueID:     issueID,
		ActorID:     actor.ID,
		Type:        models.AuditAssigned,
		Description: "Issue assigned",
	})
}

// Activities returns the audit trail, newest-first.
func (l *Lifecycle) Activities(ctx context.Context, issueID string) ([]models.AuditEvent, error) {
	if _, err := l.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	return l.store.ListAuditEvents(ctx, issueID)
}

// HoldHistory returns the hold ledger, newest-first.
func (l *Lifecycle) HoldHistory(ctx context.Context, issueID string) ([]models.HoldRecord, error) {
	return l.store.ListHoldRecords(ctx, issueID)
}

func (l *Lifecycle) appendAudit(ctx context.Context, ev *models.AuditEvent) error {
	if err := l.store.AppendAuditEvent(ctx, ev); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// translateCommit maps a failed compare-and-swap onto the typed
// conflict error; anything else passes through unchanged.
func (l *Lifecycle) translateCommit(err error, issueID, op string) error {
	if errors.Is(err, database.ErrVersionConflict) {
		return &ConflictError{IssueID: issueID, Operation: op}
	}
	return err
}
