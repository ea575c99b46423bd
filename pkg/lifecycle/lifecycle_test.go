package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/permissions"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture wires a lifecycle over the in-memory store with one team and
// one user per role.
type fixture struct {
	store *database.MemoryStore
	lc    *Lifecycle

	team    *models.Team
	other   *models.Team
	backlog *models.IssueStatus
	doing   *models.IssueStatus
	foreign *models.IssueStatus

	manager     *models.User
	assistant   *models.User
	member      *models.User
	stakeholder *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()

	org := &models.Organization{Name: "acme"}
	require.NoError(t, store.CreateOrganization(ctx, org))

	f := &fixture{
		store: store,
		team:  &models.Team{OrganizationID: org.ID, Name: "eng"},
		other: &models.Team{OrganizationID: org.ID, Name: "ops"},
	}
	require.NoError(t, store.CreateTeam(ctx, f.team))
	require.NoError(t, store.CreateTeam(ctx, f.other))

	f.backlog = &models.IssueStatus{TeamID: f.team.ID, Name: "Backlog", Position: 0}
	f.doing = &models.IssueStatus{TeamID: f.team.ID, Name: "Doing", Position: 1}
	f.foreign = &models.IssueStatus{TeamID: f.other.ID, Name: "Elsewhere", Position: 0}
	for _, st := range []*models.IssueStatus{f.backlog, f.doing, f.foreign} {
		require.NoError(t, store.CreateStatus(ctx, st))
	}

	roles := []struct {
		user **models.User
		mail string
		role models.TeamRole
	}{
		{&f.manager, "manager@acme.test", models.RoleManager},
		{&f.assistant, "assistant@acme.test", models.RoleAssistant},
		{&f.member, "member@acme.test", models.RoleMember},
		{&f.stakeholder, "stakeholder@acme.test", models.RoleStakeholder},
	}
	for _, r := range roles {
		u := &models.User{OrganizationID: org.ID, Email: r.mail, PasswordHash: "x"}
		require.NoError(t, store.CreateUser(ctx, u))
		require.NoError(t, store.AddTeamMember(ctx, &models.TeamMembership{
			TeamID: f.team.ID, UserID: u.ID, Role: r.role,
		}))
		*r.user = u
	}

	resolver := permissions.NewResolver(store, "")
	f.lc = New(store, resolver, zerolog.Nop())
	return f
}

func (f *fixture) createIssue(t *testing.T, actor *models.User) *models.Issue {
	t.Helper()
	issue := &models.Issue{TeamID: f.team.ID, Title: "flaky deploy"}
	require.NoError(t, f.lc.Create(context.Background(), issue, actor))
	return issue
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to first status and normal priority", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		assert.Equal(t, f.backlog.ID, issue.StatusID)
		assert.Equal(t, models.PriorityNormal, issue.Priority)
		assert.False(t, issue.IsOnHold)
		assert.Equal(t, f.member.ID, issue.CreatedBy)

		events, err := f.lc.Activities(ctx, issue.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, models.AuditCreated, events[0].Type)
	})

	t.Run("title is required", func(t *testing.T) {
		f := newFixture(t)
		err := f.lc.Create(ctx, &models.Issue{TeamID: f.team.ID, Title: "   "}, f.member)
		assert.Error(t, err)
	})

	t.Run("status must belong to the issue team", func(t *testing.T) {
		f := newFixture(t)
		err := f.lc.Create(ctx, &models.Issue{
			TeamID: f.team.ID, Title: "x", StatusID: f.foreign.ID,
		}, f.member)

		var wrongTeam *StatusNotInTeamError
		require.ErrorAs(t, err, &wrongTeam)
		assert.Equal(t, f.foreign.ID, wrongTeam.StatusID)
	})

	t.Run("stakeholder cannot create", func(t *testing.T) {
		f := newFixture(t)
		err := f.lc.Create(ctx, &models.Issue{TeamID: f.team.ID, Title: "x"}, f.stakeholder)

		var denied *PermissionDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "can_edit", denied.Capability)
	})

	t.Run("non-member cannot create", func(t *testing.T) {
		f := newFixture(t)
		outsider := &models.User{OrganizationID: f.team.OrganizationID, Email: "out@acme.test", PasswordHash: "x"}
		require.NoError(t, f.store.CreateUser(ctx, outsider))

		err := f.lc.Create(ctx, &models.Issue{TeamID: f.team.ID, Title: "x"}, outsider)
		var denied *PermissionDeniedError
		assert.ErrorAs(t, err, &denied)
	})
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the issue and records from and to", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		got, err := f.lc.ChangeStatus(ctx, issue.ID, f.doing.ID, f.member)
		require.NoError(t, err)
		assert.Equal(t, f.doing.ID, got.StatusID)

		events, err := f.lc.Activities(ctx, issue.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.AuditStatusChanged, events[0].Type)
		assert.Equal(t, f.backlog.ID, *events[0].FromStatusID)
		assert.Equal(t, f.doing.ID, *events[0].ToStatusID)
	})

	t.Run("same status is a silent no-op", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		got, err := f.lc.ChangeStatus(ctx, issue.ID, issue.StatusID, f.member)
		require.NoError(t, err)
		assert.Equal(t, issue.StatusID, got.StatusID)
		assert.Equal(t, issue.Version, got.Version)

		events, err := f.lc.Activities(ctx, issue.ID)
		require.NoError(t, err)
		assert.Len(t, events, 1) // only the creation event
	})

	t.Run("rejects a status from another team", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		_, err := f.lc.ChangeStatus(ctx, issue.ID, f.foreign.ID, f.member)
		var wrongTeam *StatusNotInTeamError
		assert.ErrorAs(t, err, &wrongTeam)
	})

	t.Run("works while on hold and keeps the hold", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)
		require.NoError(t, f.lc.Hold(ctx, issue.ID, "waiting on vendor", f.member))

		got, err := f.lc.ChangeStatus(ctx, issue.ID, f.doing.ID, f.member)
		require.NoError(t, err)
		assert.Equal(t, f.doing.ID, got.StatusID)
		assert.True(t, got.IsOnHold)
	})
}

func TestHold(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one unresolved record", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		require.NoError(t, f.lc.Hold(ctx, issue.ID, "  waiting on vendor  ", f.member))

		got, err := f.store.GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.True(t, got.IsOnHold)

		records, err := f.lc.HoldHistory(ctx, issue.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "waiting on vendor", records[0].Reason)
		assert.Equal(t, f.member.ID, records[0].CreatedBy)
		assert.False(t, records[0].Resolved())

		events, err := f.lc.Activities(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AuditHold, events[0].Type)
	})

	t.Run("empty reason leaves no trace", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		err := f.lc.Hold(ctx, issue.ID, "   ", f.member)
		var noReason *EmptyReasonError
		require.ErrorAs(t, err, &noReason)

		got, err := f.store.GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.False(t, got.IsOnHold)

		records, err := f.lc.HoldHistory(ctx, issue.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("double hold is rejected", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)
		require.NoError(t, f.lc.Hold(ctx, issue.ID, "first", f.member))

		err := f.lc.Hold(ctx, issue.ID, "second", f.member)
		var already *AlreadyOnHoldError
		require.ErrorAs(t, err, &already)

		records, err := f.lc.HoldHistory(ctx, issue.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("permission check runs before validation", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		// Even with an empty reason, a stakeholder sees the denial.
		err := f.lc.Hold(ctx, issue.ID, "", f.stakeholder)
		var denied *PermissionDeniedError
		assert.ErrorAs(t, err, &denied)
	})
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the open record and keeps history", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)
		require.NoError(t, f.lc.Hold(ctx, issue.ID, "waiting on vendor", f.member))

		require.NoError(t, f.lc.Resume(ctx, issue.ID, f.manager))

		got, err := f.store.GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.False(t, got.IsOnHold)

		records, err := f.lc.HoldHistory(ctx, issue.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.True(t, records[0].Resolved())
		assert.Equal(t, f.manager.ID, *records[0].ResolvedBy)
	})

	t.Run("resume without a hold is rejected", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		err := f.lc.Resume(ctx, issue.ID, f.member)
		var notOn *NotOnHoldError
		assert.ErrorAs(t, err, &notOn)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("manager can archive", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		require.NoError(t, f.lc.Delete(ctx, issue.ID, f.manager))
		_, err := f.store.GetIssue(ctx, issue.ID)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("assistant cannot delete despite managing", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		err := f.lc.Delete(ctx, issue.ID, f.assistant)
		var denied *PermissionDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "can_delete", denied.Capability)

		_, err = f.store.GetIssue(ctx, issue.ID)
		assert.NoError(t, err)
	})

	t.Run("member cannot delete", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		err := f.lc.Delete(ctx, issue.ID, f.member)
		var denied *PermissionDeniedError
		assert.ErrorAs(t, err, &denied)
	})
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("assistant can assign", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		a := &models.Assignment{UserID: f.member.ID}
		require.NoError(t, f.lc.Assign(ctx, issue.ID, a, f.assistant))
		assert.Equal(t, f.assistant.ID, a.AssignedBy)

		events, err := f.lc.Activities(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AuditAssigned, events[0].Type)
	})

	t.Run("member cannot assign", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(t, f.member)

		err := f.lc.Assign(ctx, issue.ID, &models.Assignment{UserID: f.member.ID}, f.member)
		var denied *PermissionDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "can_manage", denied.Capability)
	})
}

// TestHoldResumeHistory replays a full lifecycle and checks the ledgers
// tell the whole story, newest-first.
func TestHoldResumeHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issue := f.createIssue(t, f.member)

	require.NoError(t, f.lc.Hold(ctx, issue.ID, "waiting on vendor", f.member))
	_, err := f.lc.ChangeStatus(ctx, issue.ID, f.doing.ID, f.member)
	require.NoError(t, err)
	require.NoError(t, f.lc.Resume(ctx, issue.ID, f.manager))
	require.NoError(t, f.lc.Hold(ctx, issue.ID, "blocked on design", f.assistant))

	records, err := f.lc.HoldHistory(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "blocked on design", records[0].Reason)
	assert.False(t, records[0].Resolved())
	assert.Equal(t, "waiting on vendor", records[1].Reason)
	assert.True(t, records[1].Resolved())

	events, err := f.lc.Activities(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
	types := []models.AuditEventType{
		events[0].Type, events[1].Type, events[2].Type, events[3].Type, events[4].Type,
	}
	assert.Equal(t, []models.AuditEventType{
		models.AuditHold,
		models.AuditResumed,
		models.AuditStatusChanged,
		models.AuditHold,
		models.AuditCreated,
	}, types)
}

// TestConcurrentHolds races two holders; exactly one may win.
func TestConcurrentHolds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issue := f.createIssue(t, f.member)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	actors := []*models.User{f.member, f.assistant}
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor *models.User) {
			defer wg.Done()
			errs[i] = f.lc.Hold(ctx, issue.ID, "racing", actor)
		}(i, actor)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		var already *AlreadyOnHoldError
		var conflict *ConflictError
		assert.True(t, errors.As(err, &already) || errors.As(err, &conflict),
			"loser must see AlreadyOnHold or Conflict, got %v", err)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	records, err := f.lc.HoldHistory(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
