package database

import (
	"context"
	"testing"
	"time"

	"taskboard-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIssue(t *testing.T, s *MemoryStore) *models.Issue {
	t.Helper()
	ctx := context.Background()

	org := &models.Organization{Name: "acme"}
	require.NoError(t, s.CreateOrganization(ctx, org))

	user := &models.User{OrganizationID: org.ID, Email: "dev@acme.test", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, user))

	team := &models.Team{OrganizationID: org.ID, Name: "eng"}
	require.NoError(t, s.CreateTeam(ctx, team))

	status := &models.IssueStatus{TeamID: team.ID, Name: "Backlog", Position: 0}
	require.NoError(t, s.CreateStatus(ctx, status))

	issue := &models.Issue{
		TeamID:    team.ID,
		StatusID:  status.ID,
		Title:     "flaky deploy",
		Priority:  models.PriorityNormal,
		CreatedBy: user.ID,
	}
	require.NoError(t, s.CreateIssue(ctx, issue))
	require.EqualValues(t, 1, issue.Version)
	return issue
}

func TestMemoryStoreCAS(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := seedIssue(t, s)

	t.Run("stale version is rejected", func(t *testing.T) {
		err := s.UpdateIssueStatus(ctx, issue.ID, issue.StatusID, issue.Version+5)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("matching version commits and bumps", func(t *testing.T) {
		require.NoError(t, s.UpdateIssueStatus(ctx, issue.ID, issue.StatusID, 1))

		got, err := s.GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.Version)

		// The old version no longer matches.
		err = s.UpdateIssueStatus(ctx, issue.ID, issue.StatusID, 1)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("missing issue is not a conflict", func(t *testing.T) {
		err := s.UpdateIssueStatus(ctx, "no-such-issue", "x", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreHoldLedger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := seedIssue(t, s)

	hold := &models.HoldRecord{Reason: "waiting on vendor", CreatedBy: issue.CreatedBy}
	require.NoError(t, s.HoldIssue(ctx, issue.ID, hold, issue.Version))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnHold)
	assert.EqualValues(t, 2, got.Version)

	resolvedAt := time.Now().UTC()
	require.NoError(t, s.ResumeIssue(ctx, issue.ID, issue.CreatedBy, resolvedAt, got.Version))

	got, err = s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnHold)

	// Second hold with a new reason.
	hold2 := &models.HoldRecord{Reason: "blocked on design", CreatedBy: issue.CreatedBy}
	require.NoError(t, s.HoldIssue(ctx, issue.ID, hold2, got.Version))

	records, err := s.ListHoldRecords(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest-first: the active hold leads, the resolved one follows.
	assert.Equal(t, "blocked on design", records[0].Reason)
	assert.False(t, records[0].Resolved())
	assert.Equal(t, "waiting on vendor", records[1].Reason)
	require.True(t, records[1].Resolved())
	assert.Equal(t, issue.CreatedBy, *records[1].ResolvedBy)
}

func TestMemoryStoreArchiveIssue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := seedIssue(t, s)

	require.NoError(t, s.ArchiveIssue(ctx, issue.ID))

	_, err := s.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	issues, err := s.ListIssuesByTeam(ctx, issue.TeamID)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.ErrorIs(t, s.ArchiveIssue(ctx, issue.ID), ErrNotFound)
}

func TestMemoryStoreMemberships(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	orgA := &models.Organization{Name: "a"}
	require.NoError(t, s.CreateOrganization(ctx, orgA))
	orgB := &models.Organization{Name: "b"}
	require.NoError(t, s.CreateOrganization(ctx, orgB))

	teamA := &models.Team{OrganizationID: orgA.ID, Name: "eng"}
	require.NoError(t, s.CreateTeam(ctx, teamA))

	inside := &models.User{OrganizationID: orgA.ID, Email: "in@a.test", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, inside))
	outside := &models.User{OrganizationID: orgB.ID, Email: "out@b.test", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, outside))

	t.Run("cross-org membership is rejected", func(t *testing.T) {
		err := s.AddTeamMember(ctx, &models.TeamMembership{
			TeamID: teamA.ID, UserID: outside.ID, Role: models.RoleMember,
		})
		assert.ErrorIs(t, err, ErrCrossOrgMembership)
	})

	t.Run("duplicate membership is rejected", func(t *testing.T) {
		m := &models.TeamMembership{TeamID: teamA.ID, UserID: inside.ID, Role: models.RoleMember}
		require.NoError(t, s.AddTeamMember(ctx, m))

		err := s.AddTeamMember(ctx, &models.TeamMembership{
			TeamID: teamA.ID, UserID: inside.ID, Role: models.RoleManager,
		})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestMemoryStoreStatusOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	org := &models.Organization{Name: "acme"}
	require.NoError(t, s.CreateOrganization(ctx, org))
	team := &models.Team{OrganizationID: org.ID, Name: "eng"}
	require.NoError(t, s.CreateTeam(ctx, team))

	done := &models.IssueStatus{TeamID: team.ID, Name: "Done", Position: 2}
	backlog := &models.IssueStatus{TeamID: team.ID, Name: "Backlog", Position: 0}
	doing := &models.IssueStatus{TeamID: team.ID, Name: "Doing", Position: 1}
	for _, st := range []*models.IssueStatus{done, backlog, doing} {
		require.NoError(t, s.CreateStatus(ctx, st))
	}

	statuses, err := s.ListStatusesByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.Equal(t, "Backlog", statuses[0].Name)
	assert.Equal(t, "Doing", statuses[1].Name)
	assert.Equal(t, "Done", statuses[2].Name)
}
