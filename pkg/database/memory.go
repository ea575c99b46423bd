package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskboard-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used for local development and
// tests. It applies the same compare-and-swap rules as the Postgres
// implementation; a single mutex serializes commits, so a stale version
// always surfaces as ErrVersionConflict rather than a lost update.
type MemoryStore struct {
	mu sync.Mutex

	users         map[string]*models.User
	organizations map[string]*models.Organization
	teams         map[string]*models.Team
	memberships   map[string]*models.TeamMembership // key: teamID + "/" + userID
	statuses      map[string]*models.IssueStatus
	issues        map[string]*models.Issue
	archived      map[string]*models.Issue
	holds         map[string][]*models.HoldRecord // by issue id, append order
	assignments   map[string][]*models.Assignment
	audit         map[string][]*models.AuditEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*models.User),
		organizations: make(map[string]*models.Organization),
		teams:         make(map[string]*models.Team),
		memberships:   make(map[string]*models.TeamMembership),
		statuses:      make(map[string]*models.IssueStatus),
		issues:        make(map[string]*models.Issue),
		archived:      make(map[string]*models.Issue),
		holds:         make(map[string][]*models.HoldRecord),
		assignments:   make(map[string][]*models.Assignment),
		audit:         make(map[string][]*models.AuditEvent),
	}
}

func membershipKey(teamID, userID string) string {
	return teamID + "/" + userID
}

// ==== Users ====

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ==== Organizations ====

func (s *MemoryStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	cp := *org
	s.organizations[org.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

// ==== Teams ====

func (s *MemoryStore) CreateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if team.ID == "" {
		team.ID = uuid.New().String()
	}
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	cp := *team
	s.teams[team.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTeamsByOrganization(ctx context.Context, orgID string) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var teams []models.Team
	for _, t := range s.teams {
		if t.OrganizationID == orgID {
			teams = append(teams, *t)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (s *MemoryStore) UpdateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[team.ID]; !ok {
		return ErrNotFound
	}
	team.UpdatedAt = time.Now()
	cp := *team
	s.teams[team.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return ErrNotFound
	}
	delete(s.teams, id)
	for key := range s.memberships {
		if strings.HasPrefix(key, id+"/") {
			delete(s.memberships, key)
		}
	}
	return nil
}

// ==== Memberships ====

func (s *MemoryStore) AddTeamMember(ctx context.Context, m *models.TeamMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[m.TeamID]
	if !ok {
		return ErrNotFound
	}
	user, ok := s.users[m.UserID]
	if !ok {
		return ErrNotFound
	}
	if user.OrganizationID != team.OrganizationID {
		return ErrCrossOrgMembership
	}

	key := membershipKey(m.TeamID, m.UserID)
	if _, ok := s.memberships[key]; ok {
		return ErrDuplicate
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.JoinedAt = time.Now()
	cp := *m
	s.memberships[key] = &cp
	return nil
}

func (s *MemoryStore) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey(teamID, userID)
	if _, ok := s.memberships[key]; !ok {
		return ErrNotFound
	}
	delete(s.memberships, key)
	return nil
}

func (s *MemoryStore) GetTeamMember(ctx context.Context, teamID, userID string) (*models.TeamMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipKey(teamID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListTeamMembers(ctx context.Context, teamID string) ([]models.TeamMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members []models.TeamMembership
	for _, m := range s.memberships {
		if m.TeamID == teamID {
			members = append(members, *m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (s *MemoryStore) ListUserMemberships(ctx context.Context, userID string) ([]models.TeamMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var memberships []models.TeamMembership
	for _, m := range s.memberships {
		if m.UserID == userID {
			memberships = append(memberships, *m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].TeamID < memberships[j].TeamID })
	return memberships, nil
}

// ==== Statuses ====

func (s *MemoryStore) CreateStatus(ctx context.Context, status *models.IssueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status.ID == "" {
		status.ID = uuid.New().String()
	}
	status.CreatedAt = time.Now()
	cp := *status
	s.statuses[status.ID] = &cp
	return nil
}

func (s *MemoryStore) GetStatus(ctx context.Context, id string) (*models.IssueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) ListStatusesByTeam(ctx context.Context, teamID string) ([]models.IssueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var statuses []models.IssueStatus
	for _, st := range s.statuses {
		if st.TeamID == teamID {
			statuses = append(statuses, *st)
		}
	}
	models.SortStatuses(statuses)
	return statuses, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, status *models.IssueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[status.ID]; !ok {
		return ErrNotFound
	}
	cp := *status
	s.statuses[status.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteStatus(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[id]; !ok {
		return ErrNotFound
	}
	delete(s.statuses, id)
	return nil
}

// ==== Issues ====

func (s *MemoryStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID == "" {
		issue.ID = uuid.New().String()
	}
	issue.Version = 1
	issue.CreatedAt = time.Now()
	issue.UpdatedAt = issue.CreatedAt
	cp := *issue
	s.issues[issue.ID] = &cp
	return nil
}

func (s *MemoryStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *issue
	return &cp, nil
}

func (s *MemoryStore) ListIssuesByTeam(ctx context.Context, teamID string) ([]models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issues []models.Issue
	for _, issue := range s.issues {
		if issue.TeamID == teamID {
			issues = append(issues, *issue)
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].CreatedAt.After(issues[j].CreatedAt) })
	return issues, nil
}

// casIssue returns the live issue row iff the expected version matches.
// Caller must hold s.mu.
func (s *MemoryStore) casIssue(id string, expectedVersion int64) (*models.Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	if issue.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	return issue, nil
}

func (s *MemoryStore) UpdateIssue(ctx context.Context, issue *models.Issue, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.casIssue(issue.ID, expectedVersion)
	if err != nil {
		return err
	}
	current.Title = issue.Title
	current.Description = issue.Description
	current.Priority = issue.Priority
	current.Deadline = issue.Deadline
	current.Version++
	current.UpdatedAt = time.Now()
	issue.Version = current.Version
	return nil
}

func (s *MemoryStore) UpdateIssueStatus(ctx context.Context, issueID, statusID string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.casIssue(issueID, expectedVersion)
	if err != nil {
		return err
	}
	issue.StatusID = statusID
	issue.Version++
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) HoldIssue(ctx context.Context, issueID string, rec *models.HoldRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.casIssue(issueID, expectedVersion)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.IssueID = issueID
	rec.CreatedAt = time.Now()
	cp := *rec
	s.holds[issueID] = append(s.holds[issueID], &cp)
	issue.IsOnHold = true
	issue.Version++
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ResumeIssue(ctx context.Context, issueID, resolvedBy string, resolvedAt time.Time, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.casIssue(issueID, expectedVersion)
	if err != nil {
		return err
	}
	for _, rec := range s.holds[issueID] {
		if rec.ResolvedAt == nil {
			at := resolvedAt
			by := resolvedBy
			rec.ResolvedAt = &at
			rec.ResolvedBy = &by
		}
	}
	issue.IsOnHold = false
	issue.Version++
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ArchiveIssue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.issues, id)
	s.archived[id] = issue
	return nil
}

func (s *MemoryStore) ListHoldRecords(ctx context.Context, issueID string) ([]models.HoldRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.holds[issueID]
	out := make([]models.HoldRecord, 0, len(records))
	// Stored oldest-first, served newest-first.
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, *records[i])
	}
	return out, nil
}

// ==== Assignments ====

func (s *MemoryStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[a.IssueID]; !ok {
		return ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.AssignedAt = time.Now()
	cp := *a
	s.assignments[a.IssueID] = append(s.assignments[a.IssueID], &cp)
	return nil
}

func (s *MemoryStore) ListAssignmentsByIssue(ctx context.Context, issueID string) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Assignment, 0, len(s.assignments[issueID]))
	for _, a := range s.assignments[issueID] {
		out = append(out, *a)
	}
	return out, nil
}

// ==== Audit trail ====

func (s *MemoryStore) AppendAuditEvent(ctx context.Context, ev *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = time.Now()
	cp := *ev
	s.audit[ev.IssueID] = append(s.audit[ev.IssueID], &cp)
	return nil
}

func (s *MemoryStore) ListAuditEvents(ctx context.Context, issueID string) ([]models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.audit[issueID]
	out := make([]models.AuditEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, *events[i])
	}
	return out, nil
}
