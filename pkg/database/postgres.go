package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard-backend/pkg/models"

	"github.com/lib/pq"
)

// PostgresStore is the production Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against the given DSN and
// verifies it with a ping.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Stats exposes pool statistics for the debug endpoint.
func (s *PostgresStore) Stats() sql.DBStats {
	return s.db.Stats()
}

// translateErr maps driver-level failures onto the store sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// ==== Users ====

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, organization_id, email, password_hash, full_name, created_at, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.OrganizationID, user.Email, user.PasswordHash, user.FullName).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, organization_id, email, password_hash, full_name, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, organization_id, email, password_hash, full_name, created_at, updated_at
		FROM users WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

// ==== Organizations ====

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, description, created_at, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, org.ID, org.Name, org.Description).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), created_at, updated_at
		FROM organizations WHERE id = $1
	`
	var org models.Organization
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&org.ID, &org.Name, &org.Description, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &org, nil
}

// ==== Teams ====

func (s *PostgresStore) CreateTeam(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, organization_id, parent_team_id, name, description, created_at, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		team.ID, team.OrganizationID, team.ParentTeamID, team.Name, team.Description).
		Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, organization_id, parent_team_id, name, COALESCE(description, ''), created_at, updated_at
		FROM teams WHERE id = $1
	`
	var t models.Team
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.OrganizationID, &t.ParentTeamID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTeamsByOrganization(ctx context.Context, orgID string) ([]models.Team, error) {
	query := `
		SELECT id, organization_id, parent_team_id, name, COALESCE(description, ''), created_at, updated_at
		FROM teams WHERE organization_id = $1 ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.ParentTeamID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *PostgresStore) UpdateTeam(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET name = $2, description = $3, parent_team_id = $4, updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, team.ID, team.Name, team.Description, team.ParentTeamID)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return s.requireRow(res)
}

func (s *PostgresStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return s.requireRow(res)
}

// requireRow converts a zero-row exec result into ErrNotFound.
func (s *PostgresStore) requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Memberships ====

func (s *PostgresStore) AddTeamMember(ctx context.Context, m *models.TeamMembership) error {
	// Reject cross-organization memberships up front; the schema cannot
	// express this constraint on its own.
	var sameOrg bool
	err := s.db.QueryRowContext(ctx, `
		SELECT u.organization_id = t.organization_id
		FROM users u, teams t WHERE u.id = $1 AND t.id = $2
	`, m.UserID, m.TeamID).Scan(&sameOrg)
	if err != nil {
		return translateErr(err)
	}
	if !sameOrg {
		return ErrCrossOrgMembership
	}

	query := `
		INSERT INTO team_members (id, team_id, user_id, role, joined_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NOW())
		RETURNING id, joined_at
	`
	err = s.db.QueryRowContext(ctx, query, m.ID, m.TeamID, m.UserID, string(m.Role)).
		Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return s.requireRow(res)
}

func (s *PostgresStore) GetTeamMember(ctx context.Context, teamID, userID string) (*models.TeamMembership, error) {
	query := `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members WHERE team_id = $1 AND user_id = $2
	`
	var m models.TeamMembership
	err := s.db.QueryRowContext(ctx, query, teamID, userID).
		Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &m, nil
}

func (s *PostgresStore) ListTeamMembers(ctx context.Context, teamID string) ([]models.TeamMembership, error) {
	query := `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members WHERE team_id = $1 ORDER BY joined_at ASC
	`
	return s.queryMemberships(ctx, query, teamID)
}

func (s *PostgresStore) ListUserMemberships(ctx context.Context, userID string) ([]models.TeamMembership, error) {
	query := `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members WHERE user_id = $1 ORDER BY team_id ASC
	`
	return s.queryMemberships(ctx, query, userID)
}

func (s *PostgresStore) queryMemberships(ctx context.Context, query string, arg interface{}) ([]models.TeamMembership, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.TeamMembership
	for rows.Next() {
		var m models.TeamMembership
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// ==== Statuses ====

func (s *PostgresStore) CreateStatus(ctx context.Context, status *models.IssueStatus) error {
	query := `
		INSERT INTO issue_statuses (id, team_id, name, color, position, is_final, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		status.ID, status.TeamID, status.Name, status.Color, status.Position, status.IsFinal).
		Scan(&status.ID, &status.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create status: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetStatus(ctx context.Context, id string) (*models.IssueStatus, error) {
	query := `
		SELECT id, team_id, name, color, position, is_final, created_at
		FROM issue_statuses WHERE id = $1
	`
	var st models.IssueStatus
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&st.ID, &st.TeamID, &st.Name, &st.Color, &st.Position, &st.IsFinal, &st.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &st, nil
}

func (s *PostgresStore) ListStatusesByTeam(ctx context.Context, teamID string) ([]models.IssueStatus, error) {
	// Ties in position break by id so column order is deterministic.
	query := `
		SELECT id, team_id, name, color, position, is_final, created_at
		FROM issue_statuses WHERE team_id = $1 ORDER BY position ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.IssueStatus
	for rows.Next() {
		var st models.IssueStatus
		if err := rows.Scan(&st.ID, &st.TeamID, &st.Name, &st.Color, &st.Position, &st.IsFinal, &st.CreatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, status *models.IssueStatus) error {
	query := `
		UPDATE issue_statuses SET name = $2, color = $3, position = $4, is_final = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		status.ID, status.Name, status.Color, status.Position, status.IsFinal)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return s.requireRow(res)
}

func (s *PostgresStore) DeleteStatus(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM issue_statuses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return s.requireRow(res)
}

// ==== Issues ====

func (s *PostgresStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (id, team_id, status_id, title, description, priority, deadline,
		                    created_by, is_on_hold, version, created_at, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, FALSE, 1, NOW(), NOW())
		RETURNING id, version, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		issue.ID, issue.TeamID, issue.StatusID, issue.Title, issue.Description,
		string(issue.Priority), issue.Deadline, issue.CreatedBy).
		Scan(&issue.ID, &issue.Version, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	query := `
		SELECT id, team_id, status_id, title, COALESCE(description, ''), priority, deadline,
		       created_by, is_on_hold, version, created_at, updated_at
		FROM issues WHERE id = $1 AND archived_at IS NULL
	`
	var issue models.Issue
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&issue.ID, &issue.TeamID, &issue.StatusID, &issue.Title, &issue.Description,
		&issue.Priority, &issue.Deadline, &issue.CreatedBy, &issue.IsOnHold,
		&issue.Version, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &issue, nil
}

func (s *PostgresStore) ListIssuesByTeam(ctx context.Context, teamID string) ([]models.Issue, error) {
	query := `
		SELECT id, team_id, status_id, title, COALESCE(description, ''), priority, deadline,
		       created_by, is_on_hold, version, created_at, updated_at
		FROM issues WHERE team_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var issue models.Issue
		if err := rows.Scan(
			&issue.ID, &issue.TeamID, &issue.StatusID, &issue.Title, &issue.Description,
			&issue.Priority, &issue.Deadline, &issue.CreatedBy, &issue.IsOnHold,
			&issue.Version, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *PostgresStore) UpdateIssue(ctx context.Context, issue *models.Issue, expectedVersion int64) error {
	query := `
		UPDATE issues
		SET title = $3, description = $4, priority = $5, deadline = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND archived_at IS NULL
		RETURNING version
	`
	err := s.db.QueryRowContext(ctx, query,
		issue.ID, expectedVersion, issue.Title, issue.Description,
		string(issue.Priority), issue.Deadline).Scan(&issue.Version)
	if err != nil {
		return s.casError(ctx, issue.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateIssueStatus(ctx context.Context, issueID, statusID string, expectedVersion int64) error {
	query := `
		UPDATE issues SET status_id = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND archived_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, issueID, expectedVersion, statusID)
	if err != nil {
		return fmt.Errorf("failed to update issue status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.casError(ctx, issueID, sql.ErrNoRows)
	}
	return nil
}

// HoldIssue inserts the hold record and flips is_on_hold inside one
// transaction so the denormalized flag can never drift from the ledger.
func (s *PostgresStore) HoldIssue(ctx context.Context, issueID string, rec *models.HoldRecord, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin hold transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE issues SET is_on_hold = TRUE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND archived_at IS NULL
	`, issueID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to mark issue on hold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.casError(ctx, issueID, sql.ErrNoRows)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO issue_hold_reasons (id, issue_id, reason, created_by, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NOW())
		RETURNING id, created_at
	`, rec.ID, issueID, rec.Reason, rec.CreatedBy).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create hold record: %w", translateErr(err))
	}
	rec.IssueID = issueID

	return tx.Commit()
}

// ResumeIssue resolves the open hold record and clears is_on_hold in one
// transaction, mirroring HoldIssue.
func (s *PostgresStore) ResumeIssue(ctx context.Context, issueID, resolvedBy string, resolvedAt time.Time, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin resume transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE issues SET is_on_hold = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND archived_at IS NULL
	`, issueID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to clear issue hold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.casError(ctx, issueID, sql.ErrNoRows)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE issue_hold_reasons SET resolved_at = $2, resolved_by = $3
		WHERE issue_id = $1 AND resolved_at IS NULL
	`, issueID, resolvedAt, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve hold record: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) ArchiveIssue(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issues SET archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND archived_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to archive issue: %w", err)
	}
	return s.requireRow(res)
}

func (s *PostgresStore) ListHoldRecords(ctx context.Context, issueID string) ([]models.HoldRecord, error) {
	query := `
		SELECT id, issue_id, reason, created_by, created_at, resolved_at, resolved_by
		FROM issue_hold_reasons WHERE issue_id = $1 ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hold records: %w", err)
	}
	defer rows.Close()

	var records []models.HoldRecord
	for rows.Next() {
		var rec models.HoldRecord
		if err := rows.Scan(&rec.ID, &rec.IssueID, &rec.Reason, &rec.CreatedBy,
			&rec.CreatedAt, &rec.ResolvedAt, &rec.ResolvedBy); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// casError distinguishes "row gone" from "row moved on" after a
// zero-row compare-and-swap update.
func (s *PostgresStore) casError(ctx context.Context, issueID string, cause error) error {
	if !errors.Is(cause, sql.ErrNoRows) {
		return cause
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM issues WHERE id = $1 AND archived_at IS NULL)`,
		issueID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

// ==== Assignments ====

func (s *PostgresStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO issue_assignments (id, issue_id, user_id, start_date, end_date, assigned_by, assigned_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, NOW())
		RETURNING id, assigned_at
	`
	err := s.db.QueryRowContext(ctx, query,
		a.ID, a.IssueID, a.UserID, a.StartDate, a.EndDate, a.AssignedBy).
		Scan(&a.ID, &a.AssignedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) ListAssignmentsByIssue(ctx context.Context, issueID string) ([]models.Assignment, error) {
	query := `
		SELECT id, issue_id, user_id, start_date, end_date, assigned_by, assigned_at
		FROM issue_assignments WHERE issue_id = $1 ORDER BY assigned_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.UserID, &a.StartDate, &a.EndDate,
			&a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ==== Audit trail ====

func (s *PostgresStore) AppendAuditEvent(ctx context.Context, ev *models.AuditEvent) error {
	query := `
		INSERT INTO issue_audit_events (id, issue_id, actor_id, event_type, description,
		                                from_status_id, to_status_id, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		ev.ID, ev.IssueID, ev.ActorID, string(ev.Type), ev.Description,
		ev.FromStatusID, ev.ToStatusID).
		Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, issueID string) ([]models.AuditEvent, error) {
	query := `
		SELECT id, issue_id, actor_id, event_type, description, from_status_id, to_status_id, created_at
		FROM issue_audit_events WHERE issue_id = $1 ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var ev models.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.IssueID, &ev.ActorID, &ev.Type, &ev.Description,
			&ev.FromStatusID, &ev.ToStatusID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
