package permissions

import (
	"context"
	"errors"
	"fmt"

	"taskboard-backend/pkg/models"
)

// ErrDirectoryUnavailable wraps failures to reach the membership
// directory. It is transient; callers may retry. It is never returned
// for a user who simply has no memberships.
var ErrDirectoryUnavailable = errors.New("membership directory unavailable")

// Directory is the slice of the backing store the resolver reads.
// The resolver owns no state of its own.
type Directory interface {
	TeamLookup
	ListUserMemberships(ctx context.Context, userID string) ([]models.TeamMembership, error)
}

// TeamPermission is a user's resolved standing in one team.
type TeamPermission struct {
	TeamID    string          `json:"team_id"`
	TeamName  string          `json:"team_name"`
	Role      models.TeamRole `json:"role"`
	CanEdit   bool            `json:"can_edit"`
	CanDelete bool            `json:"can_delete"`
	CanManage bool            `json:"can_manage"`
}

// UserPermissions is a point-in-time capability snapshot for one user.
// It is valid as of the resolution read; any membership mutation
// afterwards requires a fresh Resolve to be observed.
type UserPermissions struct {
	UserID     string           `json:"user_id"`
	Email      string           `json:"email"`
	FullName   string           `json:"full_name"`
	Teams      []TeamPermission `json:"teams"`
	IsOrgAdmin bool             `json:"is_org_admin"`
}

// Team returns the snapshot entry for teamID, if the user is a direct
// member of that team.
func (p *UserPermissions) Team(teamID string) (TeamPermission, bool) {
	for _, t := range p.Teams {
		if t.TeamID == teamID {
			return t, true
		}
	}
	return TeamPermission{}, false
}

// CanEdit reports whether the user may edit issues in the team. Absence
// of membership means false, never an error.
func (p *UserPermissions) CanEdit(teamID string) bool {
	t, ok := p.Team(teamID)
	return ok && t.CanEdit
}

// CanDelete reports whether the user may delete issues in the team.
func (p *UserPermissions) CanDelete(teamID string) bool {
	t, ok := p.Team(teamID)
	return ok && t.CanDelete
}

// CanManage reports whether the user may manage the team.
func (p *UserPermissions) CanManage(teamID string) bool {
	t, ok := p.Team(teamID)
	return ok && t.CanManage
}

// Role returns the user's role in the team, if any.
func (p *UserPermissions) Role(teamID string) (models.TeamRole, bool) {
	t, ok := p.Team(teamID)
	return t.Role, ok
}

// Resolver turns membership rows into capability snapshots. It performs
// only reads and is safe for any number of concurrent callers.
type Resolver struct {
	dir Directory
	// adminTeamID designates the root team whose managers are treated
	// as org admins. Empty means no one is.
	adminTeamID string
}

// NewResolver creates a resolver over the given directory. adminTeamID
// is the externally supplied org-admin policy and may be empty.
func NewResolver(dir Directory, adminTeamID string) *Resolver {
	return &Resolver{dir: dir, adminTeamID: adminTeamID}
}

// Resolve computes the full per-team capability snapshot for the user.
// Membership is flat: a role in a parent team does not carry down to its
// children. A user with no memberships resolves to an empty team list.
func (r *Resolver) Resolve(ctx context.Context, user *models.User) (*UserPermissions, error) {
	memberships, err := r.dir.ListUserMemberships(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	perms := &UserPermissions{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Teams:    []TeamPermission{},
	}

	for _, m := range memberships {
		team, err := r.dir.GetTeam(ctx, m.TeamID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}

		caps := RoleCapabilities(m.Role)
		perms.Teams = append(perms.Teams, TeamPermission{
			TeamID:    m.TeamID,
			TeamName:  team.Name,
			Role:      m.Role,
			CanEdit:   caps.CanEdit,
			CanDelete: caps.CanDelete,
			CanManage: caps.CanManage,
		})

		if r.adminTeamID != "" && m.TeamID == r.adminTeamID && m.Role == models.RoleManager {
			perms.IsOrgAdmin = true
		}
	}

	return perms, nil
}
