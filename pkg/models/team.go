package models

import "time"

// Team is a group of users under an organization. Teams may nest via
// ParentTeamID; the link is a plain reference, acyclicity is not
// guaranteed by the team-management side and must be checked on traversal.
type Team struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	ParentTeamID   *string   `json:"parent_team_id,omitempty" db:"parent_team_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TeamRole is a user's standing within one team. A user may hold a
// different role in every team they belong to.
type TeamRole string

const (
	RoleMember      TeamRole = "member"
	RoleAssistant   TeamRole = "assistant"
	RoleManager     TeamRole = "manager"
	RoleStakeholder TeamRole = "stakeholder"
)

// Valid reports whether r is one of the four known roles.
func (r TeamRole) Valid() bool {
	switch r {
	case RoleMember, RoleAssistant, RoleManager, RoleStakeholder:
		return true
	}
	return false
}

// TeamMembership relates a user to a team with a role. The (team, user)
// pair is unique.
type TeamMembership struct {
	ID       string    `json:"id" db:"id"`
	TeamID   string    `json:"team_id" db:"team_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Role     TeamRole  `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
