package permissions

import "taskboard-backend/pkg/models"

// Capabilities are the per-team permission flags derived from a role.
// They are computed, never stored.
type Capabilities struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanManage bool `json:"can_manage"`
}

// RoleCapabilities maps a team role to its capability set.
//
// Assistants act as delegated managers for day-to-day operations, so they
// get can_manage without can_delete. That asymmetry is deliberate.
func RoleCapabilities(role models.TeamRole) Capabilities {
	switch role {
	case models.RoleManager:
		return Capabilities{CanEdit: true, CanDelete: true, CanManage: true}
	case models.RoleAssistant:
		return Capabilities{CanEdit: true, CanDelete: false, CanManage: true}
	case models.RoleMember:
		return Capabilities{CanEdit: true, CanDelete: false, CanManage: false}
	case models.RoleStakeholder:
		return Capabilities{}
	}
	// Unknown roles carry no capability at all.
	return Capabilities{}
}

// IsManager reports whether the role runs the team day to day. Assistants
// count even though they cannot delete.
func IsManager(role models.TeamRole) bool {
	return role == models.RoleManager || role == models.RoleAssistant
}
