package handlers

import (
	"net/http"
	"strings"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// TeamsHandler serves team CRUD and membership management.
type TeamsHandler struct {
	config    *config.Config
	store     database.Store
	resolver  *permissions.Resolver
	hierarchy *permissions.Hierarchy
}

// NewTeamsHandler creates the teams handler.
func NewTeamsHandler(cfg *config.Config, store database.Store, resolver *permissions.Resolver) *TeamsHandler {
	return &TeamsHandler{
		config:    cfg,
		store:     store,
		resolver:  resolver,
		hierarchy: permissions.NewHierarchy(store),
	}
}

// resolveActor loads the full acting user and a fresh permission
// snapshot for them.
func (h *TeamsHandler) resolveActor(r *http.Request) (*models.User, *permissions.UserPermissions, error) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		return nil, nil, err
	}
	user, err := h.store.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		return nil, nil, err
	}
	perms, err := h.resolver.Resolve(r.Context(), user)
	if err != nil {
		return nil, nil, err
	}
	return user, perms, nil
}

// canManageTeam reports whether the snapshot allows managing the team.
// Org admins manage every team.
func canManageTeam(perms *permissions.UserPermissions, teamID string) bool {
	return perms.IsOrgAdmin || perms.CanManage(teamID)
}

// GET /api/teams
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teams, err := h.store.ListTeamsByOrganization(r.Context(), user.OrganizationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"teams": teams})
}

// POST /api/teams
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		Name         string  `json:"name"`
		Description  string  `json:"description"`
		ParentTeamID *string `json:"parent_team_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "name required")
		return
	}

	if req.ParentTeamID != nil {
		parent, err := h.store.GetTeam(r.Context(), *req.ParentTeamID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if parent.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "parent team belongs to a different organization")
			return
		}
	}

	team := &models.Team{
		OrganizationID: user.OrganizationID,
		ParentTeamID:   req.ParentTeamID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
	}
	if err := h.store.CreateTeam(r.Context(), team); err != nil {
		writeDomainError(w, err)
		return
	}

	// The creator runs the team they just made.
	member := &models.TeamMembership{TeamID: team.ID, UserID: user.ID, Role: models.RoleManager}
	if err := h.store.AddTeamMember(r.Context(), member); err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"team": team})
}

// GET /api/teams/{id}
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if team.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Team not found")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"team": team})
}

// PUT /api/teams/{id}
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !canManageTeam(perms, teamID) {
		utils.WriteForbiddenResponse(w, "Managing this team requires can_manage")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		team.Name = strings.TrimSpace(req.Name)
	}
	if req.Description != "" {
		team.Description = req.Description
	}

	if err := h.store.UpdateTeam(r.Context(), team); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"team": team})
}

// DELETE /api/teams/{id}
func (h *TeamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	if _, err := h.store.GetTeam(r.Context(), teamID); err != nil {
		writeDomainError(w, err)
		return
	}
	if !canManageTeam(perms, teamID) {
		utils.WriteForbiddenResponse(w, "Deleting this team requires can_manage")
		return
	}

	if err := h.store.DeleteTeam(r.Context(), teamID); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": teamID})
}

// GET /api/teams/{id}/ancestors
//
// Walks parent links nearest-first. A malformed (cyclic) chain is
// reported, never silently truncated.
func (h *TeamsHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if team.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Team not found")
		return
	}

	chain, err := h.hierarchy.Ancestors(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"ancestors": chain})
}

// GET /api/teams/{id}/members
func (h *TeamsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	if _, isMember := perms.Team(teamID); !isMember && !perms.IsOrgAdmin {
		utils.WriteForbiddenResponse(w, "Not a member of team")
		return
	}

	members, err := h.store.ListTeamMembers(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"members": members})
}

// POST /api/teams/{id}/members
//
// Adding or re-roling a member invalidates any permission snapshot the
// client holds; it must re-fetch /api/user/permissions.
func (h *TeamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	if !canManageTeam(perms, teamID) {
		utils.WriteForbiddenResponse(w, "Managing members requires can_manage")
		return
	}

	var req struct {
		Email string          `json:"email"`
		Role  models.TeamRole `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		utils.WriteBadRequestResponse(w, "invalid role")
		return
	}

	target, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	member := &models.TeamMembership{TeamID: teamID, UserID: target.ID, Role: req.Role}
	if err := h.store.AddTeamMember(r.Context(), member); err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"membership": member})
}

// DELETE /api/teams/{id}/members/{userID}
func (h *TeamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	if !canManageTeam(perms, teamID) {
		utils.WriteForbiddenResponse(w, "Managing members requires can_manage")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.store.RemoveTeamMember(r.Context(), teamID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"removed": true, "user_id": userID})
}
