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

const defaultStatusColor = "#6B7280"

// StatusesHandler manages a team's workflow columns.
type StatusesHandler struct {
	config   *config.Config
	store    database.Store
	resolver *permissions.Resolver
}

// NewStatusesHandler creates the statuses handler.
func NewStatusesHandler(cfg *config.Config, store database.Store, resolver *permissions.Resolver) *StatusesHandler {
	return &StatusesHandler{config: cfg, store: store, resolver: resolver}
}

func (h *StatusesHandler) resolveActor(r *http.Request) (*models.User, *permissions.UserPermissions, error) {
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

// GET /api/teams/{id}/statuses
//
// Columns come back in board order: ascending position, ties by id.
func (h *StatusesHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
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

	statuses, err := h.store.ListStatusesByTeam(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"statuses": statuses})
}

// POST /api/teams/{id}/statuses
func (h *StatusesHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := chi.URLParam(r, "id")
	if !canManageTeam(perms, teamID) {
		utils.WriteForbiddenResponse(w, "Managing statuses requires can_manage")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Color    string `json:"color"`
		Position int    `json:"position"`
		IsFinal  bool   `json:"is_final"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "name required")
		return
	}
	if strings.TrimSpace(req.Color) == "" {
		req.Color = defaultStatusColor
	}

	status := &models.IssueStatus{
		TeamID:   teamID,
		Name:     strings.TrimSpace(req.Name),
		Color:    req.Color,
		Position: req.Position,
		IsFinal:  req.IsFinal,
	}
	if err := h.store.CreateStatus(r.Context(), status); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"status": status})
}

// PUT /api/statuses/{id}
func (h *StatusesHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	status, err := h.store.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !canManageTeam(perms, status.TeamID) {
		utils.WriteForbiddenResponse(w, "Managing statuses requires can_manage")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Color    string `json:"color"`
		Position *int   `json:"position"`
		IsFinal  *bool  `json:"is_final"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		status.Name = strings.TrimSpace(req.Name)
	}
	if strings.TrimSpace(req.Color) != "" {
		status.Color = req.Color
	}
	if req.Position != nil {
		status.Position = *req.Position
	}
	if req.IsFinal != nil {
		status.IsFinal = *req.IsFinal
	}

	if err := h.store.UpdateStatus(r.Context(), status); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"status": status})
}

// DELETE /api/statuses/{id}
func (h *StatusesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, perms, err := h.resolveActor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	status, err := h.store.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !canManageTeam(perms, status.TeamID) {
		utils.WriteForbiddenResponse(w, "Managing statuses requires can_manage")
		return
	}

	if err := h.store.DeleteStatus(r.Context(), status.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": status.ID})
}
