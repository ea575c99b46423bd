package handlers

import (
	"net/http"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/lifecycle"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// IssuesHandler is the HTTP surface of the issue lifecycle. Every
// mutation goes through the lifecycle service; the handler only decodes
// requests and maps domain errors onto status codes.
type IssuesHandler struct {
	config    *config.Config
	store     database.Store
	resolver  *permissions.Resolver
	lifecycle *lifecycle.Lifecycle
}

// NewIssuesHandler creates the issues handler.
func NewIssuesHandler(cfg *config.Config, store database.Store, resolver *permissions.Resolver, lc *lifecycle.Lifecycle) *IssuesHandler {
	return &IssuesHandler{config: cfg, store: store, resolver: resolver, lifecycle: lc}
}

func (h *IssuesHandler) actor(r *http.Request) (*models.User, error) {
	u, err := middleware.RequireUser(r.Context())
	if err != nil {
		return nil, err
	}
	return h.store.GetUserByID(r.Context(), u.ID)
}

// GET /api/issues?team_id=...
func (h *IssuesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	teamID := utils.GetQueryParam(r, "team_id", "")
	if teamID == "" {
		utils.WriteBadRequestResponse(w, "team_id query parameter is required")
		return
	}

	perms, err := h.resolver.Resolve(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, isMember := perms.Team(teamID); !isMember && !perms.IsOrgAdmin {
		utils.WriteForbiddenResponse(w, "Not a member of team")
		return
	}

	issues, err := h.store.ListIssuesByTeam(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"issues": issues})
}

// POST /api/issues
func (h *IssuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		TeamID      string               `json:"team_id"`
		StatusID    string               `json:"status_id"`
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Priority    models.IssuePriority `json:"priority"`
		Deadline    *time.Time           `json:"deadline"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.TeamID == "" {
		utils.WriteBadRequestResponse(w, "team_id is required")
		return
	}

	issue := &models.Issue{
		TeamID:      req.TeamID,
		StatusID:    req.StatusID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	}
	if err := h.lifecycle.Create(r.Context(), issue, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"issue": issue})
}

// GET /api/issues/{id}
//
// Returns the issue with its hold ledger (newest-first) and
// assignments, so a client can render the detail view in one call.
func (h *IssuesHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if _, err := h.actor(r); err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	issueID := chi.URLParam(r, "id")
	issue, err := h.store.GetIssue(r.Context(), issueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	holds, err := h.store.ListHoldRecords(r.Context(), issueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	assignments, err := h.store.ListAssignmentsByIssue(r.Context(), issueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"issue":        issue,
		"hold_reasons": holds,
		"assignments":  assignments,
	})
}

// PUT /api/issues/{id}
func (h *IssuesHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Priority    models.IssuePriority `json:"priority"`
		Deadline    *time.Time           `json:"deadline"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	patch := &models.Issue{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	}
	issue, err := h.lifecycle.Update(r.Context(), chi.URLParam(r, "id"), patch, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"issue": issue})
}

// DELETE /api/issues/{id}
func (h *IssuesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	issueID := chi.URLParam(r, "id")
	if err := h.lifecycle.Delete(r.Context(), issueID, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true, "id": issueID})
}

// POST /api/issues/{id}/status
func (h *IssuesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		StatusID string `json:"status_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.StatusID == "" {
		utils.WriteBadRequestResponse(w, "status_id is required")
		return
	}

	issue, err := h.lifecycle.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.StatusID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"issue": issue})
}

// POST /api/issues/{id}/hold
func (h *IssuesHandler) Hold(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	issueID := chi.URLParam(r, "id")
	if err := h.lifecycle.Hold(r.Context(), issueID, req.Reason, actor); err != nil {
		writeDomainError(w, err)
		return
	}

	holds, err := h.store.ListHoldRecords(r.Context(), issueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"hold_reasons": holds})
}

// POST /api/issues/{id}/resume
func (h *IssuesHandler) Resume(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	issueID := chi.URLParam(r, "id")
	if err := h.lifecycle.Resume(r.Context(), issueID, actor); err != nil {
		writeDomainError(w, err)
		return
	}

	holds, err := h.store.ListHoldRecords(r.Context(), issueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"hold_reasons": holds})
}

// POST /api/issues/{id}/assignments
func (h *IssuesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	var req struct {
		UserID    string    `json:"user_id"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.UserID == "" {
		utils.WriteBadRequestResponse(w, "user_id is required")
		return
	}

	a := &models.Assignment{
		UserID:    req.UserID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := h.lifecycle.Assign(r.Context(), chi.URLParam(r, "id"), a, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"assignment": a})
}

// GET /api/issues/{id}/activities
func (h *IssuesHandler) Activities(w http.ResponseWriter, r *http.Request) {
	if _, err := h.actor(r); err != nil {
		writeAuthOrDomainError(w, err)
		return
	}

	events, err := h.lifecycle.Activities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"activities": events})
}
