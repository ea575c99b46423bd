package handlers

import (
	"net/http"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"
)

// UsersHandler serves user-scoped reads, most importantly the
// permission snapshot the client gates its UI on.
type UsersHandler struct {
	config   *config.Config
	store    database.Store
	resolver *permissions.Resolver
}

// NewUsersHandler creates the users handler.
func NewUsersHandler(cfg *config.Config, store database.Store, resolver *permissions.Resolver) *UsersHandler {
	return &UsersHandler{config: cfg, store: store, resolver: resolver}
}

// GET /api/user/permissions
//
// The snapshot is computed from the directory at call time. Clients must
// re-fetch after any membership change to observe new permissions.
func (h *UsersHandler) GetMyPermissions(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	// The token only carries id+email; load the full profile.
	user, err := h.store.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	perms, err := h.resolver.Resolve(r.Context(), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, perms)
}

// GET /api/user/me
func (h *UsersHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"user": user})
}

// GET /api/user/organization
func (h *UsersHandler) GetMyOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	org, err := h.store.GetOrganization(r.Context(), user.OrganizationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"organization": org})
}
