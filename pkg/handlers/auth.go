package handlers

import (
	"net/http"
	"strings"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"
)

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	config *config.Config
	store  database.Store
	jwt    *utils.JWTService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(cfg *config.Config, store database.Store) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		store:  store,
		jwt:    utils.NewJWTService(cfg.JWTSecret),
	}
}

// HealthCheck responds to liveness probes.
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{"status": "ok"})
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		FullName         string `json:"full_name"`
		OrganizationID   string `json:"organization_id"`
		OrganizationName string `json:"organization_name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		utils.WriteBadRequestResponse(w, "email, password and full_name are required")
		return
	}

	orgID := strings.TrimSpace(req.OrganizationID)
	if orgID == "" {
		// First user of a new tenant provisions the organization.
		if strings.TrimSpace(req.OrganizationName) == "" {
			utils.WriteBadRequestResponse(w, "organization_id or organization_name is required")
			return
		}
		org := &models.Organization{Name: strings.TrimSpace(req.OrganizationName)}
		if err := h.store.CreateOrganization(r.Context(), org); err != nil {
			writeDomainError(w, err)
			return
		}
		orgID = org.ID
	} else {
		if _, err := h.store.GetOrganization(r.Context(), orgID); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to hash password")
		return
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          req.Email,
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(req.FullName),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}

	access, refresh, expiresAt, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"user":          user,
		"access_token":  access,
		"refresh_token": refresh,
		"expires_at":    expiresAt,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || !utils.VerifyPassword(req.Password, user.PasswordHash) {
		// Same response either way so the endpoint does not leak which
		// accounts exist.
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	access, refresh, expiresAt, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user":          user,
		"access_token":  access,
		"refresh_token": refresh,
		"expires_at":    expiresAt,
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil || req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "refresh_token required")
		return
	}

	access, expiresAt, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": access,
		"expires_at":   expiresAt,
	})
}
