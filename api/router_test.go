package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	cfg := &config.Config{
		Environment:    "test",
		Port:           "8080",
		UseLocalDB:     true,
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"*"},
	}
	return NewRouter(cfg, database.NewMemoryStore(), zerolog.Nop())
}

// do performs one JSON request against the router and decodes the
// envelope.
func do(t *testing.T, router http.Handler, method, path, token string, body interface{}) (int, utils.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec.Code, resp
}

func dataMap(t *testing.T, resp utils.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is not an object: %#v", resp.Data)
	return m
}

func field(t *testing.T, m map[string]interface{}, keys ...string) interface{} {
	t.Helper()
	var cur interface{} = m
	for _, k := range keys {
		obj, ok := cur.(map[string]interface{})
		require.True(t, ok, "not an object at %q", k)
		cur = obj[k]
	}
	return cur
}

func TestAPIFlow(t *testing.T) {
	router := newTestRouter(t)

	// Register the first user, provisioning an organization.
	code, resp := do(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":             "manager@acme.test",
		"password":          "hunter22",
		"full_name":         "Morgan Manager",
		"organization_name": "Acme",
	})
	require.Equal(t, http.StatusCreated, code)
	data := dataMap(t, resp)
	token := field(t, data, "access_token").(string)
	require.NotEmpty(t, token)

	// Unauthenticated requests are rejected up front.
	code, _ = do(t, router, http.MethodGet, "/api/teams/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Create a team; the creator becomes its manager.
	code, resp = do(t, router, http.MethodPost, "/api/teams/", token, map[string]string{"name": "Engineering"})
	require.Equal(t, http.StatusCreated, code)
	teamID := field(t, dataMap(t, resp), "team", "id").(string)

	// Set up a workflow column.
	code, resp = do(t, router, http.MethodPost, "/api/teams/"+teamID+"/statuses", token, map[string]interface{}{
		"name": "Backlog", "position": 0,
	})
	require.Equal(t, http.StatusCreated, code)

	// Create an issue in the team.
	code, resp = do(t, router, http.MethodPost, "/api/issues/", token, map[string]string{
		"team_id": teamID,
		"title":   "flaky deploy",
	})
	require.Equal(t, http.StatusCreated, code)
	issueID := field(t, dataMap(t, resp), "issue", "id").(string)

	// Hold without a reason is a 400.
	code, resp = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/hold", token, map[string]string{"reason": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_REASON", resp.Error.Code)

	// Hold with a reason succeeds.
	code, _ = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/hold", token, map[string]string{"reason": "waiting on vendor"})
	require.Equal(t, http.StatusOK, code)

	// A second hold conflicts.
	code, resp = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/hold", token, map[string]string{"reason": "again"})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_ON_HOLD", resp.Error.Code)

	// Resume clears the hold.
	code, resp = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/resume", token, nil)
	require.Equal(t, http.StatusOK, code)
	holds := field(t, dataMap(t, resp), "hold_reasons").([]interface{})
	require.Len(t, holds, 1)

	// Resuming again conflicts.
	code, resp = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/resume", token, nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_ON_HOLD", resp.Error.Code)

	// The audit trail saw it all, newest-first.
	code, resp = do(t, router, http.MethodGet, "/api/issues/"+issueID+"/activities", token, nil)
	require.Equal(t, http.StatusOK, code)
	events := field(t, dataMap(t, resp), "activities").([]interface{})
	require.Len(t, events, 3)
	assert.Equal(t, "resumed", field(t, events[0].(map[string]interface{}), "type"))
	assert.Equal(t, "hold", field(t, events[1].(map[string]interface{}), "type"))
	assert.Equal(t, "created", field(t, events[2].(map[string]interface{}), "type"))

	// The issue detail includes the resolved hold ledger.
	code, resp = do(t, router, http.MethodGet, "/api/issues/"+issueID, token, nil)
	require.Equal(t, http.StatusOK, code)
	detail := dataMap(t, resp)
	assert.Equal(t, false, field(t, detail, "issue", "is_on_hold"))
	holds = field(t, detail, "hold_reasons").([]interface{})
	require.Len(t, holds, 1)
	assert.NotNil(t, field(t, holds[0].(map[string]interface{}), "resolved_at"))
}

func TestAPIPermissionBoundaries(t *testing.T) {
	router := newTestRouter(t)

	// Manager registers and sets up the board.
	code, resp := do(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "manager@acme.test", "password": "hunter22", "full_name": "Morgan",
		"organization_name": "Acme",
	})
	require.Equal(t, http.StatusCreated, code)
	managerToken := field(t, dataMap(t, resp), "access_token").(string)
	orgID := field(t, dataMap(t, resp), "user", "organization_id").(string)

	code, resp = do(t, router, http.MethodPost, "/api/teams/", managerToken, map[string]string{"name": "Engineering"})
	require.Equal(t, http.StatusCreated, code)
	teamID := field(t, dataMap(t, resp), "team", "id").(string)

	code, _ = do(t, router, http.MethodPost, "/api/teams/"+teamID+"/statuses", managerToken, map[string]interface{}{
		"name": "Backlog", "position": 0,
	})
	require.Equal(t, http.StatusCreated, code)

	code, resp = do(t, router, http.MethodPost, "/api/issues/", managerToken, map[string]string{
		"team_id": teamID, "title": "flaky deploy",
	})
	require.Equal(t, http.StatusCreated, code)
	issueID := field(t, dataMap(t, resp), "issue", "id").(string)

	// A stakeholder joins the same org and team.
	code, resp = do(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "viewer@acme.test", "password": "hunter22", "full_name": "Val Viewer",
		"organization_id": orgID,
	})
	require.Equal(t, http.StatusCreated, code)
	viewerToken := field(t, dataMap(t, resp), "access_token").(string)

	code, _ = do(t, router, http.MethodPost, "/api/teams/"+teamID+"/members", managerToken, map[string]string{
		"email": "viewer@acme.test", "role": "stakeholder",
	})
	require.Equal(t, http.StatusCreated, code)

	// Stakeholders cannot mutate issues.
	code, resp = do(t, router, http.MethodPost, "/api/issues/"+issueID+"/hold", viewerToken, map[string]string{
		"reason": "nope",
	})
	assert.Equal(t, http.StatusForbidden, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PERMISSION_DENIED", resp.Error.Code)

	// Their permission snapshot says why.
	code, resp = do(t, router, http.MethodGet, "/api/user/permissions", viewerToken, nil)
	require.Equal(t, http.StatusOK, code)
	teams := field(t, dataMap(t, resp), "teams").([]interface{})
	require.Len(t, teams, 1)
	entry := teams[0].(map[string]interface{})
	assert.Equal(t, false, entry["can_edit"])
	assert.Equal(t, false, entry["can_delete"])
	assert.Equal(t, false, entry["can_manage"])
}
