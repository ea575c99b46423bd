package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/lifecycle"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "permission denied",
			err:        &lifecycle.PermissionDeniedError{UserID: "u", TeamID: "t", Capability: "can_edit"},
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "already on hold",
			err:        &lifecycle.AlreadyOnHoldError{IssueID: "i"},
			wantStatus: http.StatusConflict,
			wantCode:   "ALREADY_ON_HOLD",
		},
		{
			name:       "not on hold",
			err:        &lifecycle.NotOnHoldError{IssueID: "i"},
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_ON_HOLD",
		},
		{
			name:       "empty reason",
			err:        &lifecycle.EmptyReasonError{IssueID: "i"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_REASON",
		},
		{
			name:       "status from another team",
			err:        &lifecycle.StatusNotInTeamError{IssueID: "i", StatusID: "s", TeamID: "t"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "STATUS_NOT_IN_TEAM",
		},
		{
			name:       "concurrent modification",
			err:        &lifecycle.ConflictError{IssueID: "i", Operation: "hold"},
			wantStatus: http.StatusConflict,
			wantCode:   "CONCURRENT_MODIFICATION",
		},
		{
			name:       "team cycle",
			err:        &permissions.CycleError{TeamID: "t"},
			wantStatus: http.StatusConflict,
			wantCode:   "TEAM_CYCLE",
		},
		{
			name:       "not found",
			err:        database.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "duplicate",
			err:        database.ErrDuplicate,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE",
		},
		{
			name:       "cross-org membership",
			err:        database.ErrCrossOrgMembership,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "directory unavailable",
			err:        permissions.ErrDirectoryUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "DIRECTORY_UNAVAILABLE",
		},
		{
			name:       "anything else is a 500",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteAuthOrDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAuthOrDomainError(rec, middleware.ErrNotAuthenticated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	writeAuthOrDomainError(rec, database.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
