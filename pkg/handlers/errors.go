package handlers

import (
	"errors"
	"net/http"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/lifecycle"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"
)

// writeAuthOrDomainError is writeDomainError plus the 401 case for
// helpers that bundle actor resolution with their first store reads.
func writeAuthOrDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, middleware.ErrNotAuthenticated) {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	writeDomainError(w, err)
}

// writeDomainError maps core errors onto the HTTP envelope. Invariant
// violations keep their own stable codes so the client can render a
// specific message; infrastructure failures stay 5xx and unmasked.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		denied     *lifecycle.PermissionDeniedError
		alreadyOn  *lifecycle.AlreadyOnHoldError
		notOn      *lifecycle.NotOnHoldError
		noReason   *lifecycle.EmptyReasonError
		wrongTeam  *lifecycle.StatusNotInTeamError
		conflict   *lifecycle.ConflictError
		cycle      *permissions.CycleError
	)

	switch {
	case errors.As(err, &denied):
		utils.WriteErrorResponseWithCode(w, http.StatusForbidden, "PERMISSION_DENIED", denied.Error(), "")
	case errors.As(err, &alreadyOn):
		utils.WriteConflictResponse(w, "ALREADY_ON_HOLD", alreadyOn.Error())
	case errors.As(err, &notOn):
		utils.WriteConflictResponse(w, "NOT_ON_HOLD", notOn.Error())
	case errors.As(err, &noReason):
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "EMPTY_REASON", noReason.Error(), "")
	case errors.As(err, &wrongTeam):
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "STATUS_NOT_IN_TEAM", wrongTeam.Error(), "")
	case errors.As(err, &conflict):
		utils.WriteConflictResponse(w, "CONCURRENT_MODIFICATION", conflict.Error())
	case errors.As(err, &cycle):
		utils.WriteConflictResponse(w, "TEAM_CYCLE", cycle.Error())
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, "Resource not found")
	case errors.Is(err, database.ErrDuplicate):
		utils.WriteConflictResponse(w, "DUPLICATE", err.Error())
	case errors.Is(err, database.ErrCrossOrgMembership):
		utils.WriteBadRequestResponse(w, err.Error())
	case errors.Is(err, permissions.ErrDirectoryUnavailable):
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", err.Error(), "")
	default:
		utils.WriteInternalServerErrorResponse(w, err.Error())
	}
}
