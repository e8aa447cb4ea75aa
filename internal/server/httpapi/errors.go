package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serviceCodeStatus maps downstream error codes to our status codes.
// Unknown codes are reported as 502.
var serviceCodeStatus = map[string]int{
	"BAD_REQUEST":  http.StatusBadRequest,
	"UNAUTHORIZED": http.StatusUnauthorized,
	"FORBIDDEN":    http.StatusForbidden,
	"NOT_FOUND":    http.StatusNotFound,
	"CONFLICT":     http.StatusConflict,
}

// errorResponse classifies err. Messages of 5xx responses are generic; the
// detail goes to the log only.
func errorResponse(err error) (int, errorBody) {
	var sm *common.SizeMismatchError
	var se *common.ServiceError

	switch {
	case errors.As(err, &sm):
		return http.StatusBadRequest, errorBody{"SIZE_MISMATCH", sm.Error()}
	case errors.As(err, &se):
		status, ok := serviceCodeStatus[se.Code]
		if !ok {
			status = http.StatusBadGateway
		}
		return status, errorBody{se.Code, se.Message}
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, errorBody{"VALIDATION_ERROR", err.Error()}
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, errorBody{"TOKEN_EXPIRED", "token expired"}
	case errors.Is(err, common.ErrTokenInvalid):
		return http.StatusUnauthorized, errorBody{"TOKEN_INVALID", "invalid token"}
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{"UNAUTHORIZED", "unauthorized"}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorBody{"NOT_FOUND", "not found"}
	case errors.Is(err, common.ErrHierarchyTooDeep):
		return http.StatusUnprocessableEntity, errorBody{"HIERARCHY_TOO_DEEP", err.Error()}
	case errors.Is(err, common.ErrUnresolvedHierarchy):
		return http.StatusInternalServerError, errorBody{"UNRESOLVED_HIERARCHY", "folder hierarchy is inconsistent"}
	default:
		return http.StatusInternalServerError, errorBody{"INTERNAL_ERROR", "internal error"}
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", "status", status, "error", err)
	} else {
		log.Debug(ctx, "request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
