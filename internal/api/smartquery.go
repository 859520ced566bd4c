package api

import (
	"encoding/json"
	"net/http"

	"github.com/smartscan/smartscan/internal/auth"
	"github.com/smartscan/smartscan/internal/interpret"
)

// handleSmartQuery maps interpreter outcomes onto HTTP statuses. The
// body is always the full interpretation result, even on failure, so
// callers can inspect errorType without parsing a separate envelope.
func handleSmartQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Interpreter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SMART_QUERY_NOT_CONFIGURED", "interpreter dependency is not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req interpret.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, interpret.Result{
			ErrorType: interpret.ErrorInvalidArgument,
			Message:   "invalid smart query request body",
		})
		return
	}
	if deps.QueryMaxLimit > 0 && req.Limit > deps.QueryMaxLimit {
		req.Limit = deps.QueryMaxLimit
	}

	result := deps.Interpreter.Interpret(r.Context(), req)
	writeJSON(w, statusForResult(result), result)
}

func statusForResult(result interpret.Result) int {
	switch result.ErrorType {
	case "":
		return http.StatusOK
	case interpret.ErrorInvalidArgument, interpret.ErrorInvalidFilter:
		return http.StatusBadRequest
	case interpret.ErrorSchema:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
