package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "hearth/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders err as an ErrorResponse. Errors without a domain code
// are internal. Internal and persistence messages are never sent to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: DomainCodeToHTTPCode(code)}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && code != dErrors.CodeInternal && code != dErrors.CodePersistence {
		resp.Description = domainErr.Message
	}
	WriteJSON(w, DomainCodeToHTTPStatus(code), resp)
}

type mapping struct {
	status int
	name   string
}

var codeMappings = map[dErrors.Code]mapping{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
	dErrors.CodeProvider:           {http.StatusBadGateway, "provider_failure"},
	dErrors.CodePersistence:        {http.StatusServiceUnavailable, "storage_unavailable"},
}

var internalMapping = mapping{http.StatusInternalServerError, "internal_error"}

func lookup(code dErrors.Code) mapping {
	if m, ok := codeMappings[code]; ok {
		return m
	}
	return internalMapping
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int { return lookup(code).status }

// DomainCodeToHTTPCode translates domain error codes to the JSON error string.
func DomainCodeToHTTPCode(code dErrors.Code) string { return lookup(code).name }
