package apierr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/guard"
	"github.com/mcoot/teamroster/internal/services/token"
	"github.com/mcoot/teamroster/internal/storage"
)

// FieldError names one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an API error response
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidInviteCode  = "INVALID_INVITE_CODE"
	CodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeJerseyConflict     = "JERSEY_CONFLICT"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeTeamNotFound       = "TEAM_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response. Server-side failures are logged with
// their full cause; the client only ever sees the generic message.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	he := toHTTPError(err)
	if he.status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.Int("status", he.status),
			slog.Any("error", err),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		fields := make([]FieldError, len(ve.Fields))
		for i, f := range ve.Fields {
			fields[i] = FieldError{Field: f.Field, Message: f.Message}
		}
		return &httpError{http.StatusBadRequest, APIError{CodeValidationFailed, "Validation failed", fields}}
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}}
	case errors.Is(err, auth.ErrInvalidInviteCode):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidInviteCode, Message: "Invalid invite code"}}
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeUserAlreadyExists, Message: "User already exists"}}
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, token.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}

	// Guard errors
	case errors.Is(err, guard.ErrForbidden):
		return &httpError{http.StatusForbidden, APIError{Code: CodeForbidden, Message: "You do not have permission to perform this action"}}
	case errors.Is(err, guard.ErrJerseyConflict):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeJerseyConflict, Message: "Jersey number already taken on this team"}}

	// Model errors
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeUserNotFound, Message: "User not found"}}
	case errors.Is(err, model.ErrTeamNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeTeamNotFound, Message: "Team not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodePlayerNotFound, Message: "Player not found"}}

	case errors.Is(err, storage.ErrUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{Code: CodeServiceUnavailable, Message: "Service temporarily unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewNotFoundError is returned for unmatched routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Not found"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
