package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/teamroster/internal/api/apierr"
	"github.com/mcoot/teamroster/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics become a generic JSON 500.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, nil, apierr.NewInternalError())
	})
}
