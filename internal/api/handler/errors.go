package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamroster/internal/api/apierr"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// writeError writes an error response, logging server-side failures
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apierr.WriteError(w, logger, err)
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

// pathID parses a numeric path variable. Routes already restrict ids to
// digits, so only overflow reaches the error branch.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.NewInvalidRequestError("invalid " + name)
	}
	return id, nil
}
