package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/taskgate/pkg/proxy/types"
)

// WriteJSONResponse writes data as a JSON response with the given status.
// HTML characters are not escaped so stored status messages round-trip
// unchanged.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes the JSON error envelope. The HTTP status is
// derived from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}
