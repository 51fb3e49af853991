package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError sends an error response. APIErrors keep their status and
// structured detail; anything else is a 500 with the underlying message
// passed through for diagnostics.
func WriteError(w http.ResponseWriter, err error) {
	if apiErr := AsAPIError(err); apiErr != nil {
		WriteJSON(w, apiErr.Status, APIResponse{
			Success:   false,
			Message:   apiErr.Message,
			Data:      apiErr.Detail,
			Error:     apiErr.Message,
			Timestamp: time.Now(),
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse("internal error", err.Error()))
}
