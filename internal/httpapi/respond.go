package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// envelope is the uniform response wrapper: exactly one of Data and Error is
// set, keyed off Success.
type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

// errorDetail carries the numeric HTTP status as code so clients never need
// to read the transport status line, plus the kind name in details.
type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Response encode failed")
	}
}

// respondData writes the success envelope with the given payload under data.
func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// respondError writes the error envelope for the kind. details is optional
// extra context safe to show clients; internal error text never goes there.
func respondError(w http.ResponseWriter, kind ErrorKind, details string) {
	status := kind.Status()
	respondJSON(w, status, envelope{
		Success: false,
		Error: &errorDetail{
			Code:    status,
			Message: kind.Message(),
			Details: details,
		},
	})
}
