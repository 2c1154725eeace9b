package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondAppError maps an application error to an HTTP status. Internal
// details never reach the client.
func respondAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeExternal:
			respondWithError(w, http.StatusBadGateway, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

// sessionID resolves the client session key from the request, falling
// back to a shared default for clients that do not send one.
func sessionID(r *http.Request, bodyValue string) string {
	if bodyValue != "" {
		return bodyValue
	}
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return "default"
}
