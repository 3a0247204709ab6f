package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/detector"
	"github.com/kozaktomas/faceid/internal/faceid"
)

// errInvalidMultipart is a shared error message for unparseable upload requests.
const errInvalidMultipart = "failed to parse multipart form"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps engine errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, faceid.ErrInvalidOptions), errors.Is(err, detector.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, detector.ErrDetectorUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondServiceError logs err and sends it with the mapped status.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	status := errorStatus(err)
	log.Printf("%s failed (%d): %s", op, status, sanitizeForLog(err.Error()))
	respondError(w, status, err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
