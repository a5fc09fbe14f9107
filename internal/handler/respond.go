package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creditline/platform/internal/domain"
)

// RespondJSON writes a JSON response with the given status code. A nil
// payload writes the status line only (204s and error fallbacks).
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError maps a domain.AppError anywhere in the chain to its HTTP
// status and code; anything else becomes an opaque 500 so internal detail
// never leaks to partners.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		RespondJSON(w, appErr.Status, map[string]string{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, map[string]string{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	})
}

// DecodeJSON reads and decodes a JSON request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
