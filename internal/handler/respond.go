package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/galleryworks/atelier/internal/domain"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// ErrorResponse maps a domain error to an HTTP status and writes a JSON
// error body. Internal details never reach the client.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := statusFromCode(code)

	if status >= 500 {
		slog.Error("request failed",
			"error", err,
			"op", domain.ErrorOp(err),
			"path", r.URL.Path,
		)
	}

	JSON(w, status, map[string]string{
		"error": domain.ErrorMessage(err),
		"code":  code,
	})
}

func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
