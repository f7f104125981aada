package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventhawk/eventhawk/core"
	"github.com/rs/zerolog"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already sent, a failed write has no one to report to
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps a store error to its status code
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()

	var storeErr *core.Error
	if errors.As(err, &storeErr) && storeErr.Err != nil {
		detail = storeErr.Err.Error()
	}

	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
		if status == http.StatusInternalServerError {
			detail = "internal server error"
		}
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeDetail(w, status, detail)
}

func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
