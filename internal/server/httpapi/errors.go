package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gallerist/internal/common"
)

// Error codes of the JSON envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeUnavailable  = "STORE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Field: field}})
}

// statusOf maps an error kind to its HTTP status and envelope code.
func statusOf(kind common.Kind) (int, string) {
	switch kind {
	case common.KindValidation, common.KindSourceMissing:
		return http.StatusBadRequest, CodeValidation
	case common.KindUnauthorized:
		return http.StatusUnauthorized, CodeUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case common.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case common.KindStoreTransient:
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError renders a service error. Internal and transient details are
// not exposed to clients.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status, code := statusOf(kind)

	msg := kind.String()
	var tagged *common.Error
	if status < http.StatusInternalServerError && errors.As(err, &tagged) && tagged.Msg != "" {
		msg = tagged.Msg
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(r.Context(), "request failed", "kind", kind.String(), "error", err)
		msg = "internal error"
		if kind == common.KindStoreTransient {
			msg = "storage temporarily unavailable, retry later"
		}
	case kind == common.KindNotFound:
		msg = "not found"
	}

	writeErrorCode(w, status, code, msg, common.FieldOf(err))
}
