package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/apierr"
	"github.com/aoi01/fridgesnap/internal/compress"
	"github.com/aoi01/fridgesnap/internal/storage"
	"github.com/aoi01/fridgesnap/internal/validation"
)

const maxJSONBody = 1 << 20

// Error codes of the JSON error envelope.
const (
	CodeValidation          = "ERR_VALIDATION"
	CodeNotFound            = "ERR_NOT_FOUND"
	CodeConflict            = "ERR_CONFLICT"
	CodeUpstreamAuth        = "ERR_UPSTREAM_AUTH"
	CodeUpstreamRateLimited = "ERR_UPSTREAM_RATE_LIMITED"
	CodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	CodeUpstream            = "ERR_UPSTREAM"
	CodeInternal            = "ERR_INTERNAL"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.Newf("body", "required")
		}
		return &validation.Error{Fields: []validation.FieldError{{Field: "body", Rule: "json", Param: err.Error()}}}
	}
	return nil
}

// fail writes err as an error envelope with the matching status code.
func (h *BaseController) fail(w http.ResponseWriter, err error) {
	h.respondError(w, err, false)
}

// failUpstream is fail for calls to vendor APIs: transport failures that
// carry no vendor status are reported as the vendor being unavailable.
func (h *BaseController) failUpstream(w http.ResponseWriter, err error) {
	h.respondError(w, err, true)
}

func (h *BaseController) respondError(w http.ResponseWriter, err error, upstream bool) {
	var (
		verr   *validation.Error
		rowErr *compress.RowError
	)

	switch {
	case errors.As(err, &rowErr):
		msg := rowErr.Error()
		if errors.As(rowErr.Err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeValidation, Message: msg, Fields: verr.Fields})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeValidation, Message: msg})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeValidation, Message: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "item not found"})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Code: CodeConflict, Message: "item already exists"})
	default:
		if e, ok := apierr.As(err); ok {
			h.log.Warn("vendor api call failed", zap.String("service", e.Service), zap.Error(err))
			status, code := upstreamStatus(e.Kind())
			writeJSON(w, status, ErrorResponse{Code: code, Message: e.UserMessage()})
			return
		}
		if upstream {
			h.log.Warn("vendor api unreachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Code:    CodeUpstreamUnavailable,
				Message: fmt.Sprintf("service is temporarily unavailable: %v", err),
			})
			return
		}
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "internal error"})
	}
}

func upstreamStatus(k apierr.Kind) (int, string) {
	switch k {
	case apierr.KindUnauthorized:
		return http.StatusBadGateway, CodeUpstreamAuth
	case apierr.KindRateLimited:
		return http.StatusTooManyRequests, CodeUpstreamRateLimited
	case apierr.KindUnavailable:
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable
	default:
		return http.StatusBadGateway, CodeUpstream
	}
}
