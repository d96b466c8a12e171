package models

import (
	"encoding/json"
	"net/http"
)

// ProblemBaseURL prefixes every problem type URI.
const ProblemBaseURL = "https://air.nmn.gl/problems/"

// Problem types returned by the API.
const (
	ProblemTypeValidation       = ProblemBaseURL + "validation-error"
	ProblemTypeUnauthorized     = ProblemBaseURL + "unauthorized"
	ProblemTypeNotFound         = ProblemBaseURL + "not-found"
	ProblemTypeUnsupportedMedia = ProblemBaseURL + "unsupported-media-type"
	ProblemTypeTLSRequired      = ProblemBaseURL + "tls-required"
	ProblemTypeTooManyRequests  = ProblemBaseURL + "too-many-requests"
	ProblemTypeInternal         = ProblemBaseURL + "internal-error"
	ProblemTypeUnavailable      = ProblemBaseURL + "service-unavailable"
)

// Problem is an RFC7807 error body, sent as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid query parameter or body field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewProblem creates a Problem without detail.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

func newProblemWithDetail(problemType, title string, status int, traceID, detail string) *Problem {
	p := NewProblem(problemType, title, status, traceID)
	p.Detail = detail
	return p
}

// Write sends the problem. The trace id doubles as X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 listing the invalid fields.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := newProblemWithDetail(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 for a missing or invalid admin token.
func NewUnauthorized(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID, detail)
}

// NewNotFound creates a 404.
func NewNotFound(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewUnsupportedMediaType creates a 415 for a non-JSON admin body.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType, traceID, detail)
}

// NewTLSRequired creates a 403 for a plain HTTP request behind the proxy.
func NewTLSRequired(traceID string) *Problem {
	return newProblemWithDetail(ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, traceID, "This endpoint requires HTTPS")
}

// NewTooManyRequests creates a 429.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500.
func NewInternalError(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newProblemWithDetail(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID, detail)
}
