package errors

import "net/http"

// ErrorResponse represents the canonical error envelope returned by FocusNest APIs.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Domain error codes shared by the gamification handlers.
const (
	CodeNotFound       = "not_found"
	CodeUnauthorized   = "unauthorized"
	CodeBadRequest     = "bad_request"
	CodeBadGateway     = "bad_gateway"
	CodeUpstreamFormat = "upstream_format"
)

// ToStatusCode maps a domain specific error code to an HTTP status for default responses.
func ToStatusCode(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeBadGateway, CodeUpstreamFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
