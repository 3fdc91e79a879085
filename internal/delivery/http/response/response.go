package response

import "github.com/user/blocklist-service/internal/entity"

// Error codes carried in ErrorResponse.Code so remote clients can map failures
// back onto typed errors.
const (
	CodeNotFound        = "not_found"
	CodeRead            = "read_error"
	CodeParse           = "parse_error"
	CodeWrite           = "write_error"
	CodeVersionConflict = "version_conflict"
	CodeUnknownDocument = "unknown_document"
	CodeValidation      = "validation_error"
	CodeInFlight        = "in_flight"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the uniform error payload. Status is always "error".
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusResponse is the success payload of the legacy write endpoint.
type StatusResponse struct {
	Status string `json:"status"`
}

// ListsResponse is returned by the block/unblock endpoints.
type ListsResponse struct {
	Detected []string `json:"detected"`
	Blocked  []string `json:"blocked"`
}

// NewListsResponse builds a ListsResponse that never encodes null arrays.
func NewListsResponse(l *entity.Lists) ListsResponse {
	resp := ListsResponse{Detected: l.Detected, Blocked: l.Blocked}
	if resp.Detected == nil {
		resp.Detected = []string{}
	}
	if resp.Blocked == nil {
		resp.Blocked = []string{}
	}
	return resp
}

// ImportResponse acknowledges an import.
type ImportResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Blocked []string `json:"blocked"`
}
