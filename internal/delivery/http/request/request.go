package request

import "encoding/json"

// UpdateJSONRequest is the body of the legacy POST /update_json endpoint.
// Content stays raw so it is validated with the same rules as imports.
type UpdateJSONRequest struct {
	Filename string          `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

// PutDocumentRequest is the body of PUT /api/documents/{kind}.
type PutDocumentRequest struct {
	Sites json.RawMessage `json:"sites"`
}

// ToggleRequest is the body of POST /api/sites/block and /api/sites/unblock.
type ToggleRequest struct {
	Website string `json:"website"`
}
