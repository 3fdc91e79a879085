package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/user/blocklist-service/internal/delivery/http/request"
	"github.com/user/blocklist-service/internal/delivery/http/response"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

const maxDocumentBytes = 1 << 20

// HandleReadJSON serves GET /read_json/{filename} with the bare JSON array of
// the document. Any read failure, a missing document included, is a 500.
func (h *Handler) HandleReadJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Fetch(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		status, code := classify(err)
		if errors.Is(err, repository.ErrNotFound) {
			status = http.StatusInternalServerError
		}
		h.writeError(w, r, status, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc.Sites)
}

// HandleUpdateJSON serves POST /update_json, overwriting a whole document.
func (h *Handler) HandleUpdateJSON(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateJSONRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeBadRequest, "Invalid request body")
		return
	}
	if _, err := entity.ParseDocumentName(req.Filename); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeUnknownDocument, "Unknown document: "+req.Filename)
		return
	}
	sites, err := utils.DecodeSites(req.Content)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeValidation, "content must be a JSON array of strings")
		return
	}

	if _, err := h.documents.Store(r.Context(), req.Filename, sites, ""); err != nil {
		status, code := classify(err)
		h.writeError(w, r, status, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.StatusResponse{Status: "success"})
}

// HandleGetDocument serves GET /api/documents/{kind} with the version as ETag.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Fetch(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		status, code := classify(err)
		h.writeError(w, r, status, code, err)
		return
	}
	h.writeDocument(w, doc)
}

// HandlePutDocument serves PUT /api/documents/{kind}. An If-Match header makes
// the write conditional on the stored version.
func (h *Handler) HandlePutDocument(w http.ResponseWriter, r *http.Request) {
	var req request.PutDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeBadRequest, "Invalid request body")
		return
	}
	sites, err := utils.DecodeSites(req.Sites)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeValidation, "sites must be a JSON array of strings")
		return
	}

	doc, err := h.documents.Store(r.Context(), chi.URLParam(r, "kind"), sites, parseIfMatch(r.Header.Get("If-Match")))
	if err != nil {
		status, code := classify(err)
		if errors.Is(err, repository.ErrVersionConflict) {
			status = http.StatusPreconditionFailed
		}
		h.writeError(w, r, status, code, err)
		return
	}
	h.writeDocument(w, doc)
}

func (h *Handler) writeDocument(w http.ResponseWriter, doc *entity.Document) {
	if doc.Version != "" {
		w.Header().Set("ETag", `"`+doc.Version+`"`)
	}
	if doc.Sites == nil {
		doc.Sites = []string{}
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// parseIfMatch returns the version of a single-tag If-Match header. "*" and an
// absent header both mean an unconditional write.
func parseIfMatch(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "*" {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(v, "W/"), `"`)
}
