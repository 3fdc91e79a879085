package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/delivery/http/request"
	"github.com/user/blocklist-service/internal/delivery/http/response"
	"github.com/user/blocklist-service/internal/usecase"
)

// HandleBlock serves POST /api/sites/block.
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

// HandleUnblock serves POST /api/sites/unblock.
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, currentlyBlocked bool) {
	var req request.ToggleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeBadRequest, "Invalid request body")
		return
	}
	website := req.Website
	if website == "" {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeValidation, "website is required")
		return
	}

	lists, err := h.blocklist.Toggle(r.Context(), website, currentlyBlocked)
	if err != nil {
		status, code := classify(err)
		h.writeError(w, r, status, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewListsResponse(lists))
}

// HandleExport serves GET /api/blocked/export as a file download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.blocklist.Export(r.Context())
	if err != nil {
		status, code := classify(err)
		h.writeError(w, r, status, code, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, usecase.ExportFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// HandleImport serves POST /api/blocked/import. The document is either the raw
// request body or the "file" field of a multipart form.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	blocked, err := h.blocklist.Import(r.Context(), data)
	if err != nil {
		status, code := classify(err)
		if errors.Is(err, usecase.ErrValidation) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, r, status, code, fmt.Errorf("error importing blocked sites: %w", err))
		return
	}
	h.writeJSON(w, http.StatusOK, response.ImportResponse{
		Status:  "success",
		Message: "Blocked sites imported successfully",
		Blocked: blocked,
	})
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		return data, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing upload field \"file\": %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}
