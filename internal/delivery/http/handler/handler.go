package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/dashboard"
	"github.com/user/blocklist-service/internal/delivery/http/response"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/internal/usecase"
)

// DashboardView is the live state rendered by the page and streamed over /ws.
type DashboardView interface {
	Snapshot() dashboard.Snapshot
	Subscribe() (<-chan dashboard.Message, func())
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	documents usecase.DocumentService
	blocklist usecase.Blocklist
	view      DashboardView
	pinger    Pinger
	pages     *template.Template
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// NewHandler wires the handlers. pinger may be nil for backends without a connection.
func NewHandler(
	documents usecase.DocumentService,
	blocklist usecase.Blocklist,
	view DashboardView,
	pinger Pinger,
	pages *template.Template,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		documents: documents,
		blocklist: blocklist,
		view:      view,
		pinger:    pinger,
		pages:     pages,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, response.ErrorResponse{Status: "error", Message: message, Code: code})
}

// classify maps err onto an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrUnknownDocument):
		return http.StatusNotFound, response.CodeUnknownDocument
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict, response.CodeVersionConflict
	case errors.Is(err, usecase.ErrToggleInFlight):
		return http.StatusConflict, response.CodeInFlight
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest, response.CodeValidation
	case errors.Is(err, repository.ErrParse):
		return http.StatusInternalServerError, response.CodeParse
	case errors.Is(err, repository.ErrRead):
		return http.StatusInternalServerError, response.CodeRead
	case errors.Is(err, repository.ErrWrite):
		return http.StatusInternalServerError, response.CodeWrite
	}
	return http.StatusInternalServerError, response.CodeInternal
}

// writeError logs err and writes it with the given status and code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Info("Request rejected", zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Int("status", status), zap.Error(err))
	}
	h.writeJSONError(w, status, code, err.Error())
}
