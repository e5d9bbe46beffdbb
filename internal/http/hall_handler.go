package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/persistence"
)

type hallService interface {
	CreateHall(ctx context.Context, params application.CreateHallParams) (persistence.Hall, error)
	UpdateHall(ctx context.Context, params application.UpdateHallParams) (persistence.Hall, error)
	GetHall(ctx context.Context, id string) (persistence.Hall, error)
	ListHalls(ctx context.Context) ([]persistence.Hall, error)
	DeleteHall(ctx context.Context, params application.DeleteHallParams) error
}

// HallHandler serves the global hall registry.
type HallHandler struct {
	halls     hallService
	responder responder
	logger    *slog.Logger
}

// NewHallHandler constructs a hall handler.
func NewHallHandler(halls hallService, logger *slog.Logger) *HallHandler {
	base := defaultLogger(logger)
	return &HallHandler{halls: halls, responder: newResponder(base), logger: base}
}

func (h *HallHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HallHandler", operation, attrs...)
}

type hallRequest struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity"`
}

func toHallDTO(hall persistence.Hall) hallDTO {
	return hallDTO{ID: hall.ID, Name: hall.Name, Capacity: hall.Capacity}
}

// Create handles POST /halls.
func (h *HallHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.halls == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req hallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID)
	hall, err := h.halls.CreateHall(r.Context(), application.CreateHallParams{
		Principal: principal,
		Input:     application.HallInput{Name: req.Name, Capacity: req.Capacity},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("hall_id", hall.ID).InfoContext(r.Context(), "hall created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toHallDTO(hall))
}

// List handles GET /halls.
func (h *HallHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.halls == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	halls, err := h.halls.ListHalls(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]hallDTO, 0, len(halls))
	for _, hall := range halls {
		out = append(out, toHallDTO(hall))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]hallDTO{"halls": out})
}

// Get handles GET /halls/{id}.
func (h *HallHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	hall, err := h.halls.GetHall(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toHallDTO(hall))
}

// Update handles PUT /halls/{id}.
func (h *HallHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req hallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "hall_id", id)
	hall, err := h.halls.UpdateHall(r.Context(), application.UpdateHallParams{
		Principal: principal,
		HallID:    id,
		Input:     application.HallInput{Name: req.Name, Capacity: req.Capacity},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toHallDTO(hall))
}

// Delete handles DELETE /halls/{id}. The optional migrate_to query parameter
// names the hall that inherits any sessions still placed in the deleted hall.
func (h *HallHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	migrateTo := r.URL.Query().Get("migrate_to")

	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "hall_id", id)
	err := h.halls.DeleteHall(r.Context(), application.DeleteHallParams{
		Principal:   principal,
		HallID:      id,
		MigrateToID: migrateTo,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
