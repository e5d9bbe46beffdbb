package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/conference-program/internal/application"
)

// SlotHandler serves the per-slot operations addressed by slot ID. Listing
// and provisioning live on the day routes.
type SlotHandler struct {
	slots     slotService
	responder responder
	logger    *slog.Logger
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(slots slotService, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{slots: slots, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

type slotRequest struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	IsBreak    bool    `json:"is_break"`
	BreakTitle *string `json:"break_title"`
}

// Update handles PUT /slots/{id}.
func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "slot_id", id)
	slot, err := h.slots.UpdateSlot(r.Context(), application.UpdateSlotParams{
		Principal: principal,
		SlotID:    id,
		Input: application.SlotInput{
			Start:      req.Start,
			End:        req.End,
			IsBreak:    req.IsBreak,
			BreakTitle: req.BreakTitle,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSlotDTO(slot))
}

// Delete handles DELETE /slots/{id}.
func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "slot_id", id)
	if err := h.slots.DeleteSlot(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "slot delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
