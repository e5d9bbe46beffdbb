package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/program"
)

type dayService interface {
	CreateDay(ctx context.Context, params application.CreateDayParams) (persistence.ConferenceDay, error)
	UpdateDay(ctx context.Context, params application.UpdateDayParams) (persistence.ConferenceDay, error)
	GetDay(ctx context.Context, id string) (persistence.ConferenceDay, error)
	ListDays(ctx context.Context) ([]persistence.ConferenceDay, error)
	DeleteDay(ctx context.Context, principal application.Principal, dayID string) error
	AssignHall(ctx context.Context, params application.AssignHallParams) error
	RemoveHall(ctx context.Context, params application.RemoveHallParams) error
	ListDayHalls(ctx context.Context, dayID string) ([]persistence.DayHall, error)
}

type slotService interface {
	EnsureSlots(ctx context.Context, params application.EnsureSlotsParams) ([]persistence.TimeSlot, error)
	UpdateSlot(ctx context.Context, params application.UpdateSlotParams) (persistence.TimeSlot, error)
	ListSlots(ctx context.Context, dayID string) ([]persistence.TimeSlot, error)
	DeleteSlot(ctx context.Context, principal application.Principal, slotID string) error
}

type programService interface {
	GetDayProgram(ctx context.Context, dayID string) (application.ProgramView, error)
}

// DayHandler serves conference days, their hall line-up, their slot
// partition and the assembled grid.
type DayHandler struct {
	days      dayService
	slots     slotService
	programs  programService
	responder responder
	logger    *slog.Logger
}

// NewDayHandler constructs a day handler.
func NewDayHandler(days dayService, slots slotService, programs programService, logger *slog.Logger) *DayHandler {
	base := defaultLogger(logger)
	return &DayHandler{days: days, slots: slots, programs: programs, responder: newResponder(base), logger: base}
}

func (h *DayHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DayHandler", operation, attrs...)
}

type dayRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type dayDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

func toDayDTO(day persistence.ConferenceDay) dayDTO {
	return dayDTO{ID: day.ID, Name: day.Name, Date: day.Date.Format("2006-01-02")}
}

func (req dayRequest) toInput() application.DayInput {
	input := application.DayInput{Name: req.Name}
	if parsed, err := time.Parse("2006-01-02", req.Date); err == nil {
		input.Date = parsed
	}
	return input
}

// Create handles POST /days.
func (h *DayHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.days == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode day request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID)
	day, err := h.days.CreateDay(r.Context(), application.CreateDayParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "day creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("day_id", day.ID).InfoContext(r.Context(), "day created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toDayDTO(day))
}

// List handles GET /days.
func (h *DayHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.days == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	days, err := h.days.ListDays(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]dayDTO, 0, len(days))
	for _, day := range days {
		out = append(out, toDayDTO(day))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]dayDTO{"days": out})
}

// Get handles GET /days/{id}.
func (h *DayHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	day, err := h.days.GetDay(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDayDTO(day))
}

// Update handles PUT /days/{id}.
func (h *DayHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "day_id", id)
	day, err := h.days.UpdateDay(r.Context(), application.UpdateDayParams{
		Principal: principal,
		DayID:     id,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "day update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "day updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDayDTO(day))
}

// Delete handles DELETE /days/{id}.
func (h *DayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "day_id", id)
	if err := h.days.DeleteDay(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "day delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "day deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type assignHallRequest struct {
	HallID   string `json:"hall_id"`
	Position int    `json:"position"`
}

// AssignHall handles POST /days/{id}/halls.
func (h *DayHandler) AssignHall(w http.ResponseWriter, r *http.Request) {
	dayID, ok := EntityIDFromContext(r.Context())
	if !ok || dayID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req assignHallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AssignHall", "principal_id", principal.AccountID, "day_id", dayID, "hall_id", req.HallID)
	err := h.days.AssignHall(r.Context(), application.AssignHallParams{
		Principal: principal,
		DayID:     dayID,
		HallID:    req.HallID,
		Position:  req.Position,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// RemoveHall handles DELETE /days/{id}/halls/{hallID}.
func (h *DayHandler) RemoveHall(w http.ResponseWriter, r *http.Request, hallID string) {
	dayID, ok := EntityIDFromContext(r.Context())
	if !ok || dayID == "" || hallID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RemoveHall", "principal_id", principal.AccountID, "day_id", dayID, "hall_id", hallID)
	err := h.days.RemoveHall(r.Context(), application.RemoveHallParams{
		Principal: principal,
		DayID:     dayID,
		HallID:    hallID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type slotDTO struct {
	ID         string  `json:"id"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	SlotOrder  int     `json:"slot_order"`
	IsBreak    bool    `json:"is_break"`
	BreakTitle *string `json:"break_title,omitempty"`
}

func toSlotDTO(slot persistence.TimeSlot) slotDTO {
	return slotDTO{
		ID:         slot.ID,
		Start:      slot.Start,
		End:        slot.End,
		SlotOrder:  slot.SlotOrder,
		IsBreak:    slot.IsBreak,
		BreakTitle: slot.BreakTitle,
	}
}

// EnsureSlots handles POST /days/{id}/slots.
func (h *DayHandler) EnsureSlots(w http.ResponseWriter, r *http.Request) {
	dayID, ok := EntityIDFromContext(r.Context())
	if !ok || dayID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "EnsureSlots", "principal_id", principal.AccountID, "day_id", dayID)
	slots, err := h.slots.EnsureSlots(r.Context(), application.EnsureSlotsParams{
		Principal: principal,
		DayID:     dayID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot provisioning failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	logger.With("slot_count", len(out)).InfoContext(r.Context(), "slots ensured")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]slotDTO{"slots": out})
}

// ListSlots handles GET /days/{id}/slots.
func (h *DayHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	dayID, ok := EntityIDFromContext(r.Context())
	if !ok || dayID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	slots, err := h.slots.ListSlots(r.Context(), dayID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]slotDTO{"slots": out})
}

type gridCellDTO struct {
	Kind    string      `json:"kind"`
	Session *sessionDTO `json:"session,omitempty"`
}

type gridRowDTO struct {
	Slot  slotDTO       `json:"slot"`
	Break *breakDTO     `json:"break,omitempty"`
	Cells []gridCellDTO `json:"cells,omitempty"`
}

type breakDTO struct {
	Title string `json:"title"`
	Span  int    `json:"span"`
}

type hallDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity *int   `json:"capacity,omitempty"`
}

type gridResponse struct {
	Day   dayDTO                    `json:"day"`
	Halls []hallDTO                 `json:"halls"`
	Rows  []gridRowDTO              `json:"rows"`
	Roles map[string]roleBucketsDTO `json:"roles"`
}

type roleBucketsDTO struct {
	Speakers     []string `json:"speakers,omitempty"`
	Moderators   []string `json:"moderators,omitempty"`
	Chairpersons []string `json:"chairpersons,omitempty"`
}

func toGridResponse(view application.ProgramView) gridResponse {
	out := gridResponse{
		Day:   toDayDTO(view.Grid.Day),
		Halls: make([]hallDTO, 0, len(view.Grid.Halls)),
		Rows:  make([]gridRowDTO, 0, len(view.Grid.Rows)),
		Roles: make(map[string]roleBucketsDTO, len(view.Roles)),
	}
	for _, hall := range view.Grid.Halls {
		out.Halls = append(out.Halls, hallDTO{ID: hall.ID, Name: hall.Name, Capacity: hall.Capacity})
	}
	for _, row := range view.Grid.Rows {
		dto := gridRowDTO{Slot: toSlotDTO(row.Slot)}
		if row.Break != nil {
			dto.Break = &breakDTO{Title: row.Break.Title, Span: row.Break.Span}
		} else {
			dto.Cells = make([]gridCellDTO, 0, len(row.Cells))
			for _, cell := range row.Cells {
				if cell.Kind == program.CellSession && cell.Session != nil {
					session := toSessionDTO(*cell.Session)
					dto.Cells = append(dto.Cells, gridCellDTO{Kind: "session", Session: &session})
					continue
				}
				dto.Cells = append(dto.Cells, gridCellDTO{Kind: "empty"})
			}
		}
		out.Rows = append(out.Rows, dto)
	}
	for id, buckets := range view.Roles {
		out.Roles[id] = roleBucketsDTO{
			Speakers:     buckets.Speakers,
			Moderators:   buckets.Moderators,
			Chairpersons: buckets.Chairpersons,
		}
	}
	return out
}

// Grid handles GET /days/{id}/grid.
func (h *DayHandler) Grid(w http.ResponseWriter, r *http.Request) {
	dayID, ok := EntityIDFromContext(r.Context())
	if !ok || dayID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	view, err := h.programs.GetDayProgram(r.Context(), dayID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toGridResponse(view))
}
