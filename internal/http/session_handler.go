package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/persistence"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (persistence.Session, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (persistence.Session, error)
	GetSession(ctx context.Context, id string) (application.SessionDetail, error)
	ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error)
	DeleteSession(ctx context.Context, principal application.Principal, id string) error
}

// SessionHandler serves program session CRUD.
type SessionHandler struct {
	sessions  sessionService
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{sessions: sessions, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

type participantRequest struct {
	PersonID string `json:"person_id"`
	Role     string `json:"role"`
}

type sessionRequest struct {
	Title            string               `json:"title"`
	SessionType      string               `json:"session_type"`
	DayID            string               `json:"day_id"`
	StageID          string               `json:"stage_id"`
	TimeSlotID       string               `json:"time_slot_id"`
	Topic            *string              `json:"topic"`
	Description      *string              `json:"description"`
	IsParallelMeal   bool                 `json:"is_parallel_meal"`
	ParallelMealType *string              `json:"parallel_meal_type"`
	Extra            map[string]string    `json:"extra"`
	Participants     []participantRequest `json:"participants"`
}

func (req sessionRequest) toInput() application.SessionInput {
	input := application.SessionInput{
		Title:            req.Title,
		SessionType:      req.SessionType,
		DayID:            req.DayID,
		StageID:          req.StageID,
		TimeSlotID:       req.TimeSlotID,
		Topic:            req.Topic,
		Description:      req.Description,
		IsParallelMeal:   req.IsParallelMeal,
		ParallelMealType: req.ParallelMealType,
		Extra:            req.Extra,
	}
	for _, p := range req.Participants {
		input.Participants = append(input.Participants, application.ParticipantInput{
			PersonID: p.PersonID,
			Role:     p.Role,
		})
	}
	return input
}

type sessionDTO struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	SessionType      string            `json:"session_type"`
	DayID            string            `json:"day_id"`
	StageID          string            `json:"stage_id"`
	TimeSlotID       string            `json:"time_slot_id"`
	Topic            *string           `json:"topic,omitempty"`
	Description      *string           `json:"description,omitempty"`
	IsParallelMeal   bool              `json:"is_parallel_meal"`
	ParallelMealType *string           `json:"parallel_meal_type,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

func toSessionDTO(session persistence.Session) sessionDTO {
	return sessionDTO{
		ID:               session.ID,
		Title:            session.Title,
		SessionType:      session.SessionType,
		DayID:            session.DayID,
		StageID:          session.StageID,
		TimeSlotID:       session.TimeSlotID,
		Topic:            session.Topic,
		Description:      session.Description,
		IsParallelMeal:   session.IsParallelMeal,
		ParallelMealType: session.ParallelMealType,
		Extra:            session.Extra,
	}
}

type participantDTO struct {
	PersonID string `json:"person_id"`
	Role     string `json:"role"`
}

type sessionDetailDTO struct {
	Session      sessionDTO       `json:"session"`
	Participants []participantDTO `json:"participants"`
	Roles        roleBucketsDTO   `json:"roles"`
}

func toSessionDetailDTO(detail application.SessionDetail) sessionDetailDTO {
	out := sessionDetailDTO{
		Session:      toSessionDTO(detail.Session),
		Participants: make([]participantDTO, 0, len(detail.Participants)),
		Roles: roleBucketsDTO{
			Speakers:     detail.Roles.Speakers,
			Moderators:   detail.Roles.Moderators,
			Chairpersons: detail.Roles.Chairpersons,
		},
	}
	for _, p := range detail.Participants {
		out.Participants = append(out.Participants, participantDTO{PersonID: p.PersonID, Role: p.Role})
	}
	return out
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID, "session_type", req.SessionType)
	session, err := h.sessions.CreateSession(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSessionDTO(session))
}

// List handles GET /sessions with optional day_id, stage_id and
// time_slot_id query filters.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := persistence.SessionFilter{
		DayID:      query.Get("day_id"),
		StageID:    query.Get("stage_id"),
		TimeSlotID: query.Get("time_slot_id"),
	}

	sessions, err := h.sessions.ListSessions(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]sessionDTO{"sessions": out})
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	detail, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDetailDTO(detail))
}

// Update handles PUT /sessions/{id}.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "session_id", id)
	session, err := h.sessions.UpdateSession(r.Context(), application.UpdateSessionParams{
		Principal: principal,
		SessionID: id,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Delete handles DELETE /sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "session_id", id)
	if err := h.sessions.DeleteSession(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "session delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
