package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/persistence"
)

type personService interface {
	CreatePerson(ctx context.Context, params application.CreatePersonParams) (persistence.Person, error)
	UpdatePerson(ctx context.Context, params application.UpdatePersonParams) (persistence.Person, error)
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
	ListPersons(ctx context.Context) ([]persistence.Person, error)
	DeletePerson(ctx context.Context, principal application.Principal, id string) error
}

// PersonHandler serves the speaker registry.
type PersonHandler struct {
	persons   personService
	responder responder
	logger    *slog.Logger
}

// NewPersonHandler constructs a person handler.
func NewPersonHandler(persons personService, logger *slog.Logger) *PersonHandler {
	base := defaultLogger(logger)
	return &PersonHandler{persons: persons, responder: newResponder(base), logger: base}
}

func (h *PersonHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PersonHandler", operation, attrs...)
}

type personRequest struct {
	Name         string  `json:"name"`
	Email        *string `json:"email"`
	Title        *string `json:"title"`
	Organization *string `json:"organization"`
	Bio          *string `json:"bio"`
}

func (req personRequest) toInput() application.PersonInput {
	return application.PersonInput{
		Name:         req.Name,
		Email:        req.Email,
		Title:        req.Title,
		Organization: req.Organization,
		Bio:          req.Bio,
	}
}

type personDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        *string `json:"email,omitempty"`
	Title        *string `json:"title,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Bio          *string `json:"bio,omitempty"`
}

func toPersonDTO(person persistence.Person) personDTO {
	return personDTO{
		ID:           person.ID,
		Name:         person.Name,
		Email:        person.Email,
		Title:        person.Title,
		Organization: person.Organization,
		Bio:          person.Bio,
	}
}

// Create handles POST /persons.
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.persons == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID)
	person, err := h.persons.CreatePerson(r.Context(), application.CreatePersonParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "person creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("person_id", person.ID).InfoContext(r.Context(), "person created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPersonDTO(person))
}

// List handles GET /persons.
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.persons == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	persons, err := h.persons.ListPersons(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]personDTO, 0, len(persons))
	for _, person := range persons {
		out = append(out, toPersonDTO(person))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]personDTO{"persons": out})
}

// Get handles GET /persons/{id}.
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	person, err := h.persons.GetPerson(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPersonDTO(person))
}

// Update handles PUT /persons/{id}.
func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "person_id", id)
	person, err := h.persons.UpdatePerson(r.Context(), application.UpdatePersonParams{
		Principal: principal,
		PersonID:  id,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "person update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "person updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPersonDTO(person))
}

// Delete handles DELETE /persons/{id}.
func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "person_id", id)
	if err := h.persons.DeletePerson(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "person delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "person deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
