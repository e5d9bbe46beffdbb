package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

// PersonService manages the speaker registry.
type PersonService struct {
	persons     persistence.PersonRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPersonService constructs a person service with the provided dependencies.
func NewPersonService(persons persistence.PersonRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PersonService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PersonService{
		persons:     persons,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PersonService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PersonService", operation, attrs...)
}

// CreatePerson validates input and persists a new speaker record.
func (s *PersonService) CreatePerson(ctx context.Context, params CreatePersonParams) (person persistence.Person, err error) {
	if s == nil {
		err = fmt.Errorf("PersonService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreatePerson", "principal_id", params.Principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("person_id", person.ID).InfoContext(ctx, "person created")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validatePersonInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	person = persistence.Person{
		ID:           s.idGenerator(),
		Name:         strings.TrimSpace(params.Input.Name),
		Email:        params.Input.Email,
		Title:        params.Input.Title,
		Organization: params.Input.Organization,
		Bio:          params.Input.Bio,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.persons.CreatePerson(ctx, person); err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// UpdatePerson validates input and updates an existing speaker record.
func (s *PersonService) UpdatePerson(ctx context.Context, params UpdatePersonParams) (person persistence.Person, err error) {
	if s == nil {
		err = fmt.Errorf("PersonService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePerson",
		"principal_id", params.Principal.AccountID,
		"person_id", params.PersonID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "person updated")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Person
	existing, err = s.persons.GetPerson(ctx, params.PersonID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := validatePersonInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	person = existing
	person.Name = strings.TrimSpace(params.Input.Name)
	person.Email = params.Input.Email
	person.Title = params.Input.Title
	person.Organization = params.Input.Organization
	person.Bio = params.Input.Bio
	person.UpdatedAt = s.now()

	if err = s.persons.UpdatePerson(ctx, person); err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// GetPerson retrieves a person by ID.
func (s *PersonService) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	if s == nil {
		return persistence.Person{}, fmt.Errorf("PersonService is nil")
	}
	person, err := s.persons.GetPerson(ctx, id)
	if err != nil {
		return persistence.Person{}, mapRepoError(err)
	}
	return person, nil
}

// ListPersons returns all speaker records ordered by name.
func (s *PersonService) ListPersons(ctx context.Context) ([]persistence.Person, error) {
	if s == nil {
		return nil, fmt.Errorf("PersonService is nil")
	}
	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return persons, nil
}

// DeletePerson removes a speaker record. Sessions that still reference the
// person render a placeholder name instead.
func (s *PersonService) DeletePerson(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("PersonService is nil")
	}

	logger := s.loggerWith(ctx, "DeletePerson",
		"principal_id", principal.AccountID,
		"person_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "person deleted")
	}()

	if principal.AccountID == "" {
		return ErrUnauthorized
	}

	if err = s.persons.DeletePerson(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func validatePersonInput(input PersonInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Email != nil && *input.Email != "" && !strings.Contains(*input.Email, "@") {
		vErr.add("email", "email is invalid")
	}
	return vErr
}
