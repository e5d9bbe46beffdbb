package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/conference-program/internal/persistence"
)

// PersonRepository implements persistence.PersonRepository over SQLite.
type PersonRepository struct {
	pool *ConnectionPool
}

// NewPersonRepository creates a SQLite-backed person repository.
func NewPersonRepository(pool *ConnectionPool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// CreatePerson inserts a speaker record.
func (r *PersonRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO persons (id, name, email, title, organization, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID, person.Name,
		nullString(person.Email), nullString(person.Title),
		nullString(person.Organization), nullString(person.Bio),
		formatTime(person.CreatedAt), formatTime(person.UpdatedAt),
	)
	return mapError(err)
}

// UpdatePerson rewrites a speaker record.
func (r *PersonRepository) UpdatePerson(ctx context.Context, person persistence.Person) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE persons
		SET name = ?, email = ?, title = ?, organization = ?, bio = ?, updated_at = ?
		WHERE id = ?`,
		person.Name,
		nullString(person.Email), nullString(person.Title),
		nullString(person.Organization), nullString(person.Bio),
		formatTime(person.UpdatedAt), person.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetPerson retrieves a person by ID.
func (r *PersonRepository) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, email, title, organization, bio, created_at, updated_at
		FROM persons WHERE id = ?`, id)
	return scanPerson(row)
}

// ListPersons returns all speaker records ordered by name.
func (r *PersonRepository) ListPersons(ctx context.Context) ([]persistence.Person, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, email, title, organization, bio, created_at, updated_at
		FROM persons ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	persons := make([]persistence.Person, 0)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

// DeletePerson removes a speaker record. Sessions keep the dangling person ID;
// role resolution substitutes a placeholder name.
func (r *PersonRepository) DeletePerson(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanPerson(row rowScanner) (persistence.Person, error) {
	var person persistence.Person
	var email, title, organization, bio sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&person.ID, &person.Name, &email, &title, &organization, &bio,
		&createdAt, &updatedAt)
	if err != nil {
		return persistence.Person{}, mapError(err)
	}
	person.Email = stringPtr(email)
	person.Title = stringPtr(title)
	person.Organization = stringPtr(organization)
	person.Bio = stringPtr(bio)
	person.CreatedAt = parseTime(createdAt)
	person.UpdatedAt = parseTime(updatedAt)
	return person, nil
}
