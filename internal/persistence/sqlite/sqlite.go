package sqlite

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

type dayHallKey struct {
	dayID  string
	hallID string
}

type placementKey struct {
	dayID      string
	stageID    string
	timeSlotID string
}

type slotOrderKey struct {
	dayID     string
	slotOrder int
}

// Storage provides an in-memory persistence layer implementing every
// repository interface. It mirrors the relational constraints of the SQLite
// schema so services behave identically against either backend.
type Storage struct {
	mu           sync.RWMutex
	days         map[string]persistence.ConferenceDay
	halls        map[string]persistence.Hall
	dayHalls     map[dayHallKey]persistence.DayHall
	slots        map[string]persistence.TimeSlot
	sessions     map[string]persistence.Session
	participants map[string][]persistence.SessionParticipant
	persons      map[string]persistence.Person
	accounts     map[string]persistence.AccountCredentials
	authSessions map[string]persistence.AuthSession
}

// Open returns a new Storage instance. The dsn is accepted for API
// compatibility with the file-backed store.
func Open(_ string) (*Storage, error) {
	return &Storage{
		days:         make(map[string]persistence.ConferenceDay),
		halls:        make(map[string]persistence.Hall),
		dayHalls:     make(map[dayHallKey]persistence.DayHall),
		slots:        make(map[string]persistence.TimeSlot),
		sessions:     make(map[string]persistence.Session),
		participants: make(map[string][]persistence.SessionParticipant),
		persons:      make(map[string]persistence.Person),
		accounts:     make(map[string]persistence.AccountCredentials),
		authSessions: make(map[string]persistence.AuthSession),
	}, nil
}

// Close releases resources held by the storage. No-op for the in-memory
// implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- DayRepository implementation ---

// CreateDay stores a new conference day.
func (s *Storage) CreateDay(ctx context.Context, day persistence.ConferenceDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[day.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.days[day.ID] = day
	return nil
}

// UpdateDay updates an existing day.
func (s *Storage) UpdateDay(ctx context.Context, day persistence.ConferenceDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[day.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.days[day.ID] = day
	return nil
}

// GetDay retrieves a day by ID.
func (s *Storage) GetDay(ctx context.Context, id string) (persistence.ConferenceDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.days[id]
	if !ok {
		return persistence.ConferenceDay{}, persistence.ErrNotFound
	}
	return day, nil
}

// ListDays returns all days ordered by calendar date.
func (s *Storage) ListDays(ctx context.Context) ([]persistence.ConferenceDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]persistence.ConferenceDay, 0, len(s.days))
	for _, day := range s.days {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i].Date.Equal(days[j].Date) {
			return days[i].ID < days[j].ID
		}
		return days[i].Date.Before(days[j].Date)
	})
	return days, nil
}

// DeleteDay removes a day along with its hall memberships and time slots.
func (s *Storage) DeleteDay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.days, id)
	for key := range s.dayHalls {
		if key.dayID == id {
			delete(s.dayHalls, key)
		}
	}
	for slotID, slot := range s.slots {
		if slot.DayID == id {
			delete(s.slots, slotID)
		}
	}
	return nil
}

// --- HallRepository implementation ---

// CreateHall stores a new hall.
func (s *Storage) CreateHall(ctx context.Context, hall persistence.Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.halls[hall.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.halls[hall.ID] = cloneHall(hall)
	return nil
}

// UpdateHall updates an existing hall.
func (s *Storage) UpdateHall(ctx context.Context, hall persistence.Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.halls[hall.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.halls[hall.ID] = cloneHall(hall)
	return nil
}

// GetHall retrieves a hall by ID.
func (s *Storage) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hall, ok := s.halls[id]
	if !ok {
		return persistence.Hall{}, persistence.ErrNotFound
	}
	return cloneHall(hall), nil
}

// ListHalls returns all halls ordered by name.
func (s *Storage) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	halls := make([]persistence.Hall, 0, len(s.halls))
	for _, hall := range s.halls {
		halls = append(halls, cloneHall(hall))
	}
	sort.Slice(halls, func(i, j int) bool {
		if halls[i].Name == halls[j].Name {
			return halls[i].ID < halls[j].ID
		}
		return halls[i].Name < halls[j].Name
	})
	return halls, nil
}

// DeleteHall removes a hall along with its day memberships.
func (s *Storage) DeleteHall(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.halls[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.halls, id)
	for key := range s.dayHalls {
		if key.hallID == id {
			delete(s.dayHalls, key)
		}
	}
	return nil
}

// AssignHallToDay records hall membership for a day.
func (s *Storage) AssignHallToDay(ctx context.Context, assignment persistence.DayHall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayHallKey{dayID: assignment.DayID, hallID: assignment.HallID}
	if _, ok := s.dayHalls[key]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.days[assignment.DayID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.halls[assignment.HallID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.dayHalls[key] = assignment
	return nil
}

// RemoveHallFromDay deletes a membership record.
func (s *Storage) RemoveHallFromDay(ctx context.Context, dayID, hallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayHallKey{dayID: dayID, hallID: hallID}
	if _, ok := s.dayHalls[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.dayHalls, key)
	return nil
}

// ListDayHalls returns one day's memberships ordered by position.
func (s *Storage) ListDayHalls(ctx context.Context, dayID string) ([]persistence.DayHall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memberships := make([]persistence.DayHall, 0)
	for key, m := range s.dayHalls {
		if key.dayID == dayID {
			memberships = append(memberships, m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		if memberships[i].Position == memberships[j].Position {
			return memberships[i].HallID < memberships[j].HallID
		}
		return memberships[i].Position < memberships[j].Position
	})
	return memberships, nil
}

// --- TimeSlotRepository implementation ---

// CreateSlots inserts slots atomically. A clash on (day, slot order), within
// the batch or against stored slots, rejects the whole batch with
// ErrDuplicate.
func (s *Storage) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[slotOrderKey]bool, len(slots))
	for _, slot := range s.slots {
		seen[slotOrderKey{dayID: slot.DayID, slotOrder: slot.SlotOrder}] = true
	}
	for _, slot := range slots {
		key := slotOrderKey{dayID: slot.DayID, slotOrder: slot.SlotOrder}
		if seen[key] {
			return persistence.ErrDuplicate
		}
		seen[key] = true
		if _, ok := s.slots[slot.ID]; ok {
			return persistence.ErrDuplicate
		}
	}
	for _, slot := range slots {
		s.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// UpdateSlot updates an existing slot.
func (s *Storage) UpdateSlot(ctx context.Context, slot persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.slots[slot.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	slot.DayID = current.DayID
	slot.SlotOrder = current.SlotOrder
	slot.CreatedAt = current.CreatedAt
	s.slots[slot.ID] = cloneSlot(slot)
	return nil
}

// ListSlots returns one day's slots ordered by slot order.
func (s *Storage) ListSlots(ctx context.Context, dayID string) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.TimeSlot, 0)
	for _, slot := range s.slots {
		if slot.DayID == dayID {
			slots = append(slots, cloneSlot(slot))
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].SlotOrder < slots[j].SlotOrder
	})
	return slots, nil
}

// DeleteSlot removes one slot.
func (s *Storage) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.slots, id)
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a session. An occupied grid cell rejects the insert
// with ErrDuplicate.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return persistence.ErrDuplicate
	}
	if s.placementTakenLocked(session) {
		return persistence.ErrDuplicate
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// UpdateSession updates an existing session, re-checking cell occupancy.
func (s *Storage) UpdateSession(ctx context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return persistence.ErrNotFound
	}
	if s.placementTakenLocked(session) {
		return persistence.ErrDuplicate
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetSession retrieves a session by ID.
func (s *Storage) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// ListSessions returns sessions matching the filter ordered by creation time.
func (s *Storage) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]persistence.Session, 0)
	for _, session := range s.sessions {
		if filter.DayID != "" && session.DayID != filter.DayID {
			continue
		}
		if filter.StageID != "" && session.StageID != filter.StageID {
			continue
		}
		sessions = append(sessions, cloneSession(session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// DeleteSession removes a session and its participant records.
func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.participants, id)
	return nil
}

// FindByPlacement returns the session occupying one grid cell.
func (s *Storage) FindByPlacement(ctx context.Context, dayID, stageID, timeSlotID string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.DayID == dayID && session.StageID == stageID && session.TimeSlotID == timeSlotID {
			return cloneSession(session), nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// ReassignSessions moves every session on one hall to another. A session on
// the target hall already holding one of the destination cells fails the
// whole move with ErrDuplicate; nothing is moved partially.
func (s *Storage) ReassignSessions(ctx context.Context, fromHallID, toHallID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	occupied := make(map[placementKey]bool)
	for _, session := range s.sessions {
		if session.StageID == toHallID {
			occupied[placementKey{dayID: session.DayID, stageID: toHallID, timeSlotID: session.TimeSlotID}] = true
		}
	}
	for _, session := range s.sessions {
		if session.StageID != fromHallID {
			continue
		}
		if occupied[placementKey{dayID: session.DayID, stageID: toHallID, timeSlotID: session.TimeSlotID}] {
			return 0, persistence.ErrDuplicate
		}
	}

	moved := 0
	for id, session := range s.sessions {
		if session.StageID == fromHallID {
			session.StageID = toHallID
			s.sessions[id] = session
			moved++
		}
	}
	return moved, nil
}

// ReplaceParticipants swaps the full participant list of a session.
func (s *Storage) ReplaceParticipants(ctx context.Context, sessionID string, participants []persistence.SessionParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	copied := make([]persistence.SessionParticipant, len(participants))
	copy(copied, participants)
	s.participants[sessionID] = copied
	return nil
}

// ListParticipants returns a session's participant records.
func (s *Storage) ListParticipants(ctx context.Context, sessionID string) ([]persistence.SessionParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.participants[sessionID]
	participants := make([]persistence.SessionParticipant, len(stored))
	copy(participants, stored)
	return participants, nil
}

func (s *Storage) placementTakenLocked(candidate persistence.Session) bool {
	key := placementKey{dayID: candidate.DayID, stageID: candidate.StageID, timeSlotID: candidate.TimeSlotID}
	for _, session := range s.sessions {
		if session.ID == candidate.ID {
			continue
		}
		existing := placementKey{dayID: session.DayID, stageID: session.StageID, timeSlotID: session.TimeSlotID}
		if existing == key {
			return true
		}
	}
	return false
}

// --- PersonRepository implementation ---

// CreatePerson stores a speaker record.
func (s *Storage) CreatePerson(ctx context.Context, person persistence.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[person.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.persons[person.ID] = clonePerson(person)
	return nil
}

// UpdatePerson updates an existing speaker record.
func (s *Storage) UpdatePerson(ctx context.Context, person persistence.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[person.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.persons[person.ID] = clonePerson(person)
	return nil
}

// GetPerson retrieves a person by ID.
func (s *Storage) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	person, ok := s.persons[id]
	if !ok {
		return persistence.Person{}, persistence.ErrNotFound
	}
	return clonePerson(person), nil
}

// ListPersons returns all speaker records ordered by name.
func (s *Storage) ListPersons(ctx context.Context) ([]persistence.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	persons := make([]persistence.Person, 0, len(s.persons))
	for _, person := range s.persons {
		persons = append(persons, clonePerson(person))
	}
	sort.Slice(persons, func(i, j int) bool {
		if persons[i].Name == persons[j].Name {
			return persons[i].ID < persons[j].ID
		}
		return persons[i].Name < persons[j].Name
	})
	return persons, nil
}

// DeletePerson removes a speaker record.
func (s *Storage) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.persons, id)
	return nil
}

// --- AccountRepository implementation ---

// CreateAccount stores an editor account. Email addresses are unique.
func (s *Storage) CreateAccount(ctx context.Context, creds persistence.AccountCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[creds.Account.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(creds.Account.Email)
	for _, existing := range s.accounts {
		if strings.ToLower(existing.Account.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	s.accounts[creds.Account.ID] = creds
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Storage) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.accounts[id]
	if !ok {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return creds.Account, nil
}

// GetAccountCredentialsByEmail retrieves login credentials by email.
func (s *Storage) GetAccountCredentialsByEmail(ctx context.Context, email string) (persistence.AccountCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(email)
	for _, creds := range s.accounts {
		if strings.ToLower(creds.Account.Email) == lower {
			return creds, nil
		}
	}
	return persistence.AccountCredentials{}, persistence.ErrNotFound
}

// --- AuthSessionRepository implementation ---

// CreateAuthSession stores an issued token.
func (s *Storage) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authSessions[session.Token]; ok {
		return persistence.AuthSession{}, persistence.ErrDuplicate
	}
	s.authSessions[session.Token] = cloneAuthSession(session)
	return session, nil
}

// GetAuthSession retrieves a token record.
func (s *Storage) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.authSessions[token]
	if !ok {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	return cloneAuthSession(session), nil
}

// RevokeAuthSession stamps a token revoked. Revoking an already revoked token
// reports ErrNotFound.
func (s *Storage) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.authSessions[token]
	if !ok || session.RevokedAt != nil {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	stamp := revokedAt
	session.RevokedAt = &stamp
	session.UpdatedAt = revokedAt
	s.authSessions[token] = session
	return cloneAuthSession(session), nil
}

// DeleteExpiredAuthSessions prunes tokens past their expiry.
func (s *Storage) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.authSessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.authSessions, token)
		}
	}
	return nil
}

// --- clone helpers ---

func cloneHall(hall persistence.Hall) persistence.Hall {
	if hall.Capacity != nil {
		capacity := *hall.Capacity
		hall.Capacity = &capacity
	}
	return hall
}

func cloneSlot(slot persistence.TimeSlot) persistence.TimeSlot {
	if slot.BreakTitle != nil {
		title := *slot.BreakTitle
		slot.BreakTitle = &title
	}
	return slot
}

func cloneSession(session persistence.Session) persistence.Session {
	session.Topic = cloneStringPtr(session.Topic)
	session.Description = cloneStringPtr(session.Description)
	session.ParallelMealType = cloneStringPtr(session.ParallelMealType)
	if session.Extra != nil {
		extra := make(map[string]string, len(session.Extra))
		for k, v := range session.Extra {
			extra[k] = v
		}
		session.Extra = extra
	}
	return session
}

func clonePerson(person persistence.Person) persistence.Person {
	person.Email = cloneStringPtr(person.Email)
	person.Title = cloneStringPtr(person.Title)
	person.Organization = cloneStringPtr(person.Organization)
	person.Bio = cloneStringPtr(person.Bio)
	return person
}

func cloneAuthSession(session persistence.AuthSession) persistence.AuthSession {
	if session.RevokedAt != nil {
		stamp := *session.RevokedAt
		session.RevokedAt = &stamp
	}
	return session
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
