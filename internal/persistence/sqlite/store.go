package sqlite

import "context"

// Store bundles the file-backed repositories behind one connection pool. It
// satisfies the same repository interfaces as Storage, so the server can run
// against either.
type Store struct {
	pool *ConnectionPool

	*DayRepository
	*HallRepository
	*TimeSlotRepository
	*SessionRepository
	*PersonRepository
	*AccountRepository
}

// OpenStore opens the database file, applies pending migrations and wires the
// repositories.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{
		pool:               pool,
		DayRepository:      NewDayRepository(pool),
		HallRepository:     NewHallRepository(pool),
		TimeSlotRepository: NewTimeSlotRepository(pool),
		SessionRepository:  NewSessionRepository(pool),
		PersonRepository:   NewPersonRepository(pool),
		AccountRepository:  NewAccountRepository(pool),
	}, nil
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}
