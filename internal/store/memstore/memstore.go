// Package memstore is an in-process implementation of dependency.Repository.
// Transactions are serialised by a single mutex and roll back by restoring a
// snapshot, which gives the same isolation the MySQL store gets from
// SERIALIZABLE transactions.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

// ErrUniqueViolation is returned when a write breaks a uniqueness constraint.
var ErrUniqueViolation = errors.New("unique constraint violated")

type data struct {
	seq         int
	weddings    map[int]entity.Wedding
	guests      map[int]entity.Guest
	responses   map[int]entity.RSVPResponse
	tables      map[int]entity.WeddingTable
	assignments map[int]entity.SeatingAssignment
	conflicts   map[int]entity.GuestConflict
	invitations map[int]entity.Invitation
	changeLog   []entity.ChangeLogEntry
}

func newData() *data {
	return &data{
		weddings:    map[int]entity.Wedding{},
		guests:      map[int]entity.Guest{},
		responses:   map[int]entity.RSVPResponse{},
		tables:      map[int]entity.WeddingTable{},
		assignments: map[int]entity.SeatingAssignment{},
		conflicts:   map[int]entity.GuestConflict{},
		invitations: map[int]entity.Invitation{},
	}
}

func (d *data) clone() *data {
	return &data{
		seq:         d.seq,
		weddings:    maps.Clone(d.weddings),
		guests:      maps.Clone(d.guests),
		responses:   maps.Clone(d.responses),
		tables:      maps.Clone(d.tables),
		assignments: maps.Clone(d.assignments),
		conflicts:   maps.Clone(d.conflicts),
		invitations: maps.Clone(d.invitations),
		changeLog:   append([]entity.ChangeLogEntry(nil), d.changeLog...),
	}
}

func (d *data) nextId() int {
	d.seq++
	return d.seq
}

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu       *sync.Mutex
	d        *data
	clock    func() time.Time
	inTx     bool
	ts       time.Time
	snapshot *data
}

type Option func(*Store)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		mu:    &sync.Mutex{},
		d:     newData(),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// lock takes the store mutex outside of transactions. Inside a transaction
// the mutex is already held.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Tx(ctx context.Context, f func(context.Context, dependency.Repository) error) error {
	tx, err := s.TxBegin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.TxRollback(ctx)
			panic(p)
		}
	}()
	if err := f(ctx, tx); err != nil {
		_ = tx.TxRollback(ctx)
		return err
	}
	return tx.TxCommit(ctx)
}

func (s *Store) TxBegin(ctx context.Context) (dependency.Repository, error) {
	if s.inTx {
		return nil, fmt.Errorf("already in transaction")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Store{
		mu:       s.mu,
		d:        s.d,
		clock:    s.clock,
		inTx:     true,
		ts:       s.Now(),
		snapshot: s.d.clone(),
	}, nil
}

func (s *Store) TxCommit(ctx context.Context) error {
	if !s.inTx || s.snapshot == nil {
		return fmt.Errorf("not in transaction")
	}
	s.snapshot = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) TxRollback(ctx context.Context) error {
	if !s.inTx || s.snapshot == nil {
		return fmt.Errorf("not in transaction")
	}
	*s.d = *s.snapshot
	s.snapshot = nil
	s.mu.Unlock()
	return nil
}

// Now returns current time for the store. It is frozen during transactions.
func (s *Store) Now() time.Time {
	if s.ts.IsZero() {
		return s.clock()
	}
	return s.ts
}

func (s *Store) InTx() bool {
	return s.inTx
}

func (s *Store) Close() {}

func (s *Store) IsErrUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

func (s *Store) IsErrorRepeat(err error) bool {
	return false
}

func (s *Store) Weddings() dependency.Weddings       { return weddingStore{s} }
func (s *Store) Guests() dependency.Guests           { return guestStore{s} }
func (s *Store) Responses() dependency.Responses     { return responseStore{s} }
func (s *Store) Tables() dependency.Tables           { return tableStore{s} }
func (s *Store) Seating() dependency.Seating         { return seatingStore{s} }
func (s *Store) Conflicts() dependency.Conflicts     { return conflictStore{s} }
func (s *Store) Invitations() dependency.Invitations { return invitationStore{s} }
func (s *Store) ChangeLog() dependency.ChangeLog     { return changeLogStore{s} }
