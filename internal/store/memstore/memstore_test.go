package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

var _ dependency.Repository = (*Store)(nil)

func seed(t *testing.T, s *Store) (weddingId, guestId int) {
	t.Helper()
	ctx := context.Background()
	weddingId, err := s.Weddings().AddWedding(ctx, &entity.WeddingInsert{CoupleName: "Ana & Ben"})
	require.NoError(t, err)
	guestId, err = s.Guests().AddGuest(ctx, weddingId, &entity.GuestInsert{FirstName: "José", LastName: "Núñez", Phone: "+34 600-123-456"}, "tok")
	require.NoError(t, err)
	return weddingId, guestId
}

func TestAddGuestDefaults(t *testing.T) {
	s := New()
	w, id := seed(t, s)

	g, err := s.Guests().GetGuestById(context.Background(), w, id)
	require.NoError(t, err)
	assert.Equal(t, entity.GuestActive, g.State)
	assert.Equal(t, entity.RSVPPending, g.RSVPStatus)
	assert.Equal(t, 1, g.PartySize)
	assert.Equal(t, "jose nunez", g.NameKey)
	assert.Equal(t, "34600123456", g.PhoneKey)

	_, err = s.Guests().GetGuestById(context.Background(), w+1, id)
	assert.True(t, gerr.IsNotFound(err))
}

func TestTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	w, id := seed(t, s)

	boom := errors.New("boom")
	err := s.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		assert.True(t, rep.InTx())
		require.NoError(t, rep.Guests().SoftDeleteGuest(ctx, w, id))
		_, err := rep.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 8})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	g, err := s.Guests().GetGuestById(ctx, w, id)
	require.NoError(t, err)
	assert.True(t, g.IsActive())
	tables, err := s.Tables().ListTablesWithUsage(ctx, w)
	require.NoError(t, err)
	assert.Empty(t, tables)

	err = s.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		return rep.Guests().SoftDeleteGuest(ctx, w, id)
	})
	require.NoError(t, err)
	g, err = s.Guests().GetGuestById(ctx, w, id)
	require.NoError(t, err)
	assert.False(t, g.IsActive())
	require.NotNil(t, g.DeletedAt)
}

func TestTxPanicReleasesStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	w, id := seed(t, s)

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
			if err := rep.Guests().SoftDeleteGuest(ctx, w, id); err != nil {
				return err
			}
			panic("boom")
		})
	})

	// The write is rolled back and the store is usable again.
	g, err := s.Guests().GetGuestById(ctx, w, id)
	require.NoError(t, err)
	assert.True(t, g.IsActive())
	require.NoError(t, s.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		return rep.Guests().SoftDeleteGuest(ctx, w, id)
	}))
}

func TestTxFreezesClock(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	s := New(WithClock(func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}))

	assert.NotEqual(t, s.Now(), s.Now())
	err := s.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		first := rep.Now()
		assert.Equal(t, first, rep.Now())
		assert.Error(t, rep.Tx(ctx, nil))
		return nil
	})
	require.NoError(t, err)
}

func TestUniqueViolations(t *testing.T) {
	ctx := context.Background()
	s := New()
	w, a := seed(t, s)

	_, err := s.Guests().AddGuest(ctx, w, &entity.GuestInsert{FirstName: "Eva", LastName: "Ruiz"}, "tok")
	assert.True(t, s.IsErrUniqueViolation(err))
	b, err := s.Guests().AddGuest(ctx, w, &entity.GuestInsert{FirstName: "Eva", LastName: "Ruiz"}, "tok2")
	require.NoError(t, err)

	t1, err := s.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 4})
	require.NoError(t, err)
	_, err = s.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 6})
	assert.True(t, s.IsErrUniqueViolation(err))
	t2, err := s.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 2, Capacity: 6})
	require.NoError(t, err)
	err = s.Tables().UpdateTable(ctx, w, t2, &entity.TableInsert{TableNumber: 1, Capacity: 6})
	assert.True(t, s.IsErrUniqueViolation(err))

	_, err = s.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: w, GuestId: a, TableId: t1, SeatsHeld: 1})
	require.NoError(t, err)
	_, err = s.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: w, GuestId: a, TableId: t2, SeatsHeld: 1})
	assert.True(t, s.IsErrUniqueViolation(err))

	_, err = s.Conflicts().AddConflict(ctx, &entity.GuestConflict{WeddingId: w, GuestAId: b, GuestBId: a})
	require.NoError(t, err)
	_, err = s.Conflicts().AddConflict(ctx, &entity.GuestConflict{WeddingId: w, GuestAId: a, GuestBId: b})
	assert.True(t, s.IsErrUniqueViolation(err))

	conflicts, err := s.Conflicts().ListConflicts(ctx, w)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, a, conflicts[0].GuestAId)
	assert.Equal(t, b, conflicts[0].GuestBId)
}

func TestTableUsage(t *testing.T) {
	ctx := context.Background()
	s := New()
	w, a := seed(t, s)
	require.NoError(t, s.Guests().SetRSVPState(ctx, w, a, entity.GuestRSVPState{Status: entity.RSVPConfirmed, PartySize: 3}))

	t2, err := s.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 2, Capacity: 4})
	require.NoError(t, err)
	t1, err := s.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 10})
	require.NoError(t, err)
	_, err = s.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: w, GuestId: a, TableId: t2, SeatsHeld: 3})
	require.NoError(t, err)

	tables, err := s.Tables().ListTablesWithUsage(ctx, w)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, t1, tables[0].Id)
	assert.Zero(t, tables[0].Used)
	assert.Equal(t, t2, tables[1].Id)
	assert.Equal(t, 3, tables[1].Used)
	assert.Equal(t, 1, tables[1].Remaining())

	seated, err := s.Seating().ListSeatedAtTable(ctx, w, t2)
	require.NoError(t, err)
	require.Len(t, seated, 1)
	assert.Equal(t, 3, seated[0].PartySize)
}

func TestChangeLogPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	ref := entity.EntityRef{WeddingId: 1, Type: entity.EntityGuest, Id: 7}
	var entries []entity.ChangeLogEntry
	for _, f := range []string{"a", "b", "c"} {
		entries = append(entries, entity.Changes(ref, entity.ChangeUpdate, "me", "", []entity.FieldChange{{Field: f}})...)
	}
	entries = append(entries, entity.Changes(entity.EntityRef{WeddingId: 1, Type: entity.EntityGuest, Id: 8}, entity.ChangeUpdate, "me", "", []entity.FieldChange{{Field: "x"}})...)
	require.NoError(t, s.ChangeLog().AddEntries(ctx, entries))

	page, err := s.ChangeLog().ListEntries(ctx, ref, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].Field)
	assert.Equal(t, "b", page[1].Field)

	page, err = s.ChangeLog().ListEntries(ctx, ref, page[1].Id, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].Field)
}
