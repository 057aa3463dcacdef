package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

var _ dependency.Repository = (*MYSQLStore)(nil)

func newTestDB(t *testing.T) *MYSQLStore {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN is not set")
	}
	db, err := New(context.Background(), Config{
		DSN:         dsn,
		Automigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	_, err = db.db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	require.NoError(t, err)
	for _, table := range []string{
		"change_log",
		"invitation",
		"guest_conflict",
		"seating_assignment",
		"wedding_table",
		"rsvp_response",
		"guest",
		"wedding",
	} {
		_, err = db.db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	_, err = db.db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	require.NoError(t, err)
	return db
}

func addWeddingAndGuest(t *testing.T, db *MYSQLStore) (int, int) {
	t.Helper()
	ctx := context.Background()
	w, err := db.Weddings().AddWedding(ctx, &entity.WeddingInsert{CoupleName: "Ana & Ben", OwnerSubject: "ana@example.com"})
	require.NoError(t, err)
	g := entity.GuestInsert{FirstName: "José", LastName: "Núñez", Email: "jose@example.com", DietaryRequirements: entity.StringList{"vegan"}}
	entity.NormalizeGuestInsert(&g)
	id, err := db.Guests().AddGuest(ctx, w, &g, "token-jose")
	require.NoError(t, err)
	return w, id
}

func TestGuestRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w, id := addWeddingAndGuest(t, db)

	g, err := db.Guests().GetGuestById(ctx, w, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RSVPPending, g.RSVPStatus)
	assert.Equal(t, "jose nunez", g.NameKey)
	assert.Equal(t, entity.StringList{"vegan"}, g.DietaryRequirements)

	byToken, err := db.Guests().GetGuestByToken(ctx, "token-jose")
	require.NoError(t, err)
	assert.Equal(t, id, byToken.Id)

	dups, err := db.Guests().FindByNameKey(ctx, w, "jose nunez")
	require.NoError(t, err)
	assert.Len(t, dups, 1)

	_, err = db.Guests().AddGuest(ctx, w, &entity.GuestInsert{FirstName: "A", LastName: "B", GuestGroup: "x"}, "token-jose")
	assert.True(t, db.IsErrUniqueViolation(err))

	require.NoError(t, db.Guests().SoftDeleteGuest(ctx, w, id))
	list, err := db.Guests().ListGuests(ctx, w, entity.GuestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = db.Guests().ListGuests(ctx, w, entity.GuestFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = db.Guests().GetGuestById(ctx, w+1, id)
	assert.True(t, gerr.IsNotFound(err))
}

func TestLatestResponse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w, id := addWeddingAndGuest(t, db)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := db.Responses().AddResponse(ctx, w, id, &entity.ResponseInsert{ResponseType: entity.AttendingBoth, GuestCount: 2, ResponseDate: day, Channel: entity.ChannelForm})
	require.NoError(t, err)
	_, err = db.Responses().AddResponse(ctx, w, id, &entity.ResponseInsert{ResponseType: entity.NotAttending, GuestCount: 1, ResponseDate: day.Add(-time.Hour), Channel: entity.ChannelStaff})
	require.NoError(t, err)

	latest, err := db.Responses().LatestResponse(ctx, w, id)
	require.NoError(t, err)
	assert.Equal(t, entity.AttendingBoth, latest.ResponseType)

	all, err := db.Responses().ListLatestResponses(ctx, w)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, latest.Id, all[0].Id)
}

func TestSeatingAndTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w, id := addWeddingAndGuest(t, db)

	tableId, err := db.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 8, Shape: entity.ShapeRound})
	require.NoError(t, err)
	_, err = db.Tables().AddTable(ctx, w, &entity.TableInsert{TableNumber: 1, Capacity: 8, Shape: entity.ShapeRound})
	assert.True(t, db.IsErrUniqueViolation(err))

	boom := errors.New("boom")
	err = db.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		if _, err := rep.Tables().LockTable(ctx, w, tableId); err != nil {
			return err
		}
		if _, err := rep.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: w, GuestId: id, TableId: tableId, SeatsHeld: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = db.Seating().GetAssignmentByGuest(ctx, w, id)
	assert.True(t, gerr.IsNotFound(err))

	err = db.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		_, err := rep.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: w, GuestId: id, TableId: tableId, SeatsHeld: 1})
		return err
	})
	require.NoError(t, err)

	tables, err := db.Tables().ListTablesWithUsage(ctx, w)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 1, tables[0].Used)
}

func TestChangeLogEntries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w, id := addWeddingAndGuest(t, db)

	ref := entity.EntityRef{WeddingId: w, Type: entity.EntityGuest, Id: id}
	require.NoError(t, db.ChangeLog().AddEntries(ctx, entity.Changes(ref, entity.ChangeUpdate, "planner@example.com", "", []entity.FieldChange{
		{Field: "email", Old: "a@example.com", New: "b@example.com"},
		{Field: "phone", Old: "", New: "123456"},
	})))

	page, err := db.ChangeLog().ListEntries(ctx, ref, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "email", page[0].Field)
	page, err = db.ChangeLog().ListEntries(ctx, ref, page[0].Id, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "phone", page[0].Field)
}
