package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
	"github.com/wedsync/guestlist/internal/store/memstore"
)

type testBed struct {
	repo    *memstore.Store
	auditor *audit.Auditor
	r       *Registry
	wedding int
}

func newTestBed(t *testing.T, c Config) *testBed {
	t.Helper()
	repo := memstore.New()
	tb := &testBed{repo: repo, auditor: audit.New(repo, audit.Config{})}
	tb.r = New(repo, tb.auditor, c)
	w, err := tb.r.CreateWedding(context.Background(), entity.WeddingInsert{CoupleName: "Ana & Ben"})
	require.NoError(t, err)
	tb.wedding = w.Id
	return tb
}

func (tb *testBed) history(t *testing.T, guestId int) []entity.ChangeLogEntry {
	t.Helper()
	entries, err := tb.auditor.Collect(context.Background(), entity.EntityRef{WeddingId: tb.wedding, Type: entity.EntityGuest, Id: guestId})
	require.NoError(t, err)
	return entries
}

func TestCreateWedding(t *testing.T) {
	tb := newTestBed(t, DefaultConfig())
	_, err := tb.r.CreateWedding(context.Background(), entity.WeddingInsert{CoupleName: "  "})
	assert.ErrorIs(t, err, gerr.ErrValidation)

	_, err = tb.r.GetWedding(context.Background(), tb.wedding+100)
	assert.True(t, gerr.IsNotFound(err))
}

func TestCreateGuest(t *testing.T) {
	ctx := middleware.WithActor(context.Background(), "ana@example.com")
	tb := newTestBed(t, DefaultConfig())

	_, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Cleo"})
	var ve *gerr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "last_name", ve.Field)

	_, err = tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Cleo", LastName: "Diaz", Email: "not-an-email"})
	assert.ErrorIs(t, err, gerr.ErrValidation)

	_, err = tb.r.CreateGuest(ctx, tb.wedding+100, entity.GuestInsert{FirstName: "Cleo", LastName: "Diaz"})
	assert.True(t, gerr.IsNotFound(err))

	res, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{
		FirstName: " José ", LastName: "García", Email: " Jose@Example.COM ",
		DietaryRequirements: entity.StringList{" vegan ", ""},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Duplicates)
	g := res.Guest
	assert.Equal(t, "José", g.FirstName)
	assert.Equal(t, "jose@example.com", g.Email)
	assert.Equal(t, entity.DefaultGuestGroup, g.GuestGroup)
	assert.Equal(t, entity.StringList{"vegan"}, g.DietaryRequirements)
	assert.Equal(t, entity.RSVPPending, g.RSVPStatus)
	assert.Equal(t, 1, g.PartySize)
	assert.NotEmpty(t, g.RSVPToken)

	history := tb.history(t, g.Id)
	require.NotEmpty(t, history)
	for _, e := range history {
		assert.Equal(t, entity.ChangeCreate, e.ChangeType)
		assert.Equal(t, "ana@example.com", e.Actor)
	}

	// Same person, accents and case aside, with the same email.
	dup, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "jose", LastName: "GARCIA", Email: "jose@example.com"})
	require.NoError(t, err)
	require.NotNil(t, dup.Duplicates)
	assert.Equal(t, []int{g.Id}, dup.Duplicates.GuestIds)
	assert.Equal(t, "name+email", dup.Duplicates.MatchedOn)
	assert.NotNil(t, dup.Guest)

	// Same name but nothing else in common is someone else.
	other, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "José", LastName: "García", Email: "other@example.com"})
	require.NoError(t, err)
	assert.Nil(t, other.Duplicates)
}

func TestDuplicateMatchByPhone(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{DuplicateMatch: []string{MatchPhone}})

	first, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Dan", LastName: "Eze", Phone: "+44 20 7946 0000", Email: "a@example.com"})
	require.NoError(t, err)
	res, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Dan", LastName: "Eze", Phone: "0044 (20) 7946-0000"})
	require.NoError(t, err)
	require.NotNil(t, res.Duplicates)
	assert.Equal(t, []int{first.Guest.Id}, res.Duplicates.GuestIds)
	assert.Equal(t, "name+phone", res.Duplicates.MatchedOn)

	// Email is not a configured key here.
	res, err = tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Dan", LastName: "Eze", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.Duplicates)
}

func TestUpdateGuest(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, DefaultConfig())
	res, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Eve", LastName: "Fox", PlusOneAllowed: true})
	require.NoError(t, err)
	id := res.Guest.Id
	created := len(tb.history(t, id))

	group := "college"
	email := "EVE@example.com"
	g, err := tb.r.UpdateGuest(ctx, tb.wedding, id, entity.GuestPatch{GuestGroup: &group, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "college", g.GuestGroup)
	assert.Equal(t, "eve@example.com", g.Email)
	assert.Equal(t, "Fox", g.LastName)

	history := tb.history(t, id)
	require.Len(t, history, created+2)
	assert.Equal(t, "email", history[created].Field)
	assert.Equal(t, "guest_group", history[created+1].Field)
	assert.Equal(t, entity.DefaultGuestGroup, history[created+1].OldValue)

	// Nothing changes, nothing is logged.
	_, err = tb.r.UpdateGuest(ctx, tb.wedding, id, entity.GuestPatch{GuestGroup: &group})
	require.NoError(t, err)
	assert.Len(t, tb.history(t, id), created+2)

	empty := ""
	_, err = tb.r.UpdateGuest(ctx, tb.wedding, id, entity.GuestPatch{FirstName: &empty})
	assert.ErrorIs(t, err, gerr.ErrValidation)
}

func TestUpdateGuestWithdrawsPlusOne(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, DefaultConfig())
	res, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Gil", LastName: "Ho", PlusOneAllowed: true})
	require.NoError(t, err)
	id := res.Guest.Id
	require.NoError(t, tb.repo.Guests().SetRSVPState(ctx, tb.wedding, id, entity.GuestRSVPState{
		Status: entity.RSVPConfirmed, PartySize: 2, PlusOneAttending: true, PlusOneName: "Sam",
	}))

	no := false
	g, err := tb.r.UpdateGuest(ctx, tb.wedding, id, entity.GuestPatch{PlusOneAllowed: &no})
	require.NoError(t, err)
	assert.False(t, g.PlusOneAllowed)
	assert.False(t, g.PlusOneAttending)
	assert.Equal(t, 1, g.PartySize)
	assert.Empty(t, g.PlusOneName)
	assert.Equal(t, entity.RSVPConfirmed, g.RSVPStatus)
}

func TestDeleteGuest(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, DefaultConfig())
	res, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Ian", LastName: "Jo"})
	require.NoError(t, err)
	id := res.Guest.Id

	tableId, err := tb.repo.Tables().AddTable(ctx, tb.wedding, &entity.TableInsert{TableNumber: 1, Capacity: 4})
	require.NoError(t, err)
	_, err = tb.repo.Seating().AddAssignment(ctx, &entity.SeatingAssignment{WeddingId: tb.wedding, GuestId: id, TableId: tableId, SeatsHeld: 1})
	require.NoError(t, err)

	require.NoError(t, tb.r.DeleteGuest(ctx, tb.wedding, id))

	_, err = tb.r.GetGuest(ctx, tb.wedding, id)
	assert.True(t, gerr.IsNotFound(err))
	assert.True(t, gerr.IsNotFound(tb.r.DeleteGuest(ctx, tb.wedding, id)))

	_, err = tb.repo.Seating().GetAssignmentByGuest(ctx, tb.wedding, id)
	assert.True(t, gerr.IsNotFound(err))

	list, err := tb.r.ListGuests(ctx, tb.wedding, entity.GuestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = tb.r.ListGuests(ctx, tb.wedding, entity.GuestFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.GuestInactive, list[0].State)

	history := tb.history(t, id)
	last := history[len(history)-1]
	assert.Equal(t, "table_id", last.Field)
	assert.Equal(t, "guest removed", last.Reason)
}

// fullRow is an import row with every field set, already in normalised form.
func fullRow() entity.GuestInsert {
	return entity.GuestInsert{
		FirstName:           "Oda",
		LastName:            "Pi",
		Email:               "oda@example.com",
		Phone:               "+34 600 123 456",
		Address:             "1 Main St, Springfield",
		GuestGroup:          "college",
		Relationship:        "roommate",
		DietaryRequirements: entity.StringList{"vegetarian", "nut allergy", "halal"},
		AccessibilityNeeds:  "wheelchair access",
		PlusOneAllowed:      true,
		PlusOneName:         "Sam Ortiz",
		PlusOneDietary:      entity.StringList{"vegan", "gluten free"},
	}
}

func TestBulkImport(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{DuplicateMatch: []string{MatchEmail}, ImportWorkers: 2})
	existing, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Kai", LastName: "Lee", Email: "kai@example.com"})
	require.NoError(t, err)

	rows := []entity.GuestInsert{
		{FirstName: "Liv", LastName: "Moe", GuestGroup: "family"},
		{LastName: "Nameless"},
		{FirstName: "Kai", LastName: "Lee", Email: "KAI@example.com"},
		{FirstName: "Max", LastName: "Ng", Phone: "12"},
		fullRow(),
	}

	report, err := tb.r.BulkImport(ctx, tb.wedding, rows, ImportOptions{SkipDuplicates: true})
	require.NoError(t, err)
	assert.Len(t, report.Created, 2)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, 3, report.Duplicates[0].Row)
	assert.Equal(t, []int{existing.Guest.Id}, report.Duplicates[0].GuestIds)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, RowError{Row: 2, Field: "first_name", Message: "missing first name"}, report.Errors[0])
	assert.Equal(t, 4, report.Errors[1].Row)
	assert.Equal(t, "phone", report.Errors[1].Field)

	list, err := tb.r.ListGuests(ctx, tb.wedding, entity.GuestFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Liv", list[1].FirstName)
	assert.Equal(t, fullRow(), list[2].GuestInsert)

	g, err := tb.r.GetGuest(ctx, tb.wedding, list[2].Id)
	require.NoError(t, err)
	assert.Equal(t, fullRow(), g.GuestInsert)

	// Without skipping, the duplicate is created and still reported.
	report, err = tb.r.BulkImport(ctx, tb.wedding, rows[2:3], ImportOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Created, 1)
	assert.Len(t, report.Duplicates, 1)

	_, err = tb.r.BulkImport(ctx, tb.wedding+100, rows, ImportOptions{})
	assert.True(t, gerr.IsNotFound(err))
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, DefaultConfig())
	a, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Rae", LastName: "Su"})
	require.NoError(t, err)
	b, err := tb.r.CreateGuest(ctx, tb.wedding, entity.GuestInsert{FirstName: "Tom", LastName: "Uy"})
	require.NoError(t, err)

	_, err = tb.r.RecordConflict(ctx, tb.wedding, a.Guest.Id, a.Guest.Id, "")
	assert.ErrorIs(t, err, gerr.ErrValidation)

	c, err := tb.r.RecordConflict(ctx, tb.wedding, b.Guest.Id, a.Guest.Id, "exes")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, a.Guest.Id, c.GuestAId)
	assert.Equal(t, b.Guest.Id, c.GuestBId)
	assert.Equal(t, "exes", c.Reason)

	_, err = tb.r.RecordConflict(ctx, tb.wedding, a.Guest.Id, b.Guest.Id, "again")
	assert.ErrorIs(t, err, gerr.ErrValidation)

	_, err = tb.r.RecordConflict(ctx, tb.wedding, a.Guest.Id, 999, "")
	assert.True(t, gerr.IsNotFound(err))

	list, err := tb.r.ListConflicts(ctx, tb.wedding)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, tb.r.RemoveConflict(ctx, tb.wedding, c.Id))
	assert.True(t, gerr.IsNotFound(tb.r.RemoveConflict(ctx, tb.wedding, c.Id)))
	list, err = tb.r.ListConflicts(ctx, tb.wedding)
	require.NoError(t, err)
	assert.Empty(t, list)
}
