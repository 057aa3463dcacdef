package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/entity"
)

func guest(id int, group string, party int) entity.Guest {
	return entity.Guest{
		Id:          id,
		State:       entity.GuestActive,
		RSVPStatus:  entity.RSVPConfirmed,
		PartySize:   party,
		GuestInsert: entity.GuestInsert{GuestGroup: group},
	}
}

func table(id, number, capacity, used int) entity.TableWithUsage {
	return entity.TableWithUsage{
		WeddingTable: entity.WeddingTable{Id: id, TableInsert: entity.TableInsert{TableNumber: number, Capacity: capacity}},
		Used:         used,
	}
}

func placements(p Plan) map[int]int {
	out := map[int]int{}
	for _, a := range p.Assignments {
		out[a.GuestId] = a.TableId
	}
	return out
}

func TestOptimizeKeepsGroupsTogether(t *testing.T) {
	plan := Optimize(OptimizeInput{
		Guests: []entity.Guest{
			guest(4, "friends", 1),
			guest(1, "family", 1),
			guest(5, "friends", 1),
			guest(2, "family", 1),
			guest(3, "family", 1),
		},
		Tables: []entity.TableWithUsage{table(10, 1, 4, 0), table(20, 2, 4, 0)},
	})
	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 10, 4: 20, 5: 20}, placements(plan))
	assert.Empty(t, plan.Unseated)
	assert.Empty(t, plan.Conflicts)
	assert.Zero(t, plan.Shortfall)
	assert.False(t, plan.Applied)
}

func TestOptimizeSeparatesConflicts(t *testing.T) {
	plan := Optimize(OptimizeInput{
		Guests:    []entity.Guest{guest(1, "general", 1), guest(2, "general", 1)},
		Tables:    []entity.TableWithUsage{table(10, 1, 4, 0), table(20, 2, 4, 0)},
		Conflicts: []entity.GuestConflict{{GuestAId: 1, GuestBId: 2, Reason: "exes"}},
	})
	assert.Equal(t, map[int]int{1: 10, 2: 20}, placements(plan))
	assert.Empty(t, plan.Conflicts)
}

func TestOptimizeReportsUnavoidableConflict(t *testing.T) {
	plan := Optimize(OptimizeInput{
		Guests:    []entity.Guest{guest(1, "general", 1), guest(2, "general", 1)},
		Tables:    []entity.TableWithUsage{table(10, 1, 2, 0)},
		Conflicts: []entity.GuestConflict{{GuestAId: 1, GuestBId: 2, Reason: "exes"}},
	})
	assert.Len(t, plan.Assignments, 2)
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, entity.SeatingConflict{Kind: entity.ConflictGuests, TableId: 10, GuestIds: []int{1, 2}, Reason: "exes"}, plan.Conflicts[0])
}

func TestOptimizeNeverExceedsCapacity(t *testing.T) {
	head := table(10, 1, 2, 0)
	head.IsHeadTable = true
	plan := Optimize(OptimizeInput{
		Guests: []entity.Guest{guest(2, "general", 1), guest(1, "general", 3)},
		Tables: []entity.TableWithUsage{head, table(20, 2, 3, 1)},
		Seated: []entity.SeatedGuest{{SeatingAssignment: entity.SeatingAssignment{GuestId: 9, TableId: 20, SeatsHeld: 1}, PartySize: 1}},
	})
	assert.Equal(t, map[int]int{2: 20}, placements(plan))
	require.Len(t, plan.Unseated, 1)
	assert.Equal(t, UnseatedGuest{GuestId: 1, Seats: 3, Reason: reasonNoCapacity}, plan.Unseated[0])
	// Four free seats exist in total, just not three at one table.
	assert.Equal(t, 0, plan.Shortfall)
}

func TestOptimizeFallsBackToHeadTable(t *testing.T) {
	head := table(10, 1, 4, 2)
	head.IsHeadTable = true
	plan := Optimize(OptimizeInput{
		Guests: []entity.Guest{guest(1, "general", 2), guest(2, "general", 2), guest(3, "general", 2)},
		Tables: []entity.TableWithUsage{head, table(20, 2, 2, 0)},
	})
	p := placements(plan)
	require.Len(t, p, 2)
	assert.Equal(t, 20, p[1])
	assert.Equal(t, 10, p[2])
	require.Len(t, plan.Unseated, 1)
	assert.Equal(t, 3, plan.Unseated[0].GuestId)
	assert.Equal(t, 2, plan.Shortfall)
}

func TestOptimizeWithoutTables(t *testing.T) {
	plan := Optimize(OptimizeInput{Guests: []entity.Guest{guest(1, "general", 2)}})
	require.Len(t, plan.Unseated, 1)
	assert.Equal(t, reasonNoTables, plan.Unseated[0].Reason)
	assert.Equal(t, 2, plan.Shortfall)
}

func TestOptimizePrefersAccessibleTables(t *testing.T) {
	g := guest(1, "general", 1)
	g.AccessibilityNeeds = "wheelchair"
	accessible := table(20, 2, 2, 0)
	accessible.Accessible = true
	plan := Optimize(OptimizeInput{
		Guests: []entity.Guest{g},
		Tables: []entity.TableWithUsage{table(10, 1, 8, 0), accessible},
	})
	assert.Equal(t, map[int]int{1: 20}, placements(plan))
}

func TestDietaryKey(t *testing.T) {
	g := guest(1, "general", 2)
	g.DietaryRequirements = entity.StringList{"Vegan", "nut allergy"}
	g.PlusOneDietary = entity.StringList{"vegan", "halal"}
	assert.Equal(t, "nut allergy,vegan", dietaryKey(&g))
	g.PlusOneAttending = true
	assert.Equal(t, "halal,nut allergy,vegan", dietaryKey(&g))
}

func TestDetectConflicts(t *testing.T) {
	tables := []entity.WeddingTable{
		{Id: 20, TableInsert: entity.TableInsert{TableNumber: 2, Capacity: 4}},
		{Id: 10, TableInsert: entity.TableInsert{TableNumber: 1, Capacity: 2}},
	}
	seat := func(guestId, tableId, held, party int) entity.SeatedGuest {
		return entity.SeatedGuest{
			SeatingAssignment: entity.SeatingAssignment{GuestId: guestId, TableId: tableId, SeatsHeld: held},
			PartySize:         party,
		}
	}
	seated := []entity.SeatedGuest{seat(1, 10, 2, 2), seat(2, 10, 1, 1), seat(3, 20, 2, 3)}
	conflicts := []entity.GuestConflict{
		{GuestAId: 1, GuestBId: 2, Reason: "feud"},
		{GuestAId: 3, GuestBId: 4},
	}

	found := DetectConflicts(tables, seated, conflicts)
	require.Len(t, found, 3)
	assert.Equal(t, entity.SeatingConflict{Kind: entity.ConflictGuests, TableId: 10, GuestIds: []int{1, 2}, Reason: "feud"}, found[0])
	assert.Equal(t, entity.SeatingConflict{Kind: entity.ConflictOverCapacity, TableId: 10, GuestIds: []int{1, 2}, Capacity: 2, Used: 3}, found[1])
	assert.Equal(t, entity.ConflictPartySizeChanged, found[2].Kind)
	assert.Equal(t, []int{3}, found[2].GuestIds)

	assert.Empty(t, DetectConflicts(tables, nil, conflicts))
}
