package seating

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/wedsync/guestlist/internal/entity"
)

// Scoring weights of the greedy pass. Lower is better.
const (
	conflictPenalty     = 1000
	inaccessiblePenalty = 100
	sameGroupBonus      = 10
	sameDietaryBonus    = 3
)

const (
	reasonNoCapacity = "no table with enough remaining capacity"
	reasonNoTables   = "no tables available for automatic seating"
)

// OptimizeInput is everything the optimizer looks at. Guests are the
// confirmed, unseated guests to place; Seated are the existing assignments
// that stay where they are.
type OptimizeInput struct {
	Guests    []entity.Guest
	Tables    []entity.TableWithUsage
	Seated    []entity.SeatedGuest
	Conflicts []entity.GuestConflict
}

type Placement struct {
	GuestId int `json:"guest_id"`
	TableId int `json:"table_id"`
	Seats   int `json:"seats"`
}

type UnseatedGuest struct {
	GuestId int    `json:"guest_id"`
	Seats   int    `json:"seats"`
	Reason  string `json:"reason"`
}

// Plan is one seating option. Conflicts lists the conflicting pairs the plan
// could not keep apart. Shortfall is the number of seats missing to seat
// every confirmed guest.
type Plan struct {
	Assignments []Placement              `json:"assignments"`
	Unseated    []UnseatedGuest          `json:"unseated"`
	Conflicts   []entity.SeatingConflict `json:"conflicts"`
	Shortfall   int                      `json:"shortfall"`
	Applied     bool                     `json:"applied"`
}

type tableSlot struct {
	table     entity.WeddingTable
	remaining int
	guests    []int
	groups    map[string]int
	dietary   map[string]int
}

// Optimize places guests greedily. Guests are taken group by group, larger
// groups first, accessibility needs first within a group. Each guest goes to
// the fitting table with the lowest score, where conflicts and inaccessible
// tables cost and shared groups or dietary needs earn; ties go to the table
// with the most remaining capacity. Head tables are only used once no other
// table fits the guest. Capacity is never exceeded: a guest that fits
// nowhere is reported as unseated.
func Optimize(in OptimizeInput) Plan {
	plan := Plan{
		Assignments: []Placement{},
		Unseated:    []UnseatedGuest{},
		Conflicts:   []entity.SeatingConflict{},
	}

	conflicts := conflictIndex(in.Conflicts)
	byId := map[int]entity.Guest{}
	for _, g := range in.Guests {
		byId[g.Id] = g
	}

	slots := map[int]*tableSlot{}
	var order, head []*tableSlot
	totalRemaining := 0
	for _, t := range in.Tables {
		s := &tableSlot{
			table:     t.WeddingTable,
			remaining: max(0, t.Remaining()),
			groups:    map[string]int{},
			dietary:   map[string]int{},
		}
		slots[t.Id] = s
		if t.IsHeadTable {
			head = append(head, s)
		} else {
			order = append(order, s)
		}
		totalRemaining += s.remaining
	}
	for _, sg := range in.Seated {
		if s, ok := slots[sg.TableId]; ok {
			s.guests = append(s.guests, sg.GuestId)
		}
	}

	guests := sortForPlacement(in.Guests)
	totalNeeded := 0
	for _, g := range guests {
		seats := g.SeatsNeeded()
		totalNeeded += seats

		best := bestTable(order, &g, seats, conflicts)
		if best == nil {
			best = bestTable(head, &g, seats, conflicts)
		}
		if best == nil {
			reason := reasonNoCapacity
			if len(slots) == 0 {
				reason = reasonNoTables
			}
			plan.Unseated = append(plan.Unseated, UnseatedGuest{GuestId: g.Id, Seats: seats, Reason: reason})
			continue
		}

		for _, other := range best.guests {
			if reason, ok := conflicts[pairKey(g.Id, other)]; ok {
				a, b := entity.OrderedPair(g.Id, other)
				plan.Conflicts = append(plan.Conflicts, entity.SeatingConflict{
					Kind:     entity.ConflictGuests,
					TableId:  best.table.Id,
					GuestIds: []int{a, b},
					Reason:   reason,
				})
			}
		}
		best.remaining -= seats
		best.guests = append(best.guests, g.Id)
		best.groups[g.GuestGroup]++
		if d := dietaryKey(&g); d != "" {
			best.dietary[d]++
		}
		plan.Assignments = append(plan.Assignments, Placement{GuestId: g.Id, TableId: best.table.Id, Seats: seats})
	}

	plan.Shortfall = max(0, totalNeeded-totalRemaining)
	return plan
}

// bestTable returns the fitting slot with the lowest score, or nil.
func bestTable(slots []*tableSlot, g *entity.Guest, seats int, conflicts map[[2]int]string) *tableSlot {
	var best *tableSlot
	bestScore := 0
	for _, s := range slots {
		if s.remaining < seats {
			continue
		}
		score := scoreTable(s, g, conflicts)
		if best == nil || score < bestScore ||
			(score == bestScore && (s.remaining > best.remaining ||
				(s.remaining == best.remaining && s.table.TableNumber < best.table.TableNumber))) {
			best, bestScore = s, score
		}
	}
	return best
}

func scoreTable(s *tableSlot, g *entity.Guest, conflicts map[[2]int]string) int {
	score := 0
	for _, other := range s.guests {
		if _, ok := conflicts[pairKey(g.Id, other)]; ok {
			score += conflictPenalty
		}
	}
	if g.AccessibilityNeeds != "" && !s.table.Accessible {
		score += inaccessiblePenalty
	}
	score -= sameGroupBonus * s.groups[g.GuestGroup]
	if d := dietaryKey(g); d != "" {
		score -= sameDietaryBonus * s.dietary[d]
	}
	return score
}

// sortForPlacement orders guests by group size (seats, descending), then
// group name, then accessibility needs first, then dietary signature, then
// larger parties first.
func sortForPlacement(guests []entity.Guest) []entity.Guest {
	groupSeats := map[string]int{}
	for _, g := range guests {
		groupSeats[g.GuestGroup] += g.SeatsNeeded()
	}
	out := slices.Clone(guests)
	slices.SortStableFunc(out, func(a, b entity.Guest) int {
		if c := cmp.Compare(groupSeats[b.GuestGroup], groupSeats[a.GuestGroup]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.GuestGroup, b.GuestGroup); c != 0 {
			return c
		}
		if c := boolCmp(a.AccessibilityNeeds != "", b.AccessibilityNeeds != ""); c != 0 {
			return c
		}
		if c := cmp.Compare(dietaryKey(&a), dietaryKey(&b)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.SeatsNeeded(), a.SeatsNeeded()); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return out
}

// boolCmp sorts true before false.
func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

// dietaryKey is the sorted, case-folded union of the guest's and the
// attending plus-one's dietary requirements.
func dietaryKey(g *entity.Guest) string {
	var all []string
	for _, d := range g.DietaryRequirements {
		all = append(all, strings.ToLower(d))
	}
	if g.PlusOneAttending {
		for _, d := range g.PlusOneDietary {
			all = append(all, strings.ToLower(d))
		}
	}
	slices.Sort(all)
	return strings.Join(slices.Compact(all), ",")
}

func pairKey(a, b int) [2]int {
	a, b = entity.OrderedPair(a, b)
	return [2]int{a, b}
}

func conflictIndex(cs []entity.GuestConflict) map[[2]int]string {
	out := make(map[[2]int]string, len(cs))
	for _, c := range cs {
		out[pairKey(c.GuestAId, c.GuestBId)] = c.Reason
	}
	return out
}

// DetectConflicts reports conflicting pairs sharing a table, tables whose
// parties outgrew their capacity and assignments whose party changed size
// since they were made. It never changes anything.
func DetectConflicts(tables []entity.WeddingTable, seated []entity.SeatedGuest, cs []entity.GuestConflict) []entity.SeatingConflict {
	out := []entity.SeatingConflict{}
	atTable := map[int][]entity.SeatedGuest{}
	tableOf := map[int]int{}
	for _, sg := range seated {
		atTable[sg.TableId] = append(atTable[sg.TableId], sg)
		tableOf[sg.GuestId] = sg.TableId
	}

	for _, c := range cs {
		ta, okA := tableOf[c.GuestAId]
		tb, okB := tableOf[c.GuestBId]
		if okA && okB && ta == tb {
			out = append(out, entity.SeatingConflict{
				Kind:     entity.ConflictGuests,
				TableId:  ta,
				GuestIds: []int{c.GuestAId, c.GuestBId},
				Reason:   c.Reason,
			})
		}
	}

	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b entity.WeddingTable) int { return cmp.Compare(a.TableNumber, b.TableNumber) })
	for _, t := range sorted {
		used := 0
		var ids []int
		for _, sg := range atTable[t.Id] {
			used += max(1, sg.PartySize)
			ids = append(ids, sg.GuestId)
		}
		if used > t.Capacity {
			out = append(out, entity.SeatingConflict{
				Kind:     entity.ConflictOverCapacity,
				TableId:  t.Id,
				GuestIds: ids,
				Capacity: t.Capacity,
				Used:     used,
			})
		}
		for _, sg := range atTable[t.Id] {
			if now := max(1, sg.PartySize); now != sg.SeatsHeld {
				out = append(out, entity.SeatingConflict{
					Kind:     entity.ConflictPartySizeChanged,
					TableId:  t.Id,
					GuestIds: []int{sg.GuestId},
					Reason:   fmt.Sprintf("seated with %d seat(s), party is now %d", sg.SeatsHeld, now),
				})
			}
		}
	}
	return out
}
