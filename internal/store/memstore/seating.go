package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

type tableStore struct{ *Store }

func (s tableStore) numberTaken(weddingId, number, exceptId int) bool {
	for _, t := range s.d.tables {
		if t.WeddingId == weddingId && t.TableNumber == number && t.Id != exceptId {
			return true
		}
	}
	return false
}

func (s tableStore) AddTable(ctx context.Context, weddingId int, t *entity.TableInsert) (int, error) {
	defer s.lock()()
	if _, ok := s.d.weddings[weddingId]; !ok {
		return 0, gerr.NotFound("wedding", weddingId)
	}
	if s.numberTaken(weddingId, t.TableNumber, 0) {
		return 0, ErrUniqueViolation
	}
	id := s.d.nextId()
	now := s.Now()
	s.d.tables[id] = entity.WeddingTable{Id: id, WeddingId: weddingId, CreatedAt: now, UpdatedAt: now, TableInsert: *t}
	return id, nil
}

func (s tableStore) UpdateTable(ctx context.Context, weddingId, id int, t *entity.TableInsert) error {
	defer s.lock()()
	cur, ok := s.d.tables[id]
	if !ok || cur.WeddingId != weddingId {
		return gerr.NotFound("table", id)
	}
	if s.numberTaken(weddingId, t.TableNumber, id) {
		return ErrUniqueViolation
	}
	cur.TableInsert = *t
	cur.UpdatedAt = s.Now()
	s.d.tables[id] = cur
	return nil
}

func (s tableStore) DeleteTable(ctx context.Context, weddingId, id int) error {
	defer s.lock()()
	cur, ok := s.d.tables[id]
	if !ok || cur.WeddingId != weddingId {
		return gerr.NotFound("table", id)
	}
	delete(s.d.tables, id)
	return nil
}

func (s tableStore) GetTableById(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error) {
	defer s.lock()()
	t, ok := s.d.tables[id]
	if !ok || t.WeddingId != weddingId {
		return nil, gerr.NotFound("table", id)
	}
	return &t, nil
}

func (s tableStore) LockTable(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error) {
	return s.GetTableById(ctx, weddingId, id)
}

func (s tableStore) LockTables(ctx context.Context, weddingId int) ([]entity.WeddingTable, error) {
	defer s.lock()()
	return s.tablesOf(weddingId), nil
}

func (s tableStore) tablesOf(weddingId int) []entity.WeddingTable {
	var out []entity.WeddingTable
	for _, t := range s.d.tables {
		if t.WeddingId == weddingId {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b entity.WeddingTable) int { return cmp.Compare(a.TableNumber, b.TableNumber) })
	return out
}

func (s tableStore) ListTablesWithUsage(ctx context.Context, weddingId int) ([]entity.TableWithUsage, error) {
	defer s.lock()()
	used := map[int]int{}
	for _, a := range s.d.assignments {
		if a.WeddingId != weddingId {
			continue
		}
		g := s.d.guests[a.GuestId]
		used[a.TableId] += g.SeatsNeeded()
	}
	var out []entity.TableWithUsage
	for _, t := range s.tablesOf(weddingId) {
		out = append(out, entity.TableWithUsage{WeddingTable: t, Used: used[t.Id]})
	}
	return out, nil
}

type seatingStore struct{ *Store }

func (s seatingStore) AddAssignment(ctx context.Context, a *entity.SeatingAssignment) (int, error) {
	defer s.lock()()
	if g, ok := s.d.guests[a.GuestId]; !ok || g.WeddingId != a.WeddingId {
		return 0, gerr.NotFound("guest", a.GuestId)
	}
	if t, ok := s.d.tables[a.TableId]; !ok || t.WeddingId != a.WeddingId {
		return 0, gerr.NotFound("table", a.TableId)
	}
	for _, other := range s.d.assignments {
		if other.GuestId == a.GuestId {
			return 0, ErrUniqueViolation
		}
	}
	id := s.d.nextId()
	na := *a
	na.Id = id
	na.Preferences.NearGuestIds = slices.Clone(a.Preferences.NearGuestIds)
	s.d.assignments[id] = na
	return id, nil
}

func (s seatingStore) GetAssignmentByGuest(ctx context.Context, weddingId, guestId int) (*entity.SeatingAssignment, error) {
	defer s.lock()()
	for _, a := range s.d.assignments {
		if a.WeddingId == weddingId && a.GuestId == guestId {
			return &a, nil
		}
	}
	return nil, gerr.NotFound("seating assignment", 0)
}

func (s seatingStore) DeleteAssignment(ctx context.Context, weddingId, id int) error {
	defer s.lock()()
	a, ok := s.d.assignments[id]
	if !ok || a.WeddingId != weddingId {
		return gerr.NotFound("seating assignment", id)
	}
	delete(s.d.assignments, id)
	return nil
}

func (s seatingStore) seated(weddingId int, keep func(entity.SeatingAssignment) bool) []entity.SeatedGuest {
	var out []entity.SeatedGuest
	for _, a := range s.d.assignments {
		if a.WeddingId != weddingId || !keep(a) {
			continue
		}
		out = append(out, entity.SeatedGuest{SeatingAssignment: a, PartySize: s.d.guests[a.GuestId].PartySize})
	}
	slices.SortFunc(out, func(a, b entity.SeatedGuest) int {
		if c := cmp.Compare(a.TableId, b.TableId); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return out
}

func (s seatingStore) ListSeated(ctx context.Context, weddingId int) ([]entity.SeatedGuest, error) {
	defer s.lock()()
	return s.seated(weddingId, func(entity.SeatingAssignment) bool { return true }), nil
}

func (s seatingStore) ListSeatedAtTable(ctx context.Context, weddingId, tableId int) ([]entity.SeatedGuest, error) {
	defer s.lock()()
	return s.seated(weddingId, func(a entity.SeatingAssignment) bool { return a.TableId == tableId }), nil
}

type conflictStore struct{ *Store }

func (s conflictStore) AddConflict(ctx context.Context, c *entity.GuestConflict) (int, error) {
	defer s.lock()()
	a, b := entity.OrderedPair(c.GuestAId, c.GuestBId)
	for _, other := range s.d.conflicts {
		if other.WeddingId == c.WeddingId && other.GuestAId == a && other.GuestBId == b {
			return 0, ErrUniqueViolation
		}
	}
	id := s.d.nextId()
	s.d.conflicts[id] = entity.GuestConflict{
		Id:        id,
		WeddingId: c.WeddingId,
		GuestAId:  a,
		GuestBId:  b,
		Reason:    c.Reason,
		CreatedBy: c.CreatedBy,
		CreatedAt: s.Now(),
	}
	return id, nil
}

func (s conflictStore) DeleteConflict(ctx context.Context, weddingId, id int) error {
	defer s.lock()()
	c, ok := s.d.conflicts[id]
	if !ok || c.WeddingId != weddingId {
		return gerr.NotFound("guest conflict", id)
	}
	delete(s.d.conflicts, id)
	return nil
}

func (s conflictStore) ListConflicts(ctx context.Context, weddingId int) ([]entity.GuestConflict, error) {
	defer s.lock()()
	var out []entity.GuestConflict
	for _, c := range s.d.conflicts {
		if c.WeddingId == weddingId {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b entity.GuestConflict) int { return cmp.Compare(a.Id, b.Id) })
	return out, nil
}
