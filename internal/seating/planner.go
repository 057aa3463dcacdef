// Package seating manages reception tables and who sits at them.
package seating

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
)

type Planner struct {
	repo    dependency.Repository
	auditor dependency.Auditor
}

func New(repo dependency.Repository, auditor dependency.Auditor) *Planner {
	return &Planner{repo: repo, auditor: auditor}
}

func tableRef(weddingId, tableId int) entity.EntityRef {
	return entity.EntityRef{WeddingId: weddingId, Type: entity.EntityTable, Id: tableId}
}

func guestRef(weddingId, guestId int) entity.EntityRef {
	return entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: guestId}
}

func (p *Planner) CreateTable(ctx context.Context, weddingId int, t entity.TableInsert) (*entity.WeddingTable, error) {
	if err := entity.ValidateTableInsert(&t); err != nil {
		return nil, err
	}
	var out *entity.WeddingTable
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		if _, err := rep.Weddings().GetWeddingById(ctx, weddingId); err != nil {
			return err
		}
		id, err := rep.Tables().AddTable(ctx, weddingId, &t)
		if err != nil {
			if rep.IsErrUniqueViolation(err) {
				return gerr.Validation("table_number", fmt.Sprintf("table number %d already used", t.TableNumber))
			}
			return err
		}
		changes := diffTableInsert(entity.TableInsert{}, t)
		if err := p.auditor.Log(ctx, rep, entity.Changes(tableRef(weddingId, id), entity.ChangeCreate, "", "", changes)...); err != nil {
			return err
		}
		out, err = rep.Tables().GetTableById(ctx, weddingId, id)
		return err
	})
	if err != nil {
		return nil, gerr.Storage("create table", err)
	}
	return out, nil
}

// UpdateTable changes a table's layout. Capacity can't drop below the seats
// already assigned to it.
func (p *Planner) UpdateTable(ctx context.Context, weddingId, tableId int, patch entity.TablePatch) (*entity.WeddingTable, error) {
	var out *entity.WeddingTable
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		cur, err := rep.Tables().LockTable(ctx, weddingId, tableId)
		if err != nil {
			return err
		}
		next := patch.Apply(cur.TableInsert)
		if err := entity.ValidateTableInsert(&next); err != nil {
			return err
		}
		changes := diffTableInsert(cur.TableInsert, next)
		if len(changes) == 0 {
			out = cur
			return nil
		}
		if next.Capacity < cur.Capacity {
			seated, err := rep.Seating().ListSeatedAtTable(ctx, weddingId, tableId)
			if err != nil {
				return err
			}
			if used := seatsUsed(seated); used > next.Capacity {
				return gerr.Validation("capacity", fmt.Sprintf("capacity %d is below the %d seats already assigned", next.Capacity, used))
			}
		}
		if err := rep.Tables().UpdateTable(ctx, weddingId, tableId, &next); err != nil {
			if rep.IsErrUniqueViolation(err) {
				return gerr.Validation("table_number", fmt.Sprintf("table number %d already used", next.TableNumber))
			}
			return err
		}
		if err := p.auditor.Log(ctx, rep, entity.Changes(tableRef(weddingId, tableId), entity.ChangeUpdate, "", "", changes)...); err != nil {
			return err
		}
		out, err = rep.Tables().GetTableById(ctx, weddingId, tableId)
		return err
	})
	if err != nil {
		return nil, gerr.Storage("update table", err)
	}
	return out, nil
}

// DeleteTable removes an empty table. ErrTableOccupied is returned while
// anyone is assigned to it.
func (p *Planner) DeleteTable(ctx context.Context, weddingId, tableId int) error {
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		t, err := rep.Tables().LockTable(ctx, weddingId, tableId)
		if err != nil {
			return err
		}
		seated, err := rep.Seating().ListSeatedAtTable(ctx, weddingId, tableId)
		if err != nil {
			return err
		}
		if len(seated) > 0 {
			return fmt.Errorf("table %d has %d assignment(s): %w", t.TableNumber, len(seated), gerr.ErrTableOccupied)
		}
		if err := rep.Tables().DeleteTable(ctx, weddingId, tableId); err != nil {
			return err
		}
		return p.auditor.Log(ctx, rep, entity.Changes(tableRef(weddingId, tableId), entity.ChangeDelete, "", "", []entity.FieldChange{
			{Field: "table_number", Old: fmt.Sprint(t.TableNumber)},
		})...)
	})
	if err != nil {
		return gerr.Storage("delete table", err)
	}
	return nil
}

func (p *Planner) ListTables(ctx context.Context, weddingId int) ([]entity.TableWithUsage, error) {
	tables, err := p.repo.Tables().ListTablesWithUsage(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("list tables", err)
	}
	return tables, nil
}

type AssignOptions struct {
	SeatNumber  *int                      `json:"seat_number,omitempty"`
	Preferences entity.SeatingPreferences `json:"preferences"`
}

// AssignResult carries the assignment and, when the guest now shares the
// table with someone they conflict with, advisory warnings.
type AssignResult struct {
	Assignment       *entity.SeatingAssignment `json:"assignment"`
	ConflictWarnings []gerr.ConflictWarning    `json:"conflict_warnings"`
}

// AssignSeat seats a confirmed guest's party at a table, replacing any
// previous assignment. The table row is locked for the capacity check and
// the write, so concurrent assignments can't overbook it.
func (p *Planner) AssignSeat(ctx context.Context, weddingId, guestId, tableId int, opts AssignOptions) (*AssignResult, error) {
	var res *AssignResult
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		g, err := rep.Guests().GetGuestById(ctx, weddingId, guestId)
		if err != nil {
			return err
		}
		if !g.IsActive() {
			return gerr.NotFound("guest", guestId)
		}
		if g.RSVPStatus != entity.RSVPConfirmed {
			return gerr.Validation("guest_id", "only confirmed guests can be seated")
		}
		t, err := rep.Tables().LockTable(ctx, weddingId, tableId)
		if err != nil {
			return err
		}
		seated, err := rep.Seating().ListSeatedAtTable(ctx, weddingId, tableId)
		if err != nil {
			return err
		}
		others := make([]entity.SeatedGuest, 0, len(seated))
		for _, sg := range seated {
			if sg.GuestId != guestId {
				others = append(others, sg)
			}
		}
		need := g.SeatsNeeded()
		if used := seatsUsed(others); used+need > t.Capacity {
			return &gerr.CapacityExceededError{TableId: tableId, Capacity: t.Capacity, Used: used, Requested: need}
		}
		if err := checkSeatNumber(opts.SeatNumber, t, others); err != nil {
			return err
		}

		_, oldTable, err := releaseSeat(ctx, rep, weddingId, guestId, "")
		if err != nil {
			return err
		}
		a := &entity.SeatingAssignment{
			WeddingId:   weddingId,
			GuestId:     guestId,
			TableId:     tableId,
			SeatNumber:  opts.SeatNumber,
			SeatsHeld:   need,
			Preferences: opts.Preferences,
			AssignedBy:  middleware.GetActor(ctx),
			AssignedAt:  rep.Now(),
		}
		if a.Id, err = rep.Seating().AddAssignment(ctx, a); err != nil {
			return err
		}
		entries := entity.Changes(guestRef(weddingId, guestId), entity.ChangeSeating, "", "", []entity.FieldChange{
			{Field: "table_id", Old: oldTable, New: fmt.Sprint(tableId)},
		})
		if err := p.auditor.Log(ctx, rep, entries...); err != nil {
			return err
		}

		conflicts, err := rep.Conflicts().ListConflicts(ctx, weddingId)
		if err != nil {
			return err
		}
		res = &AssignResult{Assignment: a, ConflictWarnings: conflictWarnings(guestId, tableId, others, conflicts)}
		return nil
	})
	if err != nil {
		return nil, gerr.Storage("assign seat", err)
	}
	return res, nil
}

// UnassignSeat frees the guest's seat.
func (p *Planner) UnassignSeat(ctx context.Context, weddingId, guestId int) error {
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		entries, err := ReleaseSeat(ctx, rep, weddingId, guestId, "")
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return gerr.NotFound("seating assignment", 0)
		}
		return p.auditor.Log(ctx, rep, entries...)
	})
	if err != nil {
		return gerr.Storage("unassign seat", err)
	}
	return nil
}

// OptimizeSeating proposes seats for every confirmed guest without one.
// With apply set the plan is written in the same transaction that read the
// locked tables.
func (p *Planner) OptimizeSeating(ctx context.Context, weddingId int, apply bool) (*Plan, error) {
	var plan Plan
	err := p.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		if _, err := rep.Weddings().GetWeddingById(ctx, weddingId); err != nil {
			return err
		}
		if _, err := rep.Tables().LockTables(ctx, weddingId); err != nil {
			return err
		}
		in, err := loadOptimizeInput(ctx, rep, weddingId)
		if err != nil {
			return err
		}
		plan = Optimize(in)
		if !apply || len(plan.Assignments) == 0 {
			return nil
		}

		actor := middleware.GetActor(ctx)
		var entries []entity.ChangeLogEntry
		for _, pl := range plan.Assignments {
			_, err := rep.Seating().AddAssignment(ctx, &entity.SeatingAssignment{
				WeddingId:  weddingId,
				GuestId:    pl.GuestId,
				TableId:    pl.TableId,
				SeatsHeld:  pl.Seats,
				AssignedBy: actor,
				AssignedAt: rep.Now(),
			})
			if err != nil {
				return err
			}
			entries = append(entries, entity.Changes(guestRef(weddingId, pl.GuestId), entity.ChangeSeating, "", "seating optimizer", []entity.FieldChange{
				{Field: "table_id", New: fmt.Sprint(pl.TableId)},
			})...)
		}
		plan.Applied = true
		return p.auditor.Log(ctx, rep, entries...)
	})
	if err != nil {
		return nil, gerr.Storage("optimize seating", err)
	}
	return &plan, nil
}

func loadOptimizeInput(ctx context.Context, rep dependency.Repository, weddingId int) (OptimizeInput, error) {
	var in OptimizeInput
	tables, err := rep.Tables().ListTablesWithUsage(ctx, weddingId)
	if err != nil {
		return in, err
	}
	seated, err := rep.Seating().ListSeated(ctx, weddingId)
	if err != nil {
		return in, err
	}
	confirmed, err := rep.Guests().ListGuests(ctx, weddingId, entity.GuestFilter{Statuses: []entity.RSVPStatus{entity.RSVPConfirmed}})
	if err != nil {
		return in, err
	}
	conflicts, err := rep.Conflicts().ListConflicts(ctx, weddingId)
	if err != nil {
		return in, err
	}
	isSeated := map[int]bool{}
	for _, sg := range seated {
		isSeated[sg.GuestId] = true
	}
	for _, g := range confirmed {
		if !isSeated[g.Id] {
			in.Guests = append(in.Guests, g)
		}
	}
	in.Tables = tables
	in.Seated = seated
	in.Conflicts = conflicts
	return in, nil
}

// DetectConflicts scans the current seating of a wedding.
func (p *Planner) DetectConflicts(ctx context.Context, weddingId int) ([]entity.SeatingConflict, error) {
	if _, err := p.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("detect conflicts", err)
	}
	tables, err := p.repo.Tables().ListTablesWithUsage(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("detect conflicts", err)
	}
	seated, err := p.repo.Seating().ListSeated(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("detect conflicts", err)
	}
	conflicts, err := p.repo.Conflicts().ListConflicts(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("detect conflicts", err)
	}
	plain := make([]entity.WeddingTable, 0, len(tables))
	for _, t := range tables {
		plain = append(plain, t.WeddingTable)
	}
	return DetectConflicts(plain, seated, conflicts), nil
}

// ReleaseSeat removes the guest's seating assignment if there is one and
// returns the change log entries describing it. It runs inside the caller's
// transaction and writes no log itself.
func ReleaseSeat(ctx context.Context, rep dependency.Repository, weddingId, guestId int, reason string) ([]entity.ChangeLogEntry, error) {
	entries, _, err := releaseSeat(ctx, rep, weddingId, guestId, reason)
	return entries, err
}

func releaseSeat(ctx context.Context, rep dependency.Repository, weddingId, guestId int, reason string) ([]entity.ChangeLogEntry, string, error) {
	a, err := rep.Seating().GetAssignmentByGuest(ctx, weddingId, guestId)
	if err != nil {
		if gerr.IsNotFound(err) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if err := rep.Seating().DeleteAssignment(ctx, weddingId, a.Id); err != nil {
		return nil, "", err
	}
	old := fmt.Sprint(a.TableId)
	return entity.Changes(guestRef(weddingId, guestId), entity.ChangeSeating, "", reason, []entity.FieldChange{
		{Field: "table_id", Old: old, New: ""},
	}), old, nil
}

func seatsUsed(seated []entity.SeatedGuest) int {
	used := 0
	for _, sg := range seated {
		used += max(1, sg.PartySize)
	}
	return used
}

func checkSeatNumber(n *int, t *entity.WeddingTable, others []entity.SeatedGuest) error {
	if n == nil {
		return nil
	}
	if *n < 1 || *n > t.Capacity {
		return gerr.Validation("seat_number", fmt.Sprintf("seat number must be between 1 and %d", t.Capacity))
	}
	for _, sg := range others {
		if sg.SeatNumber != nil && *sg.SeatNumber == *n {
			return gerr.Validation("seat_number", fmt.Sprintf("seat %d is taken", *n))
		}
	}
	return nil
}

func conflictWarnings(guestId, tableId int, others []entity.SeatedGuest, cs []entity.GuestConflict) []gerr.ConflictWarning {
	out := []gerr.ConflictWarning{}
	here := map[int]bool{}
	for _, sg := range others {
		here[sg.GuestId] = true
	}
	for _, c := range cs {
		if c.GuestAId != guestId && c.GuestBId != guestId {
			continue
		}
		if other := c.Other(guestId); here[other] {
			out = append(out, gerr.ConflictWarning{GuestId: guestId, OtherGuestId: other, TableId: tableId, Reason: c.Reason})
		}
	}
	return out
}

func diffTableInsert(a, b entity.TableInsert) []entity.FieldChange {
	var out []entity.FieldChange
	add := func(field, old, new string) {
		if old != new {
			out = append(out, entity.FieldChange{Field: field, Old: old, New: new})
		}
	}
	num := func(n int) string {
		if n == 0 {
			return ""
		}
		return fmt.Sprint(n)
	}
	add("table_number", num(a.TableNumber), num(b.TableNumber))
	add("name", a.Name, b.Name)
	add("shape", string(a.Shape), string(b.Shape))
	add("capacity", num(a.Capacity), num(b.Capacity))
	add("location", a.Location, b.Location)
	add("special_requirements", a.SpecialRequirements, b.SpecialRequirements)
	add("is_head_table", fmt.Sprint(a.IsHeadTable), fmt.Sprint(b.IsHeadTable))
	add("accessible", fmt.Sprint(a.Accessible), fmt.Sprint(b.Accessible))
	return out
}
