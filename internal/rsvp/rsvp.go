// Package rsvp records guest responses and keeps each guest's current
// attendance state in line with their latest response.
package rsvp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/seating"
)

type Collector struct {
	repo       dependency.Repository
	auditor    dependency.Auditor
	dispatcher dependency.Dispatcher
}

// New returns a Collector. dispatcher may be nil, in which case invitations
// are not marked as responded.
func New(repo dependency.Repository, auditor dependency.Auditor, dispatcher dependency.Dispatcher) *Collector {
	return &Collector{repo: repo, auditor: auditor, dispatcher: dispatcher}
}

type SubmitResult struct {
	Response *entity.RSVPResponse `json:"response"`
	Guest    *entity.Guest        `json:"guest"`
}

// SubmitResponse stores an immutable response and recomputes the guest's
// state from whichever response is now the latest. A guest who ends up
// declining loses their seat.
func (c *Collector) SubmitResponse(ctx context.Context, weddingId, guestId int, in entity.ResponseInsert) (*SubmitResult, error) {
	var res *SubmitResult
	err := c.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		g, err := rep.Guests().GetGuestById(ctx, weddingId, guestId)
		if err != nil {
			return err
		}
		if !g.IsActive() {
			return gerr.NotFound("guest", guestId)
		}
		if err := entity.ValidateResponseInsert(&in, g.PlusOneAllowed); err != nil {
			return err
		}
		if in.ResponseDate.IsZero() {
			in.ResponseDate = rep.Now()
		}

		id, err := rep.Responses().AddResponse(ctx, weddingId, guestId, &in)
		if err != nil {
			return err
		}
		latest, err := rep.Responses().LatestResponse(ctx, weddingId, guestId)
		if err != nil {
			return err
		}
		prev := g.RSVPState()
		next := stateFrom(latest)
		if err := rep.Guests().SetRSVPState(ctx, weddingId, guestId, next); err != nil {
			return err
		}

		ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: guestId}
		changes := append([]entity.FieldChange{{Field: "rsvp_response_id", New: fmt.Sprint(id)}}, diffState(prev, next)...)
		entries := entity.Changes(ref, entity.ChangeRSVP, "", string(in.Channel), changes)
		if next.Status == entity.RSVPDeclined {
			released, err := seating.ReleaseSeat(ctx, rep, weddingId, guestId, "guest declined")
			if err != nil {
				return err
			}
			entries = append(entries, released...)
		}
		if err := c.auditor.Log(ctx, rep, entries...); err != nil {
			return err
		}
		if c.dispatcher != nil {
			if err := c.dispatcher.MarkResponded(ctx, rep, weddingId, guestId); err != nil {
				return err
			}
		}

		res = &SubmitResult{}
		if res.Guest, err = rep.Guests().GetGuestById(ctx, weddingId, guestId); err != nil {
			return err
		}
		all, err := rep.Responses().ListResponses(ctx, weddingId, guestId)
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].Id == id {
				res.Response = &all[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, gerr.Storage("submit rsvp response", err)
	}
	return res, nil
}

// SubmitByToken is the entry point of the public RSVP form: the guest is
// identified by the token of their invitation link.
func (c *Collector) SubmitByToken(ctx context.Context, token string, in entity.ResponseInsert) (*SubmitResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, gerr.NotFound("guest", 0)
	}
	g, err := c.repo.Guests().GetGuestByToken(ctx, token)
	if err != nil {
		return nil, gerr.Storage("find guest by token", err)
	}
	return c.SubmitResponse(ctx, g.WeddingId, g.Id, in)
}

// GuestByToken resolves a public RSVP token to the guest it belongs to.
func (c *Collector) GuestByToken(ctx context.Context, token string) (*entity.Guest, error) {
	g, err := c.repo.Guests().GetGuestByToken(ctx, token)
	if err != nil {
		return nil, gerr.Storage("find guest by token", err)
	}
	return g, nil
}

// ListResponses returns the full response history of a guest, including
// guests that have since been removed.
func (c *Collector) ListResponses(ctx context.Context, weddingId, guestId int) ([]entity.RSVPResponse, error) {
	if _, err := c.repo.Guests().GetGuestById(ctx, weddingId, guestId); err != nil {
		return nil, gerr.Storage("list responses", err)
	}
	list, err := c.repo.Responses().ListResponses(ctx, weddingId, guestId)
	if err != nil {
		return nil, gerr.Storage("list responses", err)
	}
	return list, nil
}

// ExpirePending marks every guest still pending as no_response. It returns
// the ids of the guests it changed.
func (c *Collector) ExpirePending(ctx context.Context, weddingId int) ([]int, error) {
	var changed []int
	err := c.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		changed = nil
		pending, err := rep.Guests().ListGuests(ctx, weddingId, entity.GuestFilter{Statuses: []entity.RSVPStatus{entity.RSVPPending}})
		if err != nil {
			return err
		}
		now := rep.Now()
		var entries []entity.ChangeLogEntry
		for _, g := range pending {
			st := g.RSVPState()
			st.Status = entity.RSVPNoResponse
			st.RespondedAt = &now
			if err := rep.Guests().SetRSVPState(ctx, weddingId, g.Id, st); err != nil {
				return err
			}
			ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: g.Id}
			entries = append(entries, entity.Changes(ref, entity.ChangeRSVP, "", "rsvp deadline passed", []entity.FieldChange{
				{Field: "rsvp_status", Old: string(entity.RSVPPending), New: string(entity.RSVPNoResponse)},
			})...)
			changed = append(changed, g.Id)
		}
		return c.auditor.Log(ctx, rep, entries...)
	})
	if err != nil {
		return nil, gerr.Storage("expire pending rsvps", err)
	}
	if len(changed) > 0 {
		slog.Default().InfoContext(ctx, "marked guests as no response",
			slog.Int("wedding_id", weddingId),
			slog.Int("count", len(changed)),
		)
	}
	return changed, nil
}

// stateFrom derives a guest's current state from their latest response.
func stateFrom(r *entity.RSVPResponse) entity.GuestRSVPState {
	st := entity.GuestRSVPState{
		Status:      r.ResponseType.Status(),
		RespondedAt: &r.ResponseDate,
		PartySize:   1,
	}
	if st.Status == entity.RSVPConfirmed {
		st.PartySize = max(1, r.GuestCount)
		if r.PlusOneAttending {
			st.PlusOneAttending = true
			st.PlusOneName = r.PlusOneName
			st.PlusOneDietary = r.PlusOneDietary.Clone()
		}
	}
	return st
}

func diffState(a, b entity.GuestRSVPState) []entity.FieldChange {
	var out []entity.FieldChange
	add := func(field, old, new string) {
		if old != new {
			out = append(out, entity.FieldChange{Field: field, Old: old, New: new})
		}
	}
	add("rsvp_status", string(a.Status), string(b.Status))
	add("party_size", fmt.Sprint(a.PartySize), fmt.Sprint(b.PartySize))
	add("plus_one_attending", fmt.Sprint(a.PlusOneAttending), fmt.Sprint(b.PlusOneAttending))
	add("plus_one_name", a.PlusOneName, b.PlusOneName)
	if !a.PlusOneDietary.Equal(b.PlusOneDietary) {
		add("plus_one_dietary", a.PlusOneDietary.String(), b.PlusOneDietary.String())
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// GetStatistics aggregates the current state of active guests. Nothing is
// cached, so two calls without writes in between return the same numbers.
func (c *Collector) GetStatistics(ctx context.Context, weddingId int) (*entity.RSVPStatistics, error) {
	if _, err := c.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("rsvp statistics", err)
	}
	guests, err := c.repo.Guests().ListGuests(ctx, weddingId, entity.GuestFilter{})
	if err != nil {
		return nil, gerr.Storage("rsvp statistics", err)
	}
	latest, err := c.repo.Responses().ListLatestResponses(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("rsvp statistics", err)
	}
	return Aggregate(guests, latest), nil
}

// Aggregate computes statistics from active guests and the latest response
// of each guest. Dietary requirements, accommodation and transport needs
// are counted for confirmed guests only, plus-ones included.
func Aggregate(guests []entity.Guest, latest []entity.RSVPResponse) *entity.RSVPStatistics {
	st := &entity.RSVPStatistics{
		Counts:             map[entity.RSVPStatus]int{},
		Percentages:        map[entity.RSVPStatus]decimal.Decimal{},
		DietaryFrequencies: map[string]int{},
		ByGroup:            map[string]map[entity.RSVPStatus]int{},
	}
	statuses := []entity.RSVPStatus{entity.RSVPConfirmed, entity.RSVPDeclined, entity.RSVPPending, entity.RSVPNoResponse}
	for _, s := range statuses {
		st.Counts[s] = 0
	}
	byGuest := make(map[int]*entity.RSVPResponse, len(latest))
	for i := range latest {
		byGuest[latest[i].GuestId] = &latest[i]
	}

	for _, g := range guests {
		if !g.IsActive() {
			continue
		}
		st.TotalGuests++
		st.Counts[g.RSVPStatus]++
		if st.ByGroup[g.GuestGroup] == nil {
			st.ByGroup[g.GuestGroup] = map[entity.RSVPStatus]int{}
		}
		st.ByGroup[g.GuestGroup][g.RSVPStatus]++
		if g.RSVPStatus != entity.RSVPConfirmed {
			continue
		}
		st.ExpectedAttendees += g.SeatsNeeded()
		countDietary(st.DietaryFrequencies, g.DietaryRequirements)
		if g.PlusOneAttending {
			countDietary(st.DietaryFrequencies, g.PlusOneDietary)
		}
		if r := byGuest[g.Id]; r != nil {
			if r.NeedsAccommodation {
				st.NeedsAccommodation++
			}
			if r.NeedsTransport {
				st.NeedsTransport++
			}
		}
	}

	for _, s := range statuses {
		pct := decimal.Zero
		if st.TotalGuests > 0 {
			pct = decimal.NewFromInt(int64(st.Counts[s])).Mul(hundred).Div(decimal.NewFromInt(int64(st.TotalGuests)))
		}
		st.Percentages[s] = pct.Round(2)
	}
	return st
}

func countDietary(freq map[string]int, l entity.StringList) {
	seen := map[string]bool{}
	for _, d := range l {
		key := strings.ToLower(strings.TrimSpace(d))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		freq[key]++
	}
}
