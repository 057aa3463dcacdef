package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

type invitationStore struct{ *Store }

func (s invitationStore) AddInvitation(ctx context.Context, inv *entity.Invitation) (int, error) {
	defer s.lock()()
	if g, ok := s.d.guests[inv.GuestId]; !ok || g.WeddingId != inv.WeddingId {
		return 0, gerr.NotFound("guest", inv.GuestId)
	}
	id := s.d.nextId()
	now := s.Now()
	n := *inv
	n.Id = id
	n.CreatedAt = now
	n.UpdatedAt = now
	s.d.invitations[id] = n
	return id, nil
}

func (s invitationStore) UpdateInvitation(ctx context.Context, inv *entity.Invitation) error {
	defer s.lock()()
	cur, ok := s.d.invitations[inv.Id]
	if !ok || cur.WeddingId != inv.WeddingId {
		return gerr.NotFound("invitation", inv.Id)
	}
	cur.Status = inv.Status
	cur.ProviderMessageId = inv.ProviderMessageId
	cur.ErrorMsg = inv.ErrorMsg
	cur.SentAt = inv.SentAt
	cur.DeliveredAt = inv.DeliveredAt
	cur.OpenedAt = inv.OpenedAt
	cur.RespondedAt = inv.RespondedAt
	cur.UpdatedAt = s.Now()
	s.d.invitations[inv.Id] = cur
	return nil
}

func (s invitationStore) GetInvitationById(ctx context.Context, weddingId, id int) (*entity.Invitation, error) {
	defer s.lock()()
	inv, ok := s.d.invitations[id]
	if !ok || inv.WeddingId != weddingId {
		return nil, gerr.NotFound("invitation", id)
	}
	return &inv, nil
}

func (s invitationStore) GetInvitationByProviderId(ctx context.Context, providerMessageId string) (*entity.Invitation, error) {
	defer s.lock()()
	var found *entity.Invitation
	for _, inv := range s.d.invitations {
		if inv.ProviderMessageId == providerMessageId && (found == nil || inv.Id > found.Id) {
			inv := inv
			found = &inv
		}
	}
	if found == nil || providerMessageId == "" {
		return nil, gerr.NotFound("invitation", 0)
	}
	return found, nil
}

func (s invitationStore) ListInvitations(ctx context.Context, weddingId, guestId int) ([]entity.Invitation, error) {
	defer s.lock()()
	var out []entity.Invitation
	for _, inv := range s.d.invitations {
		if inv.WeddingId == weddingId && (guestId == 0 || inv.GuestId == guestId) {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b entity.Invitation) int { return cmp.Compare(a.Id, b.Id) })
	return out, nil
}

func isReminder(inv entity.Invitation) bool {
	return inv.Type == entity.InvitationRSVPReminder && inv.Status != entity.InvitationDraft
}

func (s invitationStore) CountReminders(ctx context.Context, weddingId int) (map[int]int, error) {
	defer s.lock()()
	out := map[int]int{}
	for _, inv := range s.d.invitations {
		if inv.WeddingId == weddingId && isReminder(inv) {
			out[inv.GuestId]++
		}
	}
	return out, nil
}

func (s invitationStore) LastReminderAt(ctx context.Context, weddingId int) (*time.Time, error) {
	defer s.lock()()
	var last *time.Time
	for _, inv := range s.d.invitations {
		if inv.WeddingId == weddingId && isReminder(inv) && (last == nil || inv.CreatedAt.After(*last)) {
			at := inv.CreatedAt
			last = &at
		}
	}
	return last, nil
}

type changeLogStore struct{ *Store }

func (s changeLogStore) AddEntries(ctx context.Context, entries []entity.ChangeLogEntry) error {
	defer s.lock()()
	now := s.Now()
	for _, e := range entries {
		e.Id = s.d.nextId()
		e.CreatedAt = now
		s.d.changeLog = append(s.d.changeLog, e)
	}
	return nil
}

func (s changeLogStore) ListEntries(ctx context.Context, ref entity.EntityRef, afterId, limit int) ([]entity.ChangeLogEntry, error) {
	defer s.lock()()
	var out []entity.ChangeLogEntry
	for _, e := range s.d.changeLog {
		if len(out) == limit {
			break
		}
		if e.Id > afterId && e.WeddingId == ref.WeddingId && e.EntityType == ref.Type && e.EntityId == ref.Id {
			out = append(out, e)
		}
	}
	return out, nil
}
