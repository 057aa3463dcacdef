package registry

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
)

// RecordConflict flags two guests of the same wedding as better seated
// apart. The relation is symmetric.
func (r *Registry) RecordConflict(ctx context.Context, weddingId, guestA, guestB int, reason string) (*entity.GuestConflict, error) {
	if guestA == guestB {
		return nil, gerr.Validation("guest_b_id", "a guest can't conflict with themselves")
	}
	var out *entity.GuestConflict
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		for _, id := range []int{guestA, guestB} {
			if _, err := activeGuest(ctx, rep, weddingId, id); err != nil {
				return err
			}
		}
		c := &entity.GuestConflict{
			WeddingId: weddingId,
			GuestAId:  guestA,
			GuestBId:  guestB,
			Reason:    reason,
			CreatedBy: middleware.GetActor(ctx),
		}
		id, err := rep.Conflicts().AddConflict(ctx, c)
		if err != nil {
			if rep.IsErrUniqueViolation(err) {
				return gerr.Validation("guest_b_id", "conflict already recorded")
			}
			return err
		}
		a, b := entity.OrderedPair(guestA, guestB)
		ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityConflict, Id: id}
		if err := r.auditor.Log(ctx, rep, entity.Changes(ref, entity.ChangeCreate, "", reason, []entity.FieldChange{
			{Field: "guest_a_id", New: fmt.Sprint(a)},
			{Field: "guest_b_id", New: fmt.Sprint(b)},
		})...); err != nil {
			return err
		}
		list, err := rep.Conflicts().ListConflicts(ctx, weddingId)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].Id == id {
				out = &list[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, gerr.Storage("record conflict", err)
	}
	return out, nil
}

func (r *Registry) RemoveConflict(ctx context.Context, weddingId, conflictId int) error {
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		if err := rep.Conflicts().DeleteConflict(ctx, weddingId, conflictId); err != nil {
			return err
		}
		ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityConflict, Id: conflictId}
		return r.auditor.Log(ctx, rep, entity.Changes(ref, entity.ChangeDelete, "", "", []entity.FieldChange{
			{Field: "id", Old: fmt.Sprint(conflictId)},
		})...)
	})
	if err != nil {
		return gerr.Storage("remove conflict", err)
	}
	return nil
}

func (r *Registry) ListConflicts(ctx context.Context, weddingId int) ([]entity.GuestConflict, error) {
	list, err := r.repo.Conflicts().ListConflicts(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("list conflicts", err)
	}
	return list, nil
}
