package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type conflictStore struct {
	*MYSQLStore
}

// Conflicts returns an object implementing conflicts interface
func (ms *MYSQLStore) Conflicts() dependency.Conflicts {
	return &conflictStore{
		MYSQLStore: ms,
	}
}

func (cs *conflictStore) AddConflict(ctx context.Context, c *entity.GuestConflict) (int, error) {
	a, b := entity.OrderedPair(c.GuestAId, c.GuestBId)
	query := `
	INSERT INTO guest_conflict (wedding_id, guest_a_id, guest_b_id, reason, created_by, created_at)
	VALUES (:weddingId, :guestA, :guestB, :reason, :createdBy, :createdAt)`
	id, err := ExecNamedLastId(ctx, cs.DB(), query, map[string]any{
		"weddingId": c.WeddingId,
		"guestA":    a,
		"guestB":    b,
		"reason":    c.Reason,
		"createdBy": c.CreatedBy,
		"createdAt": cs.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't add guest conflict: %w", err)
	}
	return id, nil
}

func (cs *conflictStore) DeleteConflict(ctx context.Context, weddingId, id int) error {
	res, err := ExecNamedResult(ctx, cs.DB(), `DELETE FROM guest_conflict WHERE id = :id AND wedding_id = :weddingId`, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return fmt.Errorf("can't delete guest conflict: %w", err)
	}
	return affected(res, "guest conflict", id)
}

func (cs *conflictStore) ListConflicts(ctx context.Context, weddingId int) ([]entity.GuestConflict, error) {
	list, err := QueryListNamed[entity.GuestConflict](ctx, cs.DB(), `SELECT * FROM guest_conflict WHERE wedding_id = :weddingId ORDER BY id`, map[string]any{
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list guest conflicts: %w", err)
	}
	return list, nil
}
