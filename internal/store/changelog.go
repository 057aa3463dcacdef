package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type changeLogStore struct {
	*MYSQLStore
}

// ChangeLog returns an object implementing change log interface
func (ms *MYSQLStore) ChangeLog() dependency.ChangeLog {
	return &changeLogStore{
		MYSQLStore: ms,
	}
}

func (cs *changeLogStore) AddEntries(ctx context.Context, entries []entity.ChangeLogEntry) error {
	query := `
	INSERT INTO change_log
		(wedding_id, entity_type, entity_id, field, old_value, new_value, actor, reason, change_type, created_at)
	VALUES
		(:weddingId, :entityType, :entityId, :field, :oldValue, :newValue, :actor, :reason, :changeType, :createdAt)`
	now := cs.Now()
	for _, e := range entries {
		err := ExecNamed(ctx, cs.DB(), query, map[string]any{
			"weddingId":  e.WeddingId,
			"entityType": e.EntityType,
			"entityId":   e.EntityId,
			"field":      e.Field,
			"oldValue":   e.OldValue,
			"newValue":   e.NewValue,
			"actor":      e.Actor,
			"reason":     e.Reason,
			"changeType": e.ChangeType,
			"createdAt":  now,
		})
		if err != nil {
			return fmt.Errorf("can't add change log entry: %w", err)
		}
	}
	return nil
}

func (cs *changeLogStore) ListEntries(ctx context.Context, ref entity.EntityRef, afterId, limit int) ([]entity.ChangeLogEntry, error) {
	query := `
	SELECT * FROM change_log
	WHERE wedding_id = :weddingId AND entity_type = :entityType AND entity_id = :entityId AND id > :afterId
	ORDER BY id
	LIMIT :limit`
	list, err := QueryListNamed[entity.ChangeLogEntry](ctx, cs.DB(), query, map[string]any{
		"weddingId":  ref.WeddingId,
		"entityType": ref.Type,
		"entityId":   ref.Id,
		"afterId":    afterId,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list change log entries: %w", err)
	}
	return list, nil
}
