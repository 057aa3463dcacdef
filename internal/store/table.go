package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type tableStore struct {
	*MYSQLStore
}

// Tables returns an object implementing tables interface
func (ms *MYSQLStore) Tables() dependency.Tables {
	return &tableStore{
		MYSQLStore: ms,
	}
}

func tableParams(t *entity.TableInsert) map[string]any {
	return map[string]any{
		"tableNumber":         t.TableNumber,
		"name":                t.Name,
		"shape":               t.Shape,
		"capacity":            t.Capacity,
		"location":            t.Location,
		"specialRequirements": t.SpecialRequirements,
		"isHeadTable":         t.IsHeadTable,
		"accessible":          t.Accessible,
	}
}

func (ts *tableStore) AddTable(ctx context.Context, weddingId int, t *entity.TableInsert) (int, error) {
	query := `
	INSERT INTO wedding_table
		(wedding_id, table_number, name, shape, capacity, location, special_requirements,
		is_head_table, accessible, created_at, updated_at)
	VALUES
		(:weddingId, :tableNumber, :name, :shape, :capacity, :location, :specialRequirements,
		:isHeadTable, :accessible, :now, :now)`
	params := tableParams(t)
	params["weddingId"] = weddingId
	params["now"] = ts.Now()
	id, err := ExecNamedLastId(ctx, ts.DB(), query, params)
	if err != nil {
		return 0, fmt.Errorf("can't add table: %w", err)
	}
	return id, nil
}

func (ts *tableStore) UpdateTable(ctx context.Context, weddingId, id int, t *entity.TableInsert) error {
	query := `
	UPDATE wedding_table SET
		table_number = :tableNumber,
		name = :name,
		shape = :shape,
		capacity = :capacity,
		location = :location,
		special_requirements = :specialRequirements,
		is_head_table = :isHeadTable,
		accessible = :accessible,
		updated_at = :now
	WHERE id = :id AND wedding_id = :weddingId`
	params := tableParams(t)
	params["id"] = id
	params["weddingId"] = weddingId
	params["now"] = ts.Now()
	if err := ExecNamed(ctx, ts.DB(), query, params); err != nil {
		return fmt.Errorf("can't update table: %w", err)
	}
	return nil
}

func (ts *tableStore) DeleteTable(ctx context.Context, weddingId, id int) error {
	res, err := ExecNamedResult(ctx, ts.DB(), `DELETE FROM wedding_table WHERE id = :id AND wedding_id = :weddingId`, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return fmt.Errorf("can't delete table: %w", err)
	}
	return affected(res, "table", id)
}

func (ts *tableStore) GetTableById(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error) {
	return ts.getTable(ctx, `SELECT * FROM wedding_table WHERE id = :id AND wedding_id = :weddingId`, weddingId, id)
}

func (ts *tableStore) LockTable(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error) {
	return ts.getTable(ctx, `SELECT * FROM wedding_table WHERE id = :id AND wedding_id = :weddingId FOR UPDATE`, weddingId, id)
}

func (ts *tableStore) getTable(ctx context.Context, query string, weddingId, id int) (*entity.WeddingTable, error) {
	t, err := QueryNamedOne[entity.WeddingTable](ctx, ts.DB(), query, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, getErr("can't get table", err, "table", id)
	}
	return &t, nil
}

func (ts *tableStore) LockTables(ctx context.Context, weddingId int) ([]entity.WeddingTable, error) {
	query := `SELECT * FROM wedding_table WHERE wedding_id = :weddingId ORDER BY table_number FOR UPDATE`
	tables, err := QueryListNamed[entity.WeddingTable](ctx, ts.DB(), query, map[string]any{"weddingId": weddingId})
	if err != nil {
		return nil, fmt.Errorf("can't lock tables: %w", err)
	}
	return tables, nil
}

func (ts *tableStore) ListTablesWithUsage(ctx context.Context, weddingId int) ([]entity.TableWithUsage, error) {
	query := `
	SELECT t.*, COALESCE(SUM(GREATEST(g.party_size, 1)), 0) AS used
	FROM wedding_table t
	LEFT JOIN seating_assignment sa ON sa.table_id = t.id
	LEFT JOIN guest g ON g.id = sa.guest_id
	WHERE t.wedding_id = :weddingId
	GROUP BY t.id
	ORDER BY t.table_number`
	tables, err := QueryListNamed[entity.TableWithUsage](ctx, ts.DB(), query, map[string]any{"weddingId": weddingId})
	if err != nil {
		return nil, fmt.Errorf("can't list tables: %w", err)
	}
	return tables, nil
}
