package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/middleware"
	"github.com/wedsync/guestlist/internal/store/memstore"
)

func entries(ref entity.EntityRef, fields ...string) []entity.ChangeLogEntry {
	fcs := make([]entity.FieldChange, 0, len(fields))
	for _, f := range fields {
		fcs = append(fcs, entity.FieldChange{Field: f, Old: "", New: f + "-value"})
	}
	return entity.Changes(ref, entity.ChangeUpdate, "", "", fcs)
}

func TestLogAndHistory(t *testing.T) {
	ctx := middleware.WithActor(context.Background(), "couple@example.com")
	repo := memstore.New()
	a := New(repo, Config{PageSize: 2})

	ref := entity.EntityRef{WeddingId: 1, Type: entity.EntityGuest, Id: 7}
	other := entity.EntityRef{WeddingId: 1, Type: entity.EntityGuest, Id: 8}

	require.NoError(t, a.Log(ctx, repo, entries(ref, "first_name", "last_name", "email")...))
	require.NoError(t, a.Log(ctx, repo, entries(other, "phone")...))
	require.NoError(t, a.Log(ctx, repo, entries(ref, "phone", "address")...))

	got, err := a.Collect(ctx, ref)
	require.NoError(t, err)
	require.Len(t, got, 5)

	fields := make([]string, 0, len(got))
	for i, e := range got {
		fields = append(fields, e.Field)
		assert.Equal(t, "couple@example.com", e.Actor)
		if i > 0 {
			assert.Greater(t, e.Id, got[i-1].Id)
		}
	}
	assert.Equal(t, []string{"first_name", "last_name", "email", "phone", "address"}, fields)
}

func TestHistoryIsRestartable(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	a := New(repo, Config{PageSize: 1})
	ref := entity.EntityRef{WeddingId: 1, Type: entity.EntityTable, Id: 3}
	require.NoError(t, a.Log(ctx, repo, entries(ref, "capacity", "name")...))

	seq := a.History(ctx, ref)
	for range 2 {
		var n int
		for e, err := range seq {
			require.NoError(t, err)
			assert.Equal(t, middleware.SystemActor, e.Actor)
			n++
		}
		assert.Equal(t, 2, n)
	}

	// stopping early must not disturb the next range
	for range seq {
		break
	}
	got, err := a.Collect(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLogRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	a := New(repo, Config{})
	ref := entity.EntityRef{WeddingId: 1, Type: entity.EntityGuest, Id: 1}

	err := repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		require.NoError(t, a.Log(ctx, rep, entries(ref, "email")...))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := a.Collect(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, got)
}
