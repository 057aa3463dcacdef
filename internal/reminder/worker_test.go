package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/dispatch"
	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/rsvp"
	"github.com/wedsync/guestlist/internal/store/memstore"
	"github.com/wedsync/guestlist/internal/transport/manual"
)

func addWedding(t *testing.T, repo *memstore.Store, deadline time.Time, auto bool) int {
	t.Helper()
	id, err := repo.Weddings().AddWedding(context.Background(), &entity.WeddingInsert{
		CoupleName:    "Couple",
		RSVPDeadline:  &deadline,
		AutoReminders: auto,
	})
	require.NoError(t, err)
	return id
}

func addGuest(t *testing.T, repo *memstore.Store, weddingId int, name string) int {
	t.Helper()
	g := entity.GuestInsert{FirstName: name, LastName: "Guest", Email: name + "@example.com"}
	entity.NormalizeGuestInsert(&g)
	id, err := repo.Guests().AddGuest(context.Background(), weddingId, &g, "token-"+name)
	require.NoError(t, err)
	return id
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := memstore.New(memstore.WithClock(func() time.Time { return now }))
	auditor := audit.New(repo, audit.Config{})
	outbox := manual.New()
	d, err := dispatch.New(repo, auditor, map[entity.Channel]dependency.Transport{
		entity.ChannelEmail: outbox,
	}, dispatch.DefaultConfig())
	require.NoError(t, err)
	w := New(&Config{WorkerInterval: time.Minute, ReminderSpacing: 24 * time.Hour}, repo, rsvp.New(repo, auditor, d), d)

	closed := addWedding(t, repo, now.Add(-24*time.Hour), true)
	late := addGuest(t, repo, closed, "ana")
	auto := addWedding(t, repo, now.Add(30*24*time.Hour), true)
	addGuest(t, repo, auto, "ben")
	manualOnly := addWedding(t, repo, now.Add(30*24*time.Hour), false)
	addGuest(t, repo, manualOnly, "cleo")

	require.NoError(t, w.runOnce(ctx))

	g, err := repo.Guests().GetGuestById(ctx, closed, late)
	require.NoError(t, err)
	assert.Equal(t, entity.RSVPNoResponse, g.RSVPStatus)

	history, err := auditor.Collect(ctx, entity.EntityRef{WeddingId: closed, Type: entity.EntityGuest, Id: late})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.ChangeRSVP, history[0].ChangeType)
	assert.Equal(t, actor, history[0].Actor)

	items := outbox.Items(auto, entity.ChannelEmail)
	require.Len(t, items, 1)
	assert.Equal(t, "ben@example.com", items[0].Message.Recipient)

	// Inside the spacing nothing new goes out.
	now = now.Add(time.Hour)
	require.NoError(t, w.runOnce(ctx))
	assert.Len(t, outbox.Items(auto, entity.ChannelEmail), 1)

	now = now.Add(24 * time.Hour)
	require.NoError(t, w.runOnce(ctx))
	assert.Len(t, outbox.Items(auto, entity.ChannelEmail), 2)
}

func TestStartStop(t *testing.T) {
	w := New(nil, memstore.New(), nil, nil)
	assert.Equal(t, DefaultConfig(), *w.c)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.Error(t, w.Stop())
}
