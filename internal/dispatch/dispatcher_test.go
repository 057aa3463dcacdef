package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/dependency/mocks"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/store/memstore"
)

type testBed struct {
	repo    *memstore.Store
	auditor *audit.Auditor
	email   *mocks.Transport
	sms     *mocks.Transport
	d       *Dispatcher
	wedding int
}

func newTestBed(t *testing.T, c Config) *testBed {
	t.Helper()
	repo := memstore.New()
	tb := &testBed{
		repo:    repo,
		auditor: audit.New(repo, audit.Config{}),
		email:   mocks.NewTransport(t),
		sms:     mocks.NewTransport(t),
	}
	var err error
	tb.d, err = New(repo, tb.auditor, map[entity.Channel]dependency.Transport{
		entity.ChannelEmail: tb.email,
		entity.ChannelSMS:   tb.sms,
	}, c)
	require.NoError(t, err)

	deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tb.wedding, err = repo.Weddings().AddWedding(context.Background(), &entity.WeddingInsert{
		CoupleName:   "Ana & Ben",
		RSVPDeadline: &deadline,
	})
	require.NoError(t, err)
	return tb
}

func (tb *testBed) addGuest(t *testing.T, g entity.GuestInsert) *entity.Guest {
	t.Helper()
	ctx := context.Background()
	entity.NormalizeGuestInsert(&g)
	id, err := tb.repo.Guests().AddGuest(ctx, tb.wedding, &g, "token-"+g.FirstName)
	require.NoError(t, err)
	guest, err := tb.repo.Guests().GetGuestById(ctx, tb.wedding, id)
	require.NoError(t, err)
	return guest
}

func TestSendInvitation(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{RSVPBaseURL: "https://rsvp.example.com/r/"})
	g := tb.addGuest(t, entity.GuestInsert{FirstName: "Cleo", LastName: "Diaz", Email: "cleo@example.com", PlusOneAllowed: true})

	var sent *entity.OutboundMessage
	tb.email.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg *entity.OutboundMessage) { sent = msg }).
		Return("sg-1", nil)

	inv, err := tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationInvite, entity.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationSent, inv.Status)
	assert.Equal(t, "sg-1", inv.ProviderMessageId)
	assert.Equal(t, "cleo@example.com", inv.Recipient)
	require.NotNil(t, inv.SentAt)

	require.NotNil(t, sent)
	assert.Equal(t, inv.Id, sent.InvitationId)
	assert.Equal(t, "You're invited", sent.Subject)
	assert.Contains(t, sent.Body, "Dear Cleo Diaz")
	assert.Contains(t, sent.Body, "https://rsvp.example.com/r/token-Cleo")
	assert.Contains(t, sent.Body, "bring a guest")
	assert.Contains(t, sent.Body, "Friday, 1 May 2026")

	history, err := tb.auditor.Collect(ctx, entity.EntityRef{WeddingId: tb.wedding, Type: entity.EntityInvitation, Id: inv.Id})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "draft", history[2].OldValue)
	assert.Equal(t, "sent", history[2].NewValue)
}

func TestSendInvitationTransportFailure(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{})
	g := tb.addGuest(t, entity.GuestInsert{FirstName: "Dan", LastName: "Eto", Phone: "+44 7700 900123"})

	tb.sms.EXPECT().Send(mock.Anything, mock.Anything).Return("", errors.New("not on whatsapp"))

	inv, err := tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationSaveTheDate, entity.ChannelSMS)
	require.Error(t, err)
	assert.ErrorIs(t, err, gerr.ErrTransport)
	require.NotNil(t, inv)
	assert.Equal(t, entity.InvitationFailed, inv.Status)
	assert.Equal(t, "not on whatsapp", inv.ErrorMsg)

	stored, err := tb.repo.Invitations().GetInvitationById(ctx, tb.wedding, inv.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationFailed, stored.Status)
	assert.True(t, stored.Status.Terminal())
}

func TestSendInvitationRejectsBeforeSending(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{})
	g := tb.addGuest(t, entity.GuestInsert{FirstName: "Eve", LastName: "Fox", Email: "eve@example.com"})

	_, err := tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationInvite, entity.ChannelPostal)
	assert.ErrorIs(t, err, gerr.ErrChannelUnavailable)

	_, err = tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationInvite, entity.ChannelSMS)
	assert.ErrorIs(t, err, gerr.ErrValidation)

	_, err = tb.d.SendInvitation(ctx, tb.wedding, g.Id, "wedding_cake", entity.ChannelEmail)
	assert.ErrorIs(t, err, gerr.ErrValidation)

	_, err = tb.d.SendInvitation(ctx, tb.wedding, g.Id+100, entity.InvitationInvite, entity.ChannelEmail)
	assert.ErrorIs(t, err, gerr.ErrNotFound)

	invs, err := tb.d.ListInvitations(ctx, tb.wedding, 0)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestApplyDeliveryEvent(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{})
	g := tb.addGuest(t, entity.GuestInsert{FirstName: "Gil", LastName: "Ho", Email: "gil@example.com"})
	tb.email.EXPECT().Send(mock.Anything, mock.Anything).Return("sg-7", nil)

	inv, err := tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationInvite, entity.ChannelEmail)
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	got, err := tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-7", Status: entity.InvitationDelivered, OccurredAt: at})
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, at.Equal(*got.DeliveredAt))

	// redelivered webhook
	got, err = tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-7", Status: entity.InvitationDelivered})
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationDelivered, got.Status)

	_, err = tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-7", Status: entity.InvitationOpened})
	require.NoError(t, err)

	_, err = tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-7", Status: entity.InvitationBounced})
	assert.ErrorIs(t, err, gerr.ErrInvalidTransition)

	_, err = tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "unknown", Status: entity.InvitationDelivered})
	assert.ErrorIs(t, err, gerr.ErrNotFound)

	err = tb.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		return tb.d.MarkResponded(ctx, rep, tb.wedding, g.Id)
	})
	require.NoError(t, err)
	stored, err := tb.repo.Invitations().GetInvitationById(ctx, tb.wedding, inv.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationResponded, stored.Status)
	assert.NotNil(t, stored.RespondedAt)
}

func TestApplyDeliveryEventBounce(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{})
	g := tb.addGuest(t, entity.GuestInsert{FirstName: "Ian", LastName: "Jo", Email: "ian@example.com"})
	tb.email.EXPECT().Send(mock.Anything, mock.Anything).Return("sg-9", nil)

	_, err := tb.d.SendInvitation(ctx, tb.wedding, g.Id, entity.InvitationInvite, entity.ChannelEmail)
	require.NoError(t, err)

	got, err := tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-9", Status: entity.InvitationBounced, Reason: "mailbox full"})
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationBounced, got.Status)
	assert.Equal(t, "mailbox full", got.ErrorMsg)

	_, err = tb.d.ApplyDeliveryEvent(ctx, &entity.DeliveryEvent{ProviderMessageId: "sg-9", Status: entity.InvitationDelivered})
	assert.ErrorIs(t, err, gerr.ErrInvalidTransition)
}

func TestSendBulkReminders(t *testing.T) {
	ctx := context.Background()
	tb := newTestBed(t, Config{ReminderLimit: 1})

	pending := tb.addGuest(t, entity.GuestInsert{FirstName: "Kai", LastName: "Lee", Email: "kai@example.com", GuestGroup: "family"})
	bySMS := tb.addGuest(t, entity.GuestInsert{FirstName: "Liv", LastName: "Moe", Phone: "+1 415 555 0100", GuestGroup: "family"})
	unreachable := tb.addGuest(t, entity.GuestInsert{FirstName: "Max", LastName: "Ng", GuestGroup: "family"})
	confirmed := tb.addGuest(t, entity.GuestInsert{FirstName: "Nia", LastName: "Oh", Email: "nia@example.com", GuestGroup: "family"})
	otherGroup := tb.addGuest(t, entity.GuestInsert{FirstName: "Oli", LastName: "Pe", Email: "oli@example.com", GuestGroup: "work"})

	require.NoError(t, tb.repo.Guests().SetRSVPState(ctx, tb.wedding, confirmed.Id, entity.GuestRSVPState{Status: entity.RSVPConfirmed, PartySize: 1}))

	tb.email.EXPECT().Send(mock.Anything, mock.MatchedBy(func(m *entity.OutboundMessage) bool {
		return m.Recipient == "kai@example.com"
	})).Return("sg-r1", nil).Once()
	tb.sms.EXPECT().Send(mock.Anything, mock.Anything).Return("", errors.New("offline")).Once()

	report, err := tb.d.SendBulkReminders(ctx, tb.wedding, entity.ReminderFilter{Groups: []string{"family"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)

	byGuest := map[int]entity.GuestReminderOutcome{}
	for _, o := range report.Outcomes {
		byGuest[o.GuestId] = o
	}
	require.Len(t, byGuest, 3)
	assert.Equal(t, entity.ReminderSent, byGuest[pending.Id].Outcome)
	assert.Equal(t, entity.ReminderFailed, byGuest[bySMS.Id].Outcome)
	assert.Equal(t, entity.ReminderSkipped, byGuest[unreachable.Id].Outcome)
	assert.Equal(t, reasonUnreachable, byGuest[unreachable.Id].Reason)
	assert.NotContains(t, byGuest, confirmed.Id)
	assert.NotContains(t, byGuest, otherGroup.Id)

	// The failed reminder counts too: it left the draft state.
	report, err = tb.d.SendBulkReminders(ctx, tb.wedding, entity.ReminderFilter{Groups: []string{"family"}})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 3, report.Skipped)
	for _, o := range report.Outcomes {
		if o.GuestId != unreachable.Id {
			assert.Equal(t, reasonLimitReached, o.Reason)
		}
	}
}
