package email

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedsync/guestlist/internal/entity"
)

type fakeSender struct {
	resp *rest.Response
	err  error
	got  *mail.SGMailV3
}

func (f *fakeSender) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	return f.resp, f.err
}

var testConfig = &Config{APIKey: "key", FromEmail: "hello@example.com", FromName: "Ana & Ben", ReplyTo: "reply@example.com"}

func TestSend(t *testing.T) {
	fs := &fakeSender{resp: &rest.Response{
		StatusCode: http.StatusAccepted,
		Headers:    map[string][]string{"X-Message-Id": {"abc123"}},
	}}
	tr := newTransport(testConfig, fs)

	id, err := tr.Send(context.Background(), &entity.OutboundMessage{
		InvitationId: 42,
		Channel:      entity.ChannelEmail,
		Recipient:    "guest@example.com",
		Subject:      "You're invited",
		Body:         "Dear guest",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	require.NotNil(t, fs.got)
	assert.Equal(t, "You're invited", fs.got.Subject)
	assert.Equal(t, "hello@example.com", fs.got.From.Address)
	assert.Equal(t, "reply@example.com", fs.got.ReplyTo.Address)
	assert.Equal(t, "42", fs.got.CustomArgs["invitation_id"])
	require.Len(t, fs.got.Personalizations, 1)
	assert.Equal(t, "guest@example.com", fs.got.Personalizations[0].To[0].Address)
}

func TestSendRejected(t *testing.T) {
	msg := &entity.OutboundMessage{Recipient: "guest@example.com"}

	tr := newTransport(testConfig, &fakeSender{resp: &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad sender"}})
	_, err := tr.Send(context.Background(), msg)
	assert.ErrorContains(t, err, "status 400")

	tr = newTransport(testConfig, &fakeSender{err: errors.New("dial tcp: timeout")})
	_, err = tr.Send(context.Background(), msg)
	assert.ErrorContains(t, err, "timeout")

	tr = newTransport(testConfig, &fakeSender{resp: &rest.Response{StatusCode: http.StatusAccepted}})
	_, err = tr.Send(context.Background(), msg)
	assert.Error(t, err)
}

func TestNewRequiresSender(t *testing.T) {
	_, err := New(&Config{APIKey: "key"})
	assert.Error(t, err)
}

func TestParseEvents(t *testing.T) {
	body := []byte(`[
		{"event":"processed","sg_message_id":"abc123.filter0001","timestamp":1767225600},
		{"event":"delivered","sg_message_id":"abc123.filter0001","timestamp":1767225600},
		{"event":"bounce","sg_message_id":"def456.filter0002","timestamp":1767225660,"reason":"550 mailbox unavailable"},
		{"event":"open","sg_message_id":"","timestamp":1767225700}
	]`)
	evs, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, evs, 2)

	assert.Equal(t, "abc123", evs[0].ProviderMessageId)
	assert.Equal(t, entity.InvitationDelivered, evs[0].Status)
	assert.True(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Equal(evs[0].OccurredAt))

	assert.Equal(t, "def456", evs[1].ProviderMessageId)
	assert.Equal(t, entity.InvitationBounced, evs[1].Status)
	assert.Equal(t, "550 mailbox unavailable", evs[1].Reason)

	_, err = ParseEvents([]byte(`{`))
	assert.Error(t, err)
}
