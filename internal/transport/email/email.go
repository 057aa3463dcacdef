// Package email delivers invitations through SendGrid and translates the
// SendGrid event webhook into delivery events.
package email

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

const messageIdHeader = "X-Message-Id"

type Config struct {
	APIKey    string `mapstructure:"sendgrid_api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_email_name"`
	ReplyTo   string `mapstructure:"reply_to"`
}

// sender is the part of the SendGrid client the transport needs.
type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type Transport struct {
	cli     sender
	from    *mail.Email
	replyTo *mail.Email
}

var _ dependency.Transport = (*Transport)(nil)

func New(c *Config) (*Transport, error) {
	if c.APIKey == "" || c.FromEmail == "" || c.FromName == "" {
		return nil, fmt.Errorf("incomplete config: from %q <%s>", c.FromName, c.FromEmail)
	}
	return newTransport(c, sendgrid.NewSendClient(c.APIKey)), nil
}

func newTransport(c *Config, cli sender) *Transport {
	t := &Transport{
		cli:  cli,
		from: mail.NewEmail(c.FromName, c.FromEmail),
	}
	if c.ReplyTo != "" {
		t.replyTo = mail.NewEmail(c.FromName, c.ReplyTo)
	}
	return t
}

// Send submits msg and returns the SendGrid message id.
func (t *Transport) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	m := mail.NewSingleEmailPlainText(t.from, msg.Subject, mail.NewEmail("", msg.Recipient), msg.Body)
	if t.replyTo != nil {
		m.SetReplyTo(t.replyTo)
	}
	m.SetCustomArg("invitation_id", strconv.Itoa(msg.InvitationId))

	resp, err := t.cli.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	id := headerValue(resp.Headers, messageIdHeader)
	if id == "" {
		return "", fmt.Errorf("sendgrid: response without %s", messageIdHeader)
	}
	return id, nil
}

func headerValue(h map[string][]string, key string) string {
	for k, vs := range h {
		if strings.EqualFold(k, key) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
