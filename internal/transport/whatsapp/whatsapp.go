// Package whatsapp is the sms channel transport. Messages go out from a
// linked WhatsApp account, and read and delivery receipts come back as
// delivery events.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	DataDir string `mapstructure:"data_dir"`
	// DefaultCountryCode replaces the leading 0 of national numbers.
	DefaultCountryCode string `mapstructure:"default_country_code"`
}

// DeliveryHandler receives the delivery events derived from receipts.
type DeliveryHandler func(ctx context.Context, ev *entity.DeliveryEvent) error

type client interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

type Transport struct {
	cli      client
	wa       *whatsmeow.Client
	c        *Config
	log      zerolog.Logger
	qrOut    io.Writer
	delivery DeliveryHandler
}

var _ dependency.Transport = (*Transport)(nil)

// New opens the device store under c.DataDir. The account is linked on the
// first Connect.
func New(ctx context.Context, c *Config) (*Transport, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "whatsapp").Logger()

	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", c.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	wa := whatsmeow.NewClient(device, nil)

	t := newTransport(wa, c, logger)
	t.wa = wa
	wa.AddEventHandler(t.eventHandler)
	return t, nil
}

func newTransport(cli client, c *Config, logger zerolog.Logger) *Transport {
	return &Transport{
		cli:   cli,
		c:     c,
		log:   logger,
		qrOut: os.Stdout,
	}
}

// SetDeliveryHandler registers where receipts are reported.
func (t *Transport) SetDeliveryHandler(h DeliveryHandler) {
	t.delivery = h
}

// Connect links the account by QR code when no session is stored yet,
// otherwise it resumes the stored session.
func (t *Transport) Connect(ctx context.Context) error {
	if t.wa.Store.ID != nil {
		if err := t.wa.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}
	qrChan, err := t.wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get qr channel: %w", err)
	}
	if err := t.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			t.log.Info().Str("event", evt.Event).Msg("login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			t.log.Error().Err(err).Msg("can't render qr code")
			fmt.Fprintf(t.qrOut, "QR code: %s\n", evt.Code)
			continue
		}
		fmt.Fprintln(t.qrOut, q.ToSmallString(false))
		fmt.Fprintln(t.qrOut, "Scan the code from WhatsApp > Settings > Linked Devices.")
	}
	return nil
}

func (t *Transport) Disconnect() {
	if t.wa != nil {
		t.wa.Disconnect()
	}
}

// NormalizePhone turns a stored phone number into the digits WhatsApp
// expects, adding the default country code to national numbers.
func NormalizePhone(phone, countryCode string) string {
	digits := entity.NormalizePhone(phone)
	countryCode = entity.NormalizePhone(countryCode)
	if countryCode != "" && strings.HasPrefix(digits, "0") {
		digits = countryCode + digits[1:]
	}
	if countryCode != "" && strings.HasPrefix(digits, countryCode+"0") {
		digits = countryCode + digits[len(countryCode)+1:]
	}
	return digits
}

// Send delivers msg as a plain conversation message and returns the
// WhatsApp message id.
func (t *Transport) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	phone := NormalizePhone(msg.Recipient, t.c.DefaultCountryCode)
	resp, err := t.cli.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return "", fmt.Errorf("failed to verify number on whatsapp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return "", fmt.Errorf("number %s is not registered on whatsapp", phone)
	}
	jid := resp[0].JID

	text := msg.Body
	if msg.Subject != "" {
		text = "*" + msg.Subject + "*\n\n" + text
	}
	t.log.Debug().Str("jid", jid.String()).Int("invitation_id", msg.InvitationId).Msg("sending message")
	sent, err := t.cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: &text})
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}
	return string(sent.ID), nil
}

func (t *Transport) eventHandler(evt any) {
	switch evt := evt.(type) {
	case *events.Receipt:
		t.handleReceipt(context.Background(), evt)
	case *events.Connected:
		t.log.Info().Msg("connected to whatsapp")
	case *events.Disconnected:
		t.log.Info().Msg("disconnected from whatsapp")
	case *events.LoggedOut:
		t.log.Warn().Msg("logged out from whatsapp")
	}
}

var receiptStatus = map[types.ReceiptType]entity.InvitationStatus{
	types.ReceiptTypeDelivered: entity.InvitationDelivered,
	types.ReceiptTypeRead:      entity.InvitationOpened,
}

// handleReceipt reports one delivery event per message id of the receipt.
func (t *Transport) handleReceipt(ctx context.Context, r *events.Receipt) {
	status, ok := receiptStatus[r.Type]
	if !ok || t.delivery == nil || r.IsFromMe {
		return
	}
	for _, id := range r.MessageIDs {
		ev := &entity.DeliveryEvent{
			ProviderMessageId: string(id),
			Status:            status,
			OccurredAt:        r.Timestamp.UTC(),
		}
		if err := t.delivery(ctx, ev); err != nil {
			t.log.Error().Err(err).Str("message_id", ev.ProviderMessageId).Msg("can't apply receipt")
		}
	}
}
