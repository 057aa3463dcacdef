// Package manual is the transport for channels fulfilled by people: postal
// invitations are printed and digital links are shared by hand. Messages
// are kept in an outbox until staff picks them up.
package manual

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type Item struct {
	MessageId string                 `json:"message_id"`
	QueuedAt  time.Time              `json:"queued_at"`
	Message   entity.OutboundMessage `json:"message"`
}

type Outbox struct {
	mu    sync.Mutex
	items []Item
	now   func() time.Time
}

var _ dependency.Transport = (*Outbox)(nil)

func New() *Outbox {
	return &Outbox{now: func() time.Time { return time.Now().UTC() }}
}

func (o *Outbox) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	item := Item{
		MessageId: "manual-" + uuid.NewString(),
		QueuedAt:  o.now(),
		Message:   *msg,
	}
	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()

	slog.Default().InfoContext(ctx, "message queued for manual fulfilment",
		slog.Int("invitation_id", msg.InvitationId),
		slog.String("channel", string(msg.Channel)),
	)
	return item.MessageId, nil
}

// Items returns the queued messages of the wedding, oldest first. An empty
// ch matches every channel.
func (o *Outbox) Items(weddingId int, ch entity.Channel) []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := []Item{}
	for _, it := range o.items {
		if it.Message.WeddingId == weddingId && (ch == "" || it.Message.Channel == ch) {
			out = append(out, it)
		}
	}
	return out
}

// Take removes the message from the outbox once it has been handled and
// reports whether it was there.
func (o *Outbox) Take(weddingId int, messageId string) (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := slices.IndexFunc(o.items, func(it Item) bool {
		return it.MessageId == messageId && it.Message.WeddingId == weddingId
	})
	if i < 0 {
		return Item{}, false
	}
	it := o.items[i]
	o.items = slices.Delete(o.items, i, i+1)
	return it, true
}
