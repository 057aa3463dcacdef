package email

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wedsync/guestlist/internal/entity"
)

// Event is one element of a SendGrid event webhook batch.
type Event struct {
	Event        string `json:"event"`
	SGMessageId  string `json:"sg_message_id"`
	Timestamp    int64  `json:"timestamp"`
	Reason       string `json:"reason"`
	Response     string `json:"response"`
	InvitationId string `json:"invitation_id"`
}

var eventStatus = map[string]entity.InvitationStatus{
	"delivered": entity.InvitationDelivered,
	"bounce":    entity.InvitationBounced,
	"dropped":   entity.InvitationFailed,
	"open":      entity.InvitationOpened,
}

// ParseEvents decodes a webhook batch. Events that carry no invitation
// status, such as processed or deferred, are dropped.
func ParseEvents(body []byte) ([]entity.DeliveryEvent, error) {
	var batch []Event
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("can't decode sendgrid events: %w", err)
	}
	out := make([]entity.DeliveryEvent, 0, len(batch))
	for _, e := range batch {
		status, ok := eventStatus[e.Event]
		if !ok || e.SGMessageId == "" {
			continue
		}
		reason := e.Reason
		if reason == "" {
			reason = e.Response
		}
		out = append(out, entity.DeliveryEvent{
			ProviderMessageId: messageId(e.SGMessageId),
			Status:            status,
			Reason:            reason,
			OccurredAt:        time.Unix(e.Timestamp, 0).UTC(),
		})
	}
	return out, nil
}

// messageId strips the filter suffix SendGrid appends to the id it returned
// at send time.
func messageId(sgMessageId string) string {
	id, _, _ := strings.Cut(sgMessageId, ".")
	return id
}
