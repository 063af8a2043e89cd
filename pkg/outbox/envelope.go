package outbox

import (
	"encoding/json"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
)

// envelopeVersion is bumped whenever Envelope changes shape.
const envelopeVersion = 1

// ActorRef names the caller whose request produced the event.
type ActorRef struct {
	UserID      uuid.UUID  `json:"user_id"`
	Role        string     `json:"role,omitempty"`
	CommunityID *uuid.UUID `json:"community_id,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload and shipped verbatim
// to the broker. EventID equals the outbox row id so consumers can dedupe
// redeliveries.
type Envelope struct {
	Version       int                       `json:"version"`
	EventID       uuid.UUID                 `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}
