package model

import (
	"encoding/json"
	"time"
)

// Envelope is the broker wire format for one event:
//
//	{event_id, event_type, data: {subject_id, ...}, metadata: {created_at, tenant_id, retry_count}}
//
// published as a persistent message with content_type=application/json.
type Envelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Data      json.RawMessage  `json:"data"`
	Metadata  EnvelopeMetadata `json:"metadata"`
}

// EnvelopeMetadata carries delivery bookkeeping. RetryCount is incremented by
// the consumer's bounded in-band retry loop when it republishes a message.
type EnvelopeMetadata struct {
	CreatedAt  time.Time `json:"created_at"`
	TenantID   string    `json:"tenant_id"`
	RetryCount int       `json:"retry_count"`
}
