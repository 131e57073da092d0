package model

import (
	"encoding/json"
	"time"
)

type PublishStatus string

const (
	PublishPending   PublishStatus = "pending"
	PublishPublished PublishStatus = "published"
	PublishFailed    PublishStatus = "failed"
)

func (s PublishStatus) String() string { return string(s) }

func (s PublishStatus) Valid() bool {
	return s == PublishPending || s == PublishPublished || s == PublishFailed
}

type DeliverStatus string

const (
	DeliverPending   DeliverStatus = "pending"
	DeliverDelivered DeliverStatus = "delivered"
	DeliverFailed    DeliverStatus = "failed"
)

func (s DeliverStatus) String() string { return string(s) }

func (s DeliverStatus) Valid() bool {
	return s == DeliverPending || s == DeliverDelivered || s == DeliverFailed
}

// MaxTryCount is the terminal ceiling for both publish and delivery attempts.
// Once a record's try count reaches it, the corresponding sub-state flips to
// failed and the sweepers stop selecting the record.
const MaxTryCount = 10

// EventRecord is the outbox entry persisted in event_records. Rows are
// append-only: identity, payload and created_at never change after insert,
// only the publish/deliver sub-state columns do.
type EventRecord struct {
	EventID   string          `db:"event_id"` // ULID
	TenantID  string          `db:"tenant_id"`
	SubjectID string          `db:"subject_id"`
	EventType string          `db:"event_type"` // e.g. "customer_created"
	Payload   json.RawMessage `db:"payload"`
	Metadata  json.RawMessage `db:"metadata"`
	CreatedAt time.Time       `db:"created_at"`

	PublishStatus        PublishStatus `db:"publish_status"`
	PublishedAt          *time.Time    `db:"published_at"`
	PublishTryCount      int           `db:"publish_try_count"`
	PublishLastTriedAt   *time.Time    `db:"publish_last_tried_at"`
	PublishFailureReason *string       `db:"publish_failure_reason"`

	DeliverStatus        DeliverStatus `db:"deliver_status"`
	DeliveredAt          *time.Time    `db:"delivered_at"`
	DeliverTryCount      int           `db:"deliver_try_count"`
	DeliverLastTriedAt   *time.Time    `db:"deliver_last_tried_at"`
	DeliverFailureReason *string       `db:"deliver_failure_reason"`
}
