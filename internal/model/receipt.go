package model

import "time"

type ProcessingStatus string

const (
	ProcessingReceived  ProcessingStatus = "received"
	ProcessingProcessed ProcessingStatus = "processed"
	ProcessingFailed    ProcessingStatus = "failed"
)

func (s ProcessingStatus) String() string { return string(s) }

func (s ProcessingStatus) Valid() bool {
	return s == ProcessingReceived || s == ProcessingProcessed || s == ProcessingFailed
}

// DeliveryReceipt records a consumer-side confirmation. event_id carries a
// UNIQUE constraint, which is what makes confirm-delivery idempotent.
type DeliveryReceipt struct {
	ReceiptID        string           `db:"receipt_id"` // ULID
	EventID          string           `db:"event_id"`
	TenantID         string           `db:"tenant_id"`
	SubjectID        string           `db:"subject_id"`
	EventType        string           `db:"event_type"`
	ConsumerName     string           `db:"consumer_name"`
	ReceivedAt       time.Time        `db:"received_at"`
	ProcessingStatus ProcessingStatus `db:"processing_status"`
	ProcessingFailureReason *string   `db:"processing_failure_reason"`
	CreatedAt        time.Time        `db:"created_at"`
}
