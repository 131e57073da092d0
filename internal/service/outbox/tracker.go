package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/metrics"
	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/util"
)

// ErrInvalidStatus is returned by Confirm for a processing status outside
// received/processed/failed.
var ErrInvalidStatus = errors.New("invalid processing status")

// ConfirmParams is one consumer-side delivery confirmation.
type ConfirmParams struct {
	EventID       string
	Status        model.ProcessingStatus
	ReceivedAt    time.Time
	FailureReason *string
	ConsumerName  string
}

// Confirm records a delivery receipt and flips the event's delivery
// sub-state. Idempotent by event_id: a second confirmation for the same
// event is a no-op reported as success. This is the only path that can set
// deliver_status=delivered. A receipt also settles publish state to
// published when the consumer's confirmation beats the publisher's own
// post-ack bookkeeping, so delivery never transitions on a publish-pending
// row.
func (s *Service) Confirm(ctx context.Context, p ConfirmParams) error {
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}

	existing, err := s.receipts.GetByEventID(ctx, p.EventID)
	if err != nil {
		return fmt.Errorf("lookup receipt: %w", err)
	}
	if existing != nil {
		metrics.ReceiptsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	rec, err := s.events.GetByID(ctx, p.EventID)
	if err != nil {
		return fmt.Errorf("lookup event: %w", err)
	}
	if rec == nil {
		return ErrEventNotFound
	}

	receivedAt := p.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	rcpt := &model.DeliveryReceipt{
		ReceiptID:               util.New(),
		EventID:                 rec.EventID,
		TenantID:                rec.TenantID,
		SubjectID:               rec.SubjectID,
		EventType:               rec.EventType,
		ConsumerName:            p.ConsumerName,
		ReceivedAt:              receivedAt,
		ProcessingStatus:        p.Status,
		ProcessingFailureReason: p.FailureReason,
	}

	// receipt insert + event update in one short-lived transaction
	var tx *sqlx.Tx
	if s.db != nil {
		tx, err = s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
	}

	if err := s.receipts.Insert(ctx, tx, rcpt); err != nil {
		// a racing confirmation for the same event_id lost to the UNIQUE
		// constraint; that is the idempotent success case
		if isDuplicateKey(err) {
			metrics.ReceiptsTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
		return fmt.Errorf("insert receipt: %w", err)
	}

	switch p.Status {
	case model.ProcessingReceived, model.ProcessingProcessed:
		err = s.events.MarkDelivered(ctx, tx, rec.EventID)
	case model.ProcessingFailed:
		reason := ""
		if p.FailureReason != nil {
			reason = *p.FailureReason
		}
		err = s.events.MarkDeliverRejected(ctx, tx, rec.EventID, reason)
	}
	if err != nil {
		return fmt.Errorf("update delivery state: %w", err)
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	metrics.ReceiptsTotal.WithLabelValues(p.Status.String()).Inc()
	if p.Status == model.ProcessingFailed {
		metrics.EventsTotal.WithLabelValues("rejected", rec.EventType).Inc()
	} else {
		metrics.EventsTotal.WithLabelValues("delivered", rec.EventType).Inc()
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
