package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// EventsHealth is the monitoring snapshot for the events-health endpoint.
type EventsHealth struct {
	PendingCount  int64
	FailedCount   int64
	OldestPending *time.Time
}

// EventsRepository defines persistence for the event_records outbox table.
// Rows are append-only; only the publish/deliver sub-state columns mutate.
type EventsRepository interface {
	// Insert writes a pending outbox row. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx so the row
	// commits atomically with the triggering business mutation.
	Insert(ctx context.Context, tx *sqlx.Tx, rec *model.EventRecord) error

	GetByID(ctx context.Context, eventID string) (*model.EventRecord, error)

	// ListPublishPending selects resend candidates: pending publish state,
	// created inside the age window, optionally bounded by try count and
	// event types. maxTryCount <= 0 and empty eventTypes disable the filters.
	ListPublishPending(ctx context.Context, windowDays, maxTryCount int, eventTypes []string) ([]model.EventRecord, error)

	// ListDeliverPending selects redeliver candidates: published but never
	// confirmed delivered, oldest first.
	ListDeliverPending(ctx context.Context, windowDays, maxTryCount int, eventTypes []string) ([]model.EventRecord, error)

	// MarkPublished flips publish sub-state to published and seeds the
	// delivery-attempt fields (a successful publish is the first delivery
	// attempt).
	MarkPublished(ctx context.Context, eventID string, publishTryCount, deliverTryCount int) error

	// MarkPublishFailed records a failed attempt; terminal also flips
	// publish_status to failed so the record leaves the sweeper's selection.
	MarkPublishFailed(ctx context.Context, eventID string, publishTryCount int, reason string, terminal bool) error

	// MarkDeliverAttempt records a successful re-emission (delivery itself is
	// only confirmed by a receipt).
	MarkDeliverAttempt(ctx context.Context, eventID string, deliverTryCount int) error

	MarkDeliverFailed(ctx context.Context, eventID string, deliverTryCount int, reason string, terminal bool) error

	// MarkDelivered is invoked by the receipt tracker, the only path allowed
	// to set deliver_status=delivered. A receipt implies the broker accepted
	// the message, so publish state is settled to published atomically with
	// the deliver flip (a racing consumer can confirm before the publisher's
	// own MarkPublished commits).
	MarkDelivered(ctx context.Context, tx *sqlx.Tx, eventID string) error

	// MarkDeliverRejected records a consumer-reported permanent failure,
	// settling publish state the same way MarkDelivered does.
	MarkDeliverRejected(ctx context.Context, tx *sqlx.Tx, eventID, reason string) error

	Health(ctx context.Context) (EventsHealth, error)
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

var _ EventsRepository = (*EventsRepositoryImpl)(nil)

func (r *EventsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

const eventColumns = `
	event_id, tenant_id, subject_id, event_type, payload, metadata, created_at,
	publish_status, published_at, publish_try_count, publish_last_tried_at, publish_failure_reason,
	deliver_status, delivered_at, deliver_try_count, deliver_last_tried_at, deliver_failure_reason
`

func (r *EventsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, rec *model.EventRecord) error {
	const q = `
		INSERT INTO event_records
		    (event_id, tenant_id, subject_id, event_type, payload, metadata, created_at,
		     publish_status, publish_try_count, publish_last_tried_at,
		     deliver_status, deliver_try_count)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, 'pending', 1, ?, 'pending', 0)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			rec.EventID, rec.TenantID, rec.SubjectID, rec.EventType,
			[]byte(rec.Payload), []byte(rec.Metadata),
			rec.CreatedAt, rec.PublishLastTriedAt,
		)
		return err
	})
}

func (r *EventsRepositoryImpl) GetByID(ctx context.Context, eventID string) (*model.EventRecord, error) {
	var rec model.EventRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT `+eventColumns+`
		  FROM event_records
		 WHERE event_id = ? LIMIT 1
	`, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *EventsRepositoryImpl) ListPublishPending(ctx context.Context, windowDays, maxTryCount int, eventTypes []string) ([]model.EventRecord, error) {
	q := `
		SELECT ` + eventColumns + `
		FROM event_records
		WHERE publish_status = 'pending'
		  AND created_at > NOW() - INTERVAL ? DAY
	`
	args := []any{windowDays}

	if maxTryCount > 0 {
		q += " AND publish_try_count < ?"
		args = append(args, maxTryCount)
	}
	if len(eventTypes) > 0 {
		q += " AND event_type IN (?)"
		args = append(args, eventTypes)
	}
	q += " ORDER BY created_at ASC"

	return r.selectRecords(ctx, q, args, len(eventTypes) > 0)
}

func (r *EventsRepositoryImpl) ListDeliverPending(ctx context.Context, windowDays, maxTryCount int, eventTypes []string) ([]model.EventRecord, error) {
	q := `
		SELECT ` + eventColumns + `
		FROM event_records
		WHERE publish_status = 'published'
		  AND deliver_status = 'pending'
		  AND created_at > NOW() - INTERVAL ? DAY
	`
	args := []any{windowDays}

	if maxTryCount > 0 {
		q += " AND deliver_try_count < ?"
		args = append(args, maxTryCount)
	}
	if len(eventTypes) > 0 {
		q += " AND event_type IN (?)"
		args = append(args, eventTypes)
	}
	q += " ORDER BY created_at ASC"

	return r.selectRecords(ctx, q, args, len(eventTypes) > 0)
}

func (r *EventsRepositoryImpl) selectRecords(ctx context.Context, q string, args []any, expand bool) ([]model.EventRecord, error) {
	if expand {
		var err error
		q, args, err = sqlx.In(q, args...)
		if err != nil {
			return nil, err
		}
		q = r.db.Rebind(q)
	}
	var rows []model.EventRecord
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventsRepositoryImpl) MarkPublished(ctx context.Context, eventID string, publishTryCount, deliverTryCount int) error {
	const q = `
		UPDATE event_records
		   SET publish_status = 'published',
		       published_at = NOW(),
		       publish_try_count = ?,
		       publish_last_tried_at = NOW(),
		       publish_failure_reason = NULL,
		       deliver_try_count = ?,
		       deliver_last_tried_at = NOW()
		 WHERE event_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, publishTryCount, deliverTryCount, eventID)
	return err
}

func (r *EventsRepositoryImpl) MarkPublishFailed(ctx context.Context, eventID string, publishTryCount int, reason string, terminal bool) error {
	status := model.PublishPending
	if terminal {
		status = model.PublishFailed
	}
	const q = `
		UPDATE event_records
		   SET publish_status = ?,
		       publish_try_count = ?,
		       publish_last_tried_at = NOW(),
		       publish_failure_reason = ?
		 WHERE event_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, status.String(), publishTryCount, reason, eventID)
	return err
}

func (r *EventsRepositoryImpl) MarkDeliverAttempt(ctx context.Context, eventID string, deliverTryCount int) error {
	const q = `
		UPDATE event_records
		   SET deliver_try_count = ?,
		       deliver_last_tried_at = NOW(),
		       deliver_failure_reason = NULL
		 WHERE event_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, deliverTryCount, eventID)
	return err
}

func (r *EventsRepositoryImpl) MarkDeliverFailed(ctx context.Context, eventID string, deliverTryCount int, reason string, terminal bool) error {
	status := model.DeliverPending
	if terminal {
		status = model.DeliverFailed
	}
	const q = `
		UPDATE event_records
		   SET deliver_status = ?,
		       deliver_try_count = ?,
		       deliver_last_tried_at = NOW(),
		       deliver_failure_reason = ?
		 WHERE event_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, status.String(), deliverTryCount, reason, eventID)
	return err
}

func (r *EventsRepositoryImpl) MarkDelivered(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	// a receipt proves the broker accepted the message, so publish state is
	// settled in the same statement; deliver state never moves off pending
	// while publish_status stays pending
	const q = `
		UPDATE event_records
		   SET publish_status = 'published',
		       published_at = COALESCE(published_at, NOW()),
		       publish_failure_reason = NULL,
		       deliver_status = 'delivered',
		       delivered_at = NOW(),
		       deliver_failure_reason = NULL
		 WHERE event_id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, eventID)
		return err
	})
}

func (r *EventsRepositoryImpl) MarkDeliverRejected(ctx context.Context, tx *sqlx.Tx, eventID, reason string) error {
	const q = `
		UPDATE event_records
		   SET publish_status = 'published',
		       published_at = COALESCE(published_at, NOW()),
		       publish_failure_reason = NULL,
		       deliver_status = 'failed',
		       deliver_failure_reason = ?
		 WHERE event_id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, reason, eventID)
		return err
	})
}

func (r *EventsRepositoryImpl) Health(ctx context.Context) (EventsHealth, error) {
	var h EventsHealth
	err := r.db.GetContext(ctx, &h.PendingCount, `
		SELECT COUNT(*) FROM event_records WHERE publish_status = 'pending'
	`)
	if err != nil {
		return EventsHealth{}, err
	}
	err = r.db.GetContext(ctx, &h.FailedCount, `
		SELECT COUNT(*) FROM event_records WHERE publish_status = 'failed'
	`)
	if err != nil {
		return EventsHealth{}, err
	}

	var oldest sql.NullTime
	err = r.db.GetContext(ctx, &oldest, `
		SELECT MIN(created_at) FROM event_records WHERE publish_status = 'pending'
	`)
	if err != nil {
		return EventsHealth{}, err
	}
	if oldest.Valid {
		h.OldestPending = &oldest.Time
	}
	return h, nil
}
