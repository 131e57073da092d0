package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// ReceiptsRepository persists consumer delivery confirmations. event_id is
// UNIQUE: one receipt per event, ever.
type ReceiptsRepository interface {
	GetByEventID(ctx context.Context, eventID string) (*model.DeliveryReceipt, error)
	Insert(ctx context.Context, tx *sqlx.Tx, rcpt *model.DeliveryReceipt) error
}

type ReceiptsRepositoryImpl struct {
	db *sqlx.DB
}

func NewReceiptsRepository(db *sqlx.DB) *ReceiptsRepositoryImpl {
	return &ReceiptsRepositoryImpl{db: db}
}

var _ ReceiptsRepository = (*ReceiptsRepositoryImpl)(nil)

func (r *ReceiptsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *ReceiptsRepositoryImpl) GetByEventID(ctx context.Context, eventID string) (*model.DeliveryReceipt, error) {
	var rcpt model.DeliveryReceipt
	err := r.db.GetContext(ctx, &rcpt, `
		SELECT receipt_id, event_id, tenant_id, subject_id, event_type, consumer_name,
		       received_at, processing_status, processing_failure_reason, created_at
		  FROM delivery_receipts
		 WHERE event_id = ? LIMIT 1
	`, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rcpt, nil
}

func (r *ReceiptsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, rcpt *model.DeliveryReceipt) error {
	const q = `
		INSERT INTO delivery_receipts
		    (receipt_id, event_id, tenant_id, subject_id, event_type, consumer_name,
		     received_at, processing_status, processing_failure_reason, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			rcpt.ReceiptID, rcpt.EventID, rcpt.TenantID, rcpt.SubjectID, rcpt.EventType,
			rcpt.ConsumerName, rcpt.ReceivedAt, rcpt.ProcessingStatus.String(), rcpt.ProcessingFailureReason,
		)
		return err
	})
}
