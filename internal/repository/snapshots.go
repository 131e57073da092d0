package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// SnapshotsRepository reads/writes analytics snapshots in ClickHouse.
type SnapshotsRepository interface {
	// Watermark returns the latest snapshot_at, or zero time when the table
	// is empty. The batch job only aggregates customers changed after it.
	Watermark(ctx context.Context) (time.Time, error)
	InsertBatch(ctx context.Context, snaps []model.CustomerSnapshot) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]model.CustomerSnapshot, error)
}

type snapshotsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewSnapshotsRepository(ch *sqlx.DB) SnapshotsRepository {
	return &snapshotsRepository{ch: ch}
}

func (r *snapshotsRepository) Watermark(ctx context.Context) (time.Time, error) {
	var wm sql.NullTime
	err := r.ch.GetContext(ctx, &wm, `
		SELECT max(snapshot_at) FROM fintegrate.customer_snapshots
	`)
	if err != nil {
		return time.Time{}, err
	}
	if !wm.Valid {
		return time.Time{}, nil
	}
	return wm.Time, nil
}

func (r *snapshotsRepository) InsertBatch(ctx context.Context, snaps []model.CustomerSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	const q = `
		INSERT INTO fintegrate.customer_snapshots
		    (customer_id, tenant_id, name, status, total_events, tags_count,
		     last_event_time, account_age_days, snapshot_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, s := range snaps {
		if _, err := r.ch.ExecContext(ctx, q,
			s.CustomerID, s.TenantID, s.Name, s.Status, s.TotalEvents, s.TagsCount,
			s.LastEventTime, s.AccountAgeDays, s.SnapshotAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *snapshotsRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]model.CustomerSnapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT customer_id, tenant_id, name, status, total_events, tags_count,
		       last_event_time, account_age_days, snapshot_at
		FROM fintegrate.customer_snapshots
		WHERE tenant_id = ?
		ORDER BY snapshot_at DESC
		LIMIT ? OFFSET ?
	`
	var rows []model.CustomerSnapshot
	if err := r.ch.SelectContext(ctx, &rows, q, tenantID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
