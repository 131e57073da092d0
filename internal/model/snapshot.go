package model

import "time"

// CustomerSnapshot is a point-in-time analytics row written to ClickHouse by
// the snapshot batch job. Multiple snapshots per customer track change over
// time; readers usually want the latest per customer.
type CustomerSnapshot struct {
	CustomerID     string     `db:"customer_id"`
	TenantID       string     `db:"tenant_id"`
	Name           string     `db:"name"`
	Status         string     `db:"status"`
	TotalEvents    int64      `db:"total_events"`
	TagsCount      int64      `db:"tags_count"`
	LastEventTime  *time.Time `db:"last_event_time"`
	AccountAgeDays int64      `db:"account_age_days"`
	SnapshotAt     time.Time  `db:"snapshot_at"`
}
