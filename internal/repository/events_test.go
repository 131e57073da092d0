package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VytasKer/Fintegrate/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "mysql"), mock
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"event_id", "tenant_id", "subject_id", "event_type", "payload", "metadata", "created_at",
		"publish_status", "published_at", "publish_try_count", "publish_last_tried_at", "publish_failure_reason",
		"deliver_status", "delivered_at", "deliver_try_count", "deliver_last_tried_at", "deliver_failure_reason",
	})
}

func TestListPublishPendingAppliesAllFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepository(db)

	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT .*FROM event_records.*` +
		`WHERE publish_status = 'pending'.*` +
		`AND created_at > NOW\(\) - INTERVAL \? DAY.*` +
		`AND publish_try_count < \?.*` +
		`AND event_type IN \(\?, \?\).*` +
		`ORDER BY created_at ASC`).
		WithArgs(14, 10, "customer_created", "customer_updated").
		WillReturnRows(eventRows().AddRow(
			"E1", "T-ACME", "C1", "customer_created", []byte(`{}`), []byte(`{}`), created,
			"pending", nil, 3, created, nil,
			"pending", nil, 0, nil, nil,
		))

	rows, err := repo.ListPublishPending(context.Background(), 14, 10, []string{"customer_created", "customer_updated"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "E1", rows[0].EventID)
	assert.Equal(t, model.PublishPending, rows[0].PublishStatus)
	assert.Equal(t, 3, rows[0].PublishTryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPublishPendingWindowOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepository(db)

	// maxTryCount <= 0 and no event types: the window predicate runs
	// straight into ORDER BY, no optional filters, one bind arg
	mock.ExpectQuery(`(?s)WHERE publish_status = 'pending'\s+` +
		`AND created_at > NOW\(\) - INTERVAL \? DAY\s+ORDER BY created_at ASC`).
		WithArgs(30).
		WillReturnRows(eventRows())

	rows, err := repo.ListPublishPending(context.Background(), 30, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeliverPendingRequiresPublished(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepository(db)

	created := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	published := created.Add(time.Second)
	mock.ExpectQuery(`(?s)WHERE publish_status = 'published'\s+` +
		`AND deliver_status = 'pending'\s+` +
		`AND created_at > NOW\(\) - INTERVAL \? DAY.*` +
		`AND deliver_try_count < \?.*` +
		`ORDER BY created_at ASC`).
		WithArgs(14, 10).
		WillReturnRows(eventRows().AddRow(
			"E2", "T-ACME", "C2", "customer_updated", []byte(`{}`), []byte(`{}`), created,
			"published", published, 1, published, nil,
			"pending", nil, 1, published, nil,
		))

	rows, err := repo.ListDeliverPending(context.Background(), 14, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "E2", rows[0].EventID)
	assert.Equal(t, model.PublishPublished, rows[0].PublishStatus)
	assert.Equal(t, model.DeliverPending, rows[0].DeliverStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeliverPendingExpandsEventTypes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepository(db)

	mock.ExpectQuery(`(?s)WHERE publish_status = 'published'.*` +
		`AND event_type IN \(\?, \?, \?\)`).
		WithArgs(7, "a", "b", "c").
		WillReturnRows(eventRows())

	_, err := repo.ListDeliverPending(context.Background(), 7, 0, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeliveredSettlesPublishState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE event_records\s+` +
		`SET publish_status = 'published',\s+` +
		`published_at = COALESCE\(published_at, NOW\(\)\),.*` +
		`deliver_status = 'delivered',`).
		WithArgs("E1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkDelivered(context.Background(), nil, "E1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
