package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/model"
)

func newTestService(events *fakeEventsRepo, receipts *fakeReceiptsRepo, pub *fakePublisher) *Service {
	return New(nil, events, receipts, pub, nil)
}

func TestRecordInsertsPendingRecord(t *testing.T) {
	events := newFakeEventsRepo()
	svc := newTestService(events, newFakeReceiptsRepo(), newFakePublisher())

	payload := map[string]string{"customer_id": "C1", "name": "Acme", "status": "ACTIVE"}
	rec, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", payload, nil)
	require.NoError(t, err)
	require.Len(t, events.inserted, 1)

	assert.NotEmpty(t, rec.EventID)
	assert.Equal(t, "T-ACME", rec.TenantID)
	assert.Equal(t, "C1", rec.SubjectID)
	assert.Equal(t, "customer_created", rec.EventType)
	assert.Equal(t, model.PublishPending, rec.PublishStatus)
	assert.Equal(t, 1, rec.PublishTryCount)
	assert.Equal(t, model.DeliverPending, rec.DeliverStatus)
	assert.Equal(t, 0, rec.DeliverTryCount)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Payload, &got))
	assert.Equal(t, payload, got)
}

func TestRecordStampsCreationTime(t *testing.T) {
	events := newFakeEventsRepo()
	pub := newFakePublisher()
	svc := newTestService(events, newFakeReceiptsRepo(), pub)

	rec, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", map[string]string{}, nil)
	require.NoError(t, err)

	assert.False(t, rec.CreatedAt.IsZero())
	require.NotNil(t, rec.PublishLastTriedAt)
	assert.Equal(t, rec.CreatedAt, *rec.PublishLastTriedAt)

	// the first publish builds its envelope from the in-memory record, so
	// the stamp must be on the struct, not only in the database row
	svc.PublishRecorded(context.Background(), rec)
	require.Len(t, pub.published, 1)
	assert.False(t, pub.published[0].Metadata.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, pub.published[0].Metadata.CreatedAt)
}

func TestRecordRejectsUnmarshalablePayload(t *testing.T) {
	svc := newTestService(newFakeEventsRepo(), newFakeReceiptsRepo(), newFakePublisher())

	_, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", make(chan int), nil)
	assert.Error(t, err)
}

func TestPublishRecordedSuccess(t *testing.T) {
	events := newFakeEventsRepo()
	pub := newFakePublisher()
	svc := newTestService(events, newFakeReceiptsRepo(), pub)

	rec, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)

	svc.PublishRecorded(context.Background(), rec)

	require.Len(t, pub.published, 1)
	env := pub.published[0]
	assert.Equal(t, rec.EventID, env.EventID)
	assert.Equal(t, "customer_created", env.EventType)
	assert.Equal(t, "T-ACME", env.Metadata.TenantID)

	// success flips publish state and seeds the first delivery attempt
	require.Len(t, events.published, 1)
	assert.Equal(t, rec.EventID, events.published[0].eventID)
	assert.Equal(t, 1, events.published[0].tryCount)
	assert.Equal(t, []int{1}, events.publishedSeed)
}

func TestPublishRecordedFailureStaysPending(t *testing.T) {
	events := newFakeEventsRepo()
	pub := newFakePublisher()
	pub.errFn = func(model.Envelope) error {
		return &broker.Error{Reason: model.ReasonBrokerUnreachable, Detail: "dial tcp: refused"}
	}
	svc := newTestService(events, newFakeReceiptsRepo(), pub)

	rec, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)

	svc.PublishRecorded(context.Background(), rec)

	assert.Empty(t, events.published)
	require.Len(t, events.publishFailed, 1)
	call := events.publishFailed[0]
	assert.Equal(t, rec.EventID, call.eventID)
	// the failed first attempt keeps try count at 1: the insert already
	// counted it
	assert.Equal(t, 1, call.tryCount)
	assert.Equal(t, model.ReasonBrokerUnreachable.String(), call.reason)
	assert.False(t, call.terminal)
}

func TestPublishRecordedUnknownErrorClassified(t *testing.T) {
	events := newFakeEventsRepo()
	pub := newFakePublisher()
	pub.errFn = func(model.Envelope) error { return errors.New("weird") }
	svc := newTestService(events, newFakeReceiptsRepo(), pub)

	rec, err := svc.Record(context.Background(), nil, "T-ACME", "C1", "customer_created", map[string]string{}, nil)
	require.NoError(t, err)

	svc.PublishRecorded(context.Background(), rec)

	require.Len(t, events.publishFailed, 1)
	assert.Equal(t, model.ReasonUnknown.String(), events.publishFailed[0].reason)
}
