package customer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/repository"
	"github.com/VytasKer/Fintegrate/internal/service/outbox"
)

type fakeCustomersRepo struct {
	byID map[string]*model.Customer
}

var _ repository.CustomersRepository = (*fakeCustomersRepo)(nil)

func newFakeCustomersRepo() *fakeCustomersRepo {
	return &fakeCustomersRepo{byID: map[string]*model.Customer{}}
}

func (f *fakeCustomersRepo) Insert(_ context.Context, _ *sqlx.Tx, c *model.Customer) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCustomersRepo) GetByID(_ context.Context, tenantID, customerID string) (*model.Customer, error) {
	c := f.byID[customerID]
	if c == nil || c.TenantID != tenantID {
		return nil, nil
	}
	return c, nil
}

func (f *fakeCustomersRepo) Delete(_ context.Context, _ *sqlx.Tx, tenantID, customerID string) (bool, error) {
	c := f.byID[customerID]
	if c == nil || c.TenantID != tenantID {
		return false, nil
	}
	delete(f.byID, customerID)
	return true, nil
}

func (f *fakeCustomersRepo) UpdateStatus(_ context.Context, _ *sqlx.Tx, tenantID, customerID string, status model.CustomerStatus) error {
	if c := f.byID[customerID]; c != nil && c.TenantID == tenantID {
		c.Status = status
	}
	return nil
}

type fakeTagsRepo struct {
	byKey map[string]*model.CustomerTag // customerID + "/" + key
}

var _ repository.TagsRepository = (*fakeTagsRepo)(nil)

func newFakeTagsRepo() *fakeTagsRepo {
	return &fakeTagsRepo{byKey: map[string]*model.CustomerTag{}}
}

func (f *fakeTagsRepo) Upsert(_ context.Context, _ *sqlx.Tx, tag *model.CustomerTag) error {
	f.byKey[tag.CustomerID+"/"+tag.TagKey] = tag
	return nil
}

func (f *fakeTagsRepo) Get(_ context.Context, customerID, tagKey string) (*model.CustomerTag, error) {
	return f.byKey[customerID+"/"+tagKey], nil
}

func (f *fakeTagsRepo) ListByCustomer(_ context.Context, customerID string) ([]model.CustomerTag, error) {
	var out []model.CustomerTag
	for _, t := range f.byKey {
		if t.CustomerID == customerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTagsRepo) Delete(_ context.Context, _ *sqlx.Tx, customerID, tagKey string) (bool, error) {
	k := customerID + "/" + tagKey
	if _, ok := f.byKey[k]; !ok {
		return false, nil
	}
	delete(f.byKey, k)
	return true, nil
}

func (f *fakeTagsRepo) DeleteAll(_ context.Context, _ *sqlx.Tx, customerID string) (int64, error) {
	var n int64
	for k, t := range f.byKey {
		if t.CustomerID == customerID {
			delete(f.byKey, k)
			n++
		}
	}
	return n, nil
}

// recordingEventsRepo captures outbox inserts; sweep selection is not
// exercised here.
type recordingEventsRepo struct {
	repository.EventsRepository
	inserted  []*model.EventRecord
	published []string
	failed    []string
}

func (f *recordingEventsRepo) Insert(_ context.Context, _ *sqlx.Tx, rec *model.EventRecord) error {
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *recordingEventsRepo) MarkPublished(_ context.Context, eventID string, _, _ int) error {
	f.published = append(f.published, eventID)
	return nil
}

func (f *recordingEventsRepo) MarkPublishFailed(_ context.Context, eventID string, _ int, _ string, _ bool) error {
	f.failed = append(f.failed, eventID)
	return nil
}

type stubPublisher struct {
	err       error
	published int
}

func (p *stubPublisher) Publish(context.Context, model.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published++
	return nil
}

func (p *stubPublisher) Available() bool { return true }

type stubChecker struct {
	sanctioned bool
	err        error
}

func (c stubChecker) Check(context.Context, string) (bool, error) { return c.sanctioned, c.err }

type fixture struct {
	svc       *Service
	customers *fakeCustomersRepo
	tags      *fakeTagsRepo
	events    *recordingEventsRepo
	pub       *stubPublisher
}

func newFixture(checker stubChecker) *fixture {
	f := &fixture{
		customers: newFakeCustomersRepo(),
		tags:      newFakeTagsRepo(),
		events:    &recordingEventsRepo{},
		pub:       &stubPublisher{},
	}
	outboxSvc := outbox.New(nil, f.events, nil, f.pub, nil)
	f.svc = New(nil, f.customers, f.tags, outboxSvc, checker, nil)
	return f
}

func lastEventData(t *testing.T, rec *model.EventRecord) map[string]string {
	t.Helper()
	var data map[string]string
	require.NoError(t, json.Unmarshal(rec.Payload, &data))
	return data
}

func TestCreateRecordsAndPublishesEvent(t *testing.T) {
	f := newFixture(stubChecker{})

	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	assert.Equal(t, model.CustomerActive, cust.Status)
	assert.NotNil(t, f.customers.byID[cust.ID])

	require.Len(t, f.events.inserted, 1)
	rec := f.events.inserted[0]
	assert.Equal(t, EventCustomerCreated, rec.EventType)
	assert.Equal(t, cust.ID, rec.SubjectID)
	data := lastEventData(t, rec)
	assert.Equal(t, cust.ID, data["customer_id"])
	assert.Equal(t, "Jane Doe", data["name"])
	assert.Equal(t, "ACTIVE", data["status"])

	assert.Equal(t, 1, f.pub.published)
	assert.Equal(t, []string{rec.EventID}, f.events.published)
}

func TestCreateBlocksSanctionedName(t *testing.T) {
	f := newFixture(stubChecker{sanctioned: true})

	cust, err := f.svc.Create(context.Background(), "T-ACME", "Bad Actor")
	require.NoError(t, err)

	assert.Equal(t, model.CustomerBlocked, cust.Status)
	data := lastEventData(t, f.events.inserted[0])
	assert.Equal(t, "BLOCKED", data["status"])
}

func TestCreateFailsOpenOnScreeningOutage(t *testing.T) {
	f := newFixture(stubChecker{err: errors.New("screening down")})

	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, model.CustomerActive, cust.Status)
}

func TestCreateSucceedsWhenBrokerDown(t *testing.T) {
	f := newFixture(stubChecker{})
	f.pub.err = errors.New("dial tcp: refused")

	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	// the customer and outbox record exist; the publish failure was recorded
	// for the resend sweeper
	assert.NotNil(t, f.customers.byID[cust.ID])
	require.Len(t, f.events.inserted, 1)
	assert.Empty(t, f.events.published)
	assert.Len(t, f.events.failed, 1)
}

func TestChangeStatusConflict(t *testing.T) {
	f := newFixture(stubChecker{})
	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), "T-ACME", cust.ID, model.CustomerActive)
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestChangeStatusRecordsPreviousStatus(t *testing.T) {
	f := newFixture(stubChecker{})
	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	updated, err := f.svc.ChangeStatus(context.Background(), "T-ACME", cust.ID, model.CustomerInactive)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerInactive, updated.Status)

	require.Len(t, f.events.inserted, 2)
	rec := f.events.inserted[1]
	assert.Equal(t, EventCustomerStatusChanged, rec.EventType)
	data := lastEventData(t, rec)
	assert.Equal(t, "INACTIVE", data["status"])
	assert.Equal(t, "ACTIVE", data["previous_status"])
}

func TestDeleteRemovesTagsAndEmitsEvent(t *testing.T) {
	f := newFixture(stubChecker{})
	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)
	_, err = f.svc.SetTag(context.Background(), "T-ACME", cust.ID, "segment", "gold")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), "T-ACME", cust.ID))

	assert.Nil(t, f.customers.byID[cust.ID])
	assert.Empty(t, f.tags.byKey)
	require.Len(t, f.events.inserted, 2)
	assert.Equal(t, EventCustomerDeleted, f.events.inserted[1].EventType)
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(stubChecker{})
	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "T-OTHER", cust.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.svc.Delete(context.Background(), "T-OTHER", cust.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SetTag(context.Background(), "T-OTHER", cust.ID, "k", "v")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTagMissing(t *testing.T) {
	f := newFixture(stubChecker{})
	cust, err := f.svc.Create(context.Background(), "T-ACME", "Jane Doe")
	require.NoError(t, err)

	err = f.svc.DeleteTag(context.Background(), "T-ACME", cust.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
