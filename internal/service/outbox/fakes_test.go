package outbox

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/repository"
)

type markCall struct {
	eventID  string
	tryCount int
	reason   string
	terminal bool
}

type fakeEventsRepo struct {
	records        map[string]*model.EventRecord
	publishPending []model.EventRecord
	deliverPending []model.EventRecord

	inserted        []*model.EventRecord
	published       []markCall // tryCount = publish try, reason unused
	publishedSeed   []int      // deliver_try_count seeded by MarkPublished
	publishFailed   []markCall
	deliverAttempts []markCall
	deliverFailed   []markCall
	delivered       []string
	rejected        []markCall
}

var _ repository.EventsRepository = (*fakeEventsRepo)(nil)

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{records: map[string]*model.EventRecord{}}
}

func (f *fakeEventsRepo) Insert(_ context.Context, _ *sqlx.Tx, rec *model.EventRecord) error {
	f.inserted = append(f.inserted, rec)
	f.records[rec.EventID] = rec
	return nil
}

func (f *fakeEventsRepo) GetByID(_ context.Context, eventID string) (*model.EventRecord, error) {
	return f.records[eventID], nil
}

func (f *fakeEventsRepo) ListPublishPending(_ context.Context, _, _ int, _ []string) ([]model.EventRecord, error) {
	return f.publishPending, nil
}

func (f *fakeEventsRepo) ListDeliverPending(_ context.Context, _, _ int, _ []string) ([]model.EventRecord, error) {
	return f.deliverPending, nil
}

func (f *fakeEventsRepo) MarkPublished(_ context.Context, eventID string, publishTryCount, deliverTryCount int) error {
	f.published = append(f.published, markCall{eventID: eventID, tryCount: publishTryCount})
	f.publishedSeed = append(f.publishedSeed, deliverTryCount)
	return nil
}

func (f *fakeEventsRepo) MarkPublishFailed(_ context.Context, eventID string, publishTryCount int, reason string, terminal bool) error {
	f.publishFailed = append(f.publishFailed, markCall{eventID: eventID, tryCount: publishTryCount, reason: reason, terminal: terminal})
	return nil
}

func (f *fakeEventsRepo) MarkDeliverAttempt(_ context.Context, eventID string, deliverTryCount int) error {
	f.deliverAttempts = append(f.deliverAttempts, markCall{eventID: eventID, tryCount: deliverTryCount})
	return nil
}

func (f *fakeEventsRepo) MarkDeliverFailed(_ context.Context, eventID string, deliverTryCount int, reason string, terminal bool) error {
	f.deliverFailed = append(f.deliverFailed, markCall{eventID: eventID, tryCount: deliverTryCount, reason: reason, terminal: terminal})
	return nil
}

// MarkDelivered and MarkDeliverRejected mirror the SQL: the deliver flip
// settles publish state in the same update.
func (f *fakeEventsRepo) MarkDelivered(_ context.Context, _ *sqlx.Tx, eventID string) error {
	f.delivered = append(f.delivered, eventID)
	if rec := f.records[eventID]; rec != nil {
		rec.PublishStatus = model.PublishPublished
		rec.DeliverStatus = model.DeliverDelivered
	}
	return nil
}

func (f *fakeEventsRepo) MarkDeliverRejected(_ context.Context, _ *sqlx.Tx, eventID, reason string) error {
	f.rejected = append(f.rejected, markCall{eventID: eventID, reason: reason})
	if rec := f.records[eventID]; rec != nil {
		rec.PublishStatus = model.PublishPublished
		rec.DeliverStatus = model.DeliverFailed
	}
	return nil
}

func (f *fakeEventsRepo) Health(_ context.Context) (repository.EventsHealth, error) {
	return repository.EventsHealth{}, nil
}

type fakeReceiptsRepo struct {
	existing  map[string]*model.DeliveryReceipt
	insertErr error
	inserted  []*model.DeliveryReceipt
}

var _ repository.ReceiptsRepository = (*fakeReceiptsRepo)(nil)

func newFakeReceiptsRepo() *fakeReceiptsRepo {
	return &fakeReceiptsRepo{existing: map[string]*model.DeliveryReceipt{}}
}

func (f *fakeReceiptsRepo) GetByEventID(_ context.Context, eventID string) (*model.DeliveryReceipt, error) {
	return f.existing[eventID], nil
}

func (f *fakeReceiptsRepo) Insert(_ context.Context, _ *sqlx.Tx, rcpt *model.DeliveryReceipt) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, rcpt)
	return nil
}

type fakePublisher struct {
	available bool
	errFn     func(env model.Envelope) error
	published []model.Envelope
}

func newFakePublisher() *fakePublisher { return &fakePublisher{available: true} }

func (f *fakePublisher) Publish(_ context.Context, env model.Envelope) error {
	if f.errFn != nil {
		if err := f.errFn(env); err != nil {
			return err
		}
	}
	f.published = append(f.published, env)
	return nil
}

func (f *fakePublisher) Available() bool { return f.available }
