package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/metrics"
	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/repository"
	"github.com/VytasKer/Fintegrate/internal/util"
)

// ErrEventNotFound is returned by Confirm when the event_id is unknown.
var ErrEventNotFound = errors.New("event record not found")

// Publisher is the broker-facing contract. A nil error means the broker
// acknowledged acceptance of the message. Available reports whether an
// attempt is worth making at all (circuit open = unavailable).
type Publisher interface {
	Publish(ctx context.Context, env model.Envelope) error
	Available() bool
}

// Service owns the outbox state machine: recording events in the business
// transaction, publishing them to the broker, sweeping stragglers, and
// tracking consumer delivery receipts.
type Service struct {
	db       *sqlx.DB
	events   repository.EventsRepository
	receipts repository.ReceiptsRepository
	pub      Publisher
	log      *zap.Logger
}

func New(
	db *sqlx.DB,
	eventsRepo repository.EventsRepository,
	receiptsRepo repository.ReceiptsRepository,
	pub Publisher,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		events:   eventsRepo,
		receipts: receiptsRepo,
		pub:      pub,
		log:      log,
	}
}

// Record inserts a pending event record inside the caller's transaction, so
// the event commits (or rolls back) atomically with the business mutation.
// It never touches the broker and so cannot fail on broker unavailability.
func (s *Service) Record(ctx context.Context, tx *sqlx.Tx, tenantID, subjectID, eventType string, payload, metadata any) (*model.EventRecord, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	var metadataJSON json.RawMessage
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal event metadata: %w", err)
		}
	}

	// stamp creation here, not with NOW() in SQL: the first publish attempt
	// builds its wire envelope from this struct without re-reading the row
	now := time.Now().UTC()
	rec := &model.EventRecord{
		EventID:            util.New(),
		TenantID:           tenantID,
		SubjectID:          subjectID,
		EventType:          eventType,
		Payload:            payloadJSON,
		Metadata:           metadataJSON,
		CreatedAt:          now,
		PublishStatus:      model.PublishPending,
		PublishTryCount:    1,
		PublishLastTriedAt: &now,
		DeliverStatus:      model.DeliverPending,
		DeliverTryCount:    0,
	}
	if err := s.events.Insert(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("insert event record: %w", err)
	}

	metrics.EventsTotal.WithLabelValues("recorded", eventType).Inc()

	return rec, nil
}

// PublishRecorded makes the first publish attempt for a freshly committed
// record and applies the state-update contract. Failures are recorded, never
// returned: the triggering business operation's success is independent of
// broker availability.
func (s *Service) PublishRecorded(ctx context.Context, rec *model.EventRecord) {
	err := s.pub.Publish(ctx, s.envelopeFor(rec))
	if err != nil {
		reason, detail := broker.Reason(err)
		// first attempt: try count stays at its initial value of 1
		if dbErr := s.events.MarkPublishFailed(ctx, rec.EventID, rec.PublishTryCount, reason.String(), false); dbErr != nil {
			s.log.Error("record publish failure", zap.String("event_id", rec.EventID), zap.Error(dbErr))
		}
		metrics.EventsTotal.WithLabelValues("publish_failed", rec.EventType).Inc()
		s.log.Warn("event publish failed, left pending for resend",
			zap.String("event_id", rec.EventID),
			zap.String("reason", reason.String()),
			zap.String("detail", detail))
		return
	}

	if dbErr := s.events.MarkPublished(ctx, rec.EventID, rec.PublishTryCount, 1); dbErr != nil {
		s.log.Error("mark published", zap.String("event_id", rec.EventID), zap.Error(dbErr))
		return
	}
	metrics.EventsTotal.WithLabelValues("published", rec.EventType).Inc()
}

// Health reports publish-state counts for the monitoring endpoint.
func (s *Service) Health(ctx context.Context) (repository.EventsHealth, error) {
	return s.events.Health(ctx)
}

func (s *Service) envelopeFor(rec *model.EventRecord) model.Envelope {
	return model.Envelope{
		EventID:   rec.EventID,
		EventType: rec.EventType,
		Data:      rec.Payload,
		Metadata: model.EnvelopeMetadata{
			CreatedAt: rec.CreatedAt,
			TenantID:  rec.TenantID,
		},
	}
}
