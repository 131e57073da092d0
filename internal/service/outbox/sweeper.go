package outbox

import (
	"context"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/metrics"
	"github.com/VytasKer/Fintegrate/internal/model"
)

// SweepParams bounds a sweep run. WindowDays defaults to 7; MaxTryCount <= 0
// and empty EventTypes disable those filters.
type SweepParams struct {
	WindowDays  int
	MaxTryCount int
	EventTypes  []string
}

func (p SweepParams) withDefaults() SweepParams {
	if p.WindowDays <= 0 {
		p.WindowDays = 7
	}
	return p
}

// FailedEvent is one per-record failure inside a sweep summary.
type FailedEvent struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// Summary is the structured result of one sweep run. Partial failure is not
// an error: counts plus per-failure detail come back instead.
type Summary struct {
	TotalPending int           `json:"total_pending"`
	Attempted    int           `json:"attempted"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	FailedEvents []FailedEvent `json:"failed_events"`
}

// Resend retries publishing for pending records inside the age window. Safe
// to run repeatedly and concurrently with normal traffic: each transition is
// a single-record update, and try counts are re-checked per record so a
// racing sweep at worst produces a harmless duplicate emission.
func (s *Service) Resend(ctx context.Context, params SweepParams) (Summary, error) {
	params = params.withDefaults()

	recs, err := s.events.ListPublishPending(ctx, params.WindowDays, params.MaxTryCount, params.EventTypes)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{TotalPending: len(recs), FailedEvents: []FailedEvent{}}

	if !s.pub.Available() {
		sum.Skipped = len(recs)
		metrics.SweepsTotal.WithLabelValues("resend", "skipped").Add(float64(len(recs)))
		s.log.Warn("resend sweep skipped, publisher unavailable")
		return sum, nil
	}

	for i, rec := range recs {
		if params.MaxTryCount > 0 && rec.PublishTryCount >= params.MaxTryCount {
			sum.Skipped++
			continue
		}

		tryCount := rec.PublishTryCount + 1
		err := s.pub.Publish(ctx, s.envelopeFor(&rec))
		if err != nil {
			reason, detail := broker.Reason(err)
			if reason == model.ReasonPublisherUnavailable {
				// broker went away mid-run: skip this record and the rest
				sum.Skipped += len(recs) - i
				break
			}
			sum.Attempted++
			sum.Failed++
			sum.FailedEvents = append(sum.FailedEvents, FailedEvent{EventID: rec.EventID, Reason: reason.String(), Detail: detail})
			metrics.SweepsTotal.WithLabelValues("resend", "failed").Inc()

			terminal := tryCount >= model.MaxTryCount
			if dbErr := s.events.MarkPublishFailed(ctx, rec.EventID, tryCount, reason.String(), terminal); dbErr != nil {
				return sum, dbErr
			}
			continue
		}

		sum.Attempted++
		if dbErr := s.events.MarkPublished(ctx, rec.EventID, tryCount, 1); dbErr != nil {
			return sum, dbErr
		}
		sum.Succeeded++
		metrics.SweepsTotal.WithLabelValues("resend", "succeeded").Inc()
	}
	return sum, nil
}

// Redeliver re-emits records that were published but never confirmed
// delivered, oldest first. A redelivery is a fresh broker emission through
// the same publish path; delivered state itself is only ever set by the
// receipt tracker.
func (s *Service) Redeliver(ctx context.Context, params SweepParams) (Summary, error) {
	params = params.withDefaults()

	recs, err := s.events.ListDeliverPending(ctx, params.WindowDays, params.MaxTryCount, params.EventTypes)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{TotalPending: len(recs), FailedEvents: []FailedEvent{}}

	if !s.pub.Available() {
		sum.Skipped = len(recs)
		metrics.SweepsTotal.WithLabelValues("redeliver", "skipped").Add(float64(len(recs)))
		s.log.Warn("redeliver sweep skipped, publisher unavailable")
		return sum, nil
	}

	for i, rec := range recs {
		if params.MaxTryCount > 0 && rec.DeliverTryCount >= params.MaxTryCount {
			sum.Skipped++
			continue
		}

		tryCount := rec.DeliverTryCount + 1
		err := s.pub.Publish(ctx, s.envelopeFor(&rec))
		if err != nil {
			reason, detail := broker.Reason(err)
			if reason == model.ReasonPublisherUnavailable {
				sum.Skipped += len(recs) - i
				break
			}
			sum.Attempted++
			sum.Failed++
			sum.FailedEvents = append(sum.FailedEvents, FailedEvent{EventID: rec.EventID, Reason: reason.String(), Detail: detail})
			metrics.SweepsTotal.WithLabelValues("redeliver", "failed").Inc()

			terminal := tryCount >= model.MaxTryCount
			if dbErr := s.events.MarkDeliverFailed(ctx, rec.EventID, tryCount, reason.String(), terminal); dbErr != nil {
				return sum, dbErr
			}
			continue
		}

		sum.Attempted++
		if dbErr := s.events.MarkDeliverAttempt(ctx, rec.EventID, tryCount); dbErr != nil {
			return sum, dbErr
		}
		sum.Succeeded++
		metrics.SweepsTotal.WithLabelValues("redeliver", "succeeded").Inc()
	}
	return sum, nil
}
