package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// Error is a publish failure carrying its closed classification, so callers
// can store a queryable failure_reason instead of a stringified exception.
type Error struct {
	Reason model.FailureReason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return string(e.Reason) + ": " + e.Detail
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason extracts the failure classification from a publish error. Any error
// that is not a *broker.Error maps to unknown.
func Reason(err error) (model.FailureReason, string) {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason, be.Detail
	}
	if err != nil {
		return model.ReasonUnknown, err.Error()
	}
	return model.ReasonUnknown, ""
}

// classify wraps an underlying broker error with its failure reason.
func classify(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Reason: model.ReasonTimeout, Detail: err.Error(), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Reason: model.ReasonTimeout, Detail: err.Error(), Err: err}
		}
		return &Error{Reason: model.ReasonBrokerUnreachable, Detail: err.Error(), Err: err}
	}

	var jsonErr *json.MarshalerError
	if errors.As(err, &jsonErr) {
		return &Error{Reason: model.ReasonSerializationError, Detail: err.Error(), Err: err}
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		// connection-level close codes mean the broker went away mid-flight
		if amqpErr.Code == amqp.ConnectionForced || amqpErr.Code == amqp.ChannelError {
			return &Error{Reason: model.ReasonBrokerUnreachable, Detail: amqpErr.Reason, Err: err}
		}
		return &Error{Reason: model.ReasonUnknown, Detail: amqpErr.Reason, Err: err}
	}

	if errors.Is(err, amqp.ErrClosed) {
		return &Error{Reason: model.ReasonBrokerUnreachable, Detail: err.Error(), Err: err}
	}

	return &Error{Reason: model.ReasonUnknown, Detail: err.Error(), Err: err}
}
