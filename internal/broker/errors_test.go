package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/VytasKer/Fintegrate/internal/model"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason model.FailureReason
	}{
		{"deadline exceeded", context.DeadlineExceeded, model.ReasonTimeout},
		{"wrapped deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), model.ReasonTimeout},
		{"net timeout", &fakeNetError{timeout: true}, model.ReasonTimeout},
		{"net refused", &fakeNetError{timeout: false}, model.ReasonBrokerUnreachable},
		{"amqp connection forced", &amqp.Error{Code: amqp.ConnectionForced, Reason: "shutdown"}, model.ReasonBrokerUnreachable},
		{"amqp channel error", &amqp.Error{Code: amqp.ChannelError, Reason: "bad channel"}, model.ReasonBrokerUnreachable},
		{"amqp other", &amqp.Error{Code: amqp.NotFound, Reason: "no exchange"}, model.ReasonUnknown},
		{"closed connection", amqp.ErrClosed, model.ReasonBrokerUnreachable},
		{"anything else", errors.New("boom"), model.ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := classify(tt.err)
			assert.Equal(t, tt.reason, be.Reason)
			assert.ErrorIs(t, be, tt.err)
		})
	}
}

func TestReason(t *testing.T) {
	reason, detail := Reason(&Error{Reason: model.ReasonTimeout, Detail: "confirm wait"})
	assert.Equal(t, model.ReasonTimeout, reason)
	assert.Equal(t, "confirm wait", detail)

	reason, detail = Reason(fmt.Errorf("wrap: %w", &Error{Reason: model.ReasonBrokerUnreachable}))
	assert.Equal(t, model.ReasonBrokerUnreachable, reason)
	assert.Empty(t, detail)

	reason, detail = Reason(errors.New("bare"))
	assert.Equal(t, model.ReasonUnknown, reason)
	assert.Equal(t, "bare", detail)
}
