package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCustomerStatus(t *testing.T) {
	tests := []struct {
		in   string
		want CustomerStatus
		ok   bool
	}{
		{"ACTIVE", CustomerActive, true},
		{"active", CustomerActive, true},
		{" Inactive ", CustomerInactive, true},
		{"BLOCKED", CustomerActive, false}, // never settable via API
		{"", CustomerActive, false},
		{"deleted", CustomerActive, false},
	}
	for _, tt := range tests {
		got, ok := ParseCustomerStatus(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, PublishPending.Valid())
	assert.True(t, PublishPublished.Valid())
	assert.True(t, PublishFailed.Valid())
	assert.False(t, PublishStatus("delivered").Valid())

	assert.True(t, DeliverDelivered.Valid())
	assert.False(t, DeliverStatus("published").Valid())

	assert.True(t, ProcessingReceived.Valid())
	assert.True(t, ProcessingProcessed.Valid())
	assert.True(t, ProcessingFailed.Valid())
	assert.False(t, ProcessingStatus("").Valid())
}

func TestFailureReason(t *testing.T) {
	for _, r := range []FailureReason{
		ReasonBrokerUnreachable, ReasonTimeout, ReasonSerializationError,
		ReasonPublisherUnavailable, ReasonUnknown,
	} {
		assert.True(t, r.Valid())
	}
	assert.False(t, FailureReason("oops").Valid())

	assert.Equal(t, "timeout", ReasonTimeout.Format(""))
	assert.Equal(t, "timeout: confirm wait", ReasonTimeout.Format("confirm wait"))
}
