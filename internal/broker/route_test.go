package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteKeys(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		key     string
		dlqKey  string
		bindKey string
	}{
		{
			name:    "created event",
			route:   Route{TenantID: "T-ACME", EventType: "customer_created"},
			key:     "customer.created.T-ACME",
			dlqKey:  "customer.dlq.T-ACME",
			bindKey: "customer.#.T-ACME",
		},
		{
			name:    "multi underscore action",
			route:   Route{TenantID: "T-ACME", EventType: "customer_status_changed"},
			key:     "customer.status_changed.T-ACME",
			dlqKey:  "customer.dlq.T-ACME",
			bindKey: "customer.#.T-ACME",
		},
		{
			name:    "no underscore falls back to generic action",
			route:   Route{TenantID: "T-X", EventType: "heartbeat"},
			key:     "heartbeat.event.T-X",
			dlqKey:  "heartbeat.dlq.T-X",
			bindKey: "heartbeat.#.T-X",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.route.Key())
			assert.Equal(t, tt.dlqKey, tt.route.DLQKey())
			assert.Equal(t, tt.bindKey, tt.route.BindingKey())
		})
	}
}

func TestQueueNames(t *testing.T) {
	assert.Equal(t, "customer_events_T-ACME", QueueName("customer_events", "T-ACME"))
	assert.Equal(t, "customer_events_T-ACME_DLQ", DLQName("customer_events", "T-ACME"))
}
