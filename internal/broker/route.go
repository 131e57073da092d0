package broker

import "strings"

// Route derives the tenant-scoped names used on the broker for one event.
//
// Routing keys follow `<domain>.<action>.<tenant>`: the event type's first
// underscore splits domain from action ("customer_status_changed" becomes
// "customer.status_changed"). Dead-letter keys use the reserved action "dlq"
// so poison messages stay inside the owning tenant's topology.
type Route struct {
	TenantID  string
	EventType string
}

// Key returns the routing key for the event, e.g. "customer.created.acme".
func (r Route) Key() string {
	domain, action := splitEventType(r.EventType)
	return domain + "." + action + "." + r.TenantID
}

// DLQKey returns the tenant's dead-letter routing key, e.g. "customer.dlq.acme".
func (r Route) DLQKey() string {
	domain, _ := splitEventType(r.EventType)
	return domain + ".dlq." + r.TenantID
}

// BindingKey matches every event routed to the tenant regardless of action.
func (r Route) BindingKey() string {
	domain, _ := splitEventType(r.EventType)
	return domain + ".#." + r.TenantID
}

// QueueName is `<prefix>_<tenant>`.
func QueueName(prefix, tenantID string) string {
	return prefix + "_" + tenantID
}

// DLQName is `<prefix>_<tenant>_DLQ`.
func DLQName(prefix, tenantID string) string {
	return QueueName(prefix, tenantID) + "_DLQ"
}

func splitEventType(eventType string) (domain, action string) {
	domain, action, ok := strings.Cut(eventType, "_")
	if !ok {
		return eventType, "event"
	}
	return domain, action
}
