package model

// FailureReason is a closed classification of publish/delivery failures.
// The free-text detail travels alongside it so reasons stay queryable.
type FailureReason string

const (
	ReasonBrokerUnreachable    FailureReason = "broker_unreachable"
	ReasonTimeout              FailureReason = "timeout"
	ReasonSerializationError   FailureReason = "serialization_error"
	ReasonPublisherUnavailable FailureReason = "publisher_unavailable"
	ReasonUnknown              FailureReason = "unknown"
)

func (r FailureReason) String() string { return string(r) }

func (r FailureReason) Valid() bool {
	switch r {
	case ReasonBrokerUnreachable, ReasonTimeout, ReasonSerializationError,
		ReasonPublisherUnavailable, ReasonUnknown:
		return true
	}
	return false
}

// Format renders "reason: detail" for storage in the failure_reason columns.
func (r FailureReason) Format(detail string) string {
	if detail == "" {
		return string(r)
	}
	return string(r) + ": " + detail
}
