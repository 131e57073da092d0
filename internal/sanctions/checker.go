package sanctions

import "context"

// Checker is the narrow contract to the AML screening service. Check returns
// true when the given name matches the sanctions list. Callers decide what an
// error means; the customer service fails open (a screening outage does not
// block onboarding), which mirrors the screening service's own documented
// behavior when its source list is unavailable.
type Checker interface {
	Check(ctx context.Context, name string) (bool, error)
}

// Noop never matches. Used in dev and tests, and whenever no screening
// service is configured.
type Noop struct{}

func (Noop) Check(context.Context, string) (bool, error) { return false, nil }
