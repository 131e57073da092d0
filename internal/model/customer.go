package model

import (
	"strings"
	"time"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "ACTIVE"
	CustomerInactive CustomerStatus = "INACTIVE"
	CustomerBlocked  CustomerStatus = "BLOCKED" // sanctions hit
)

func (s CustomerStatus) String() string { return string(s) }

func (s CustomerStatus) Valid() bool {
	return s == CustomerActive || s == CustomerInactive || s == CustomerBlocked
}

// ParseCustomerStatus accepts ACTIVE/INACTIVE in any case. BLOCKED is set
// only by the sanctions check, never via the API.
func ParseCustomerStatus(s string) (CustomerStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE":
		return CustomerActive, true
	case "INACTIVE":
		return CustomerInactive, true
	default:
		return CustomerActive, false
	}
}

// Customer is a business entity owned by a tenant.
type Customer struct {
	ID        string         `db:"id"` // ULID
	TenantID  string         `db:"tenant_id"`
	Name      string         `db:"name"`
	Status    CustomerStatus `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// CustomerTag is a key/value annotation on a customer, unique per
// (customer_id, tag_key).
type CustomerTag struct {
	CustomerID string    `db:"customer_id"`
	TagKey     string    `db:"tag_key"`
	TagValue   string    `db:"tag_value"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
