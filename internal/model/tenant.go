package model

import "time"

// Tenant is an isolated owner of customers and event streams. API requests
// authenticate as a tenant via X-API-Key.
type Tenant struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	APIKey       string    `db:"api_key"`
	Status       string    `db:"status"`         // active|suspended
	RateLimitRPS *int      `db:"rate_limit_rps"` // nullable
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
