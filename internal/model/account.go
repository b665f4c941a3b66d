package model

import "time"

// TrackedAccount is an upstream account whose posts are ingested,
// either on demand or on the scheduler's cron cadence.
type TrackedAccount struct {
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
