package domain

import "time"

// SearchEvent is one executed search, recorded asynchronously for the
// tenant's history and audit trail.
type SearchEvent struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	UserID      string         `json:"user_id"`
	Query       string         `json:"query"`
	Strategy    SearchStrategy `json:"strategy"`
	Degraded    bool           `json:"degraded,omitempty"`
	ResultCount int            `json:"result_count"`
	SearchedAt  time.Time      `json:"searched_at"`
}
