// Package member defines domain types for group membership tracking.
package member

// Member is a single tracked group participant. The ID is the transport's
// opaque identifier (e.g. "972501234567@c.us" for WhatsApp).
type Member struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"is_admin"`
}

// RosterSnapshot is a read-only view of the current roster, as exposed by
// the roster store's query side.
type RosterSnapshot struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
	Admins  int      `json:"admins"`
}
