// Package members implements member listing, search, role management,
// and per-JID enrichment (C6).
package members

import "time"

// Role is a member's administrative privilege level.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Member is a persisted workspace member row.
type Member struct {
	JID       string
	Role      Role
	CreatedAt time.Time
}

// EnrichedMember adds the per-JID enrichment fields, each independently
// cached and independently absent if its backing lookup failed or has
// not completed yet.
type EnrichedMember struct {
	JID      string
	Role     Role
	Online   *bool
	Nickname *string
	Avatar   *string
}

// Page is a single page of a listing or search result.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalItems int
}
