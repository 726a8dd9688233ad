package service

import (
	"sort"
	"sync"

	"github.com/Strob0t/GroupWarden/internal/domain/member"
)

// RosterStore owns the tracked membership and admin sets for the watched
// group. All mutation goes through its methods; callers never touch shared
// collections directly.
type RosterStore struct {
	mu      sync.RWMutex
	members map[string]bool // id → isAdmin
}

// NewRosterStore creates an empty roster store.
func NewRosterStore() *RosterStore {
	return &RosterStore{members: make(map[string]bool)}
}

// Sync atomically replaces the full roster. Used on startup and on manual
// refresh. The admin set is derived from the same snapshot, so an admin can
// never exist outside the membership set.
func (r *RosterStore) Sync(members []member.Member) {
	next := make(map[string]bool, len(members))
	for _, m := range members {
		next[m.ID] = m.IsAdmin
	}

	r.mu.Lock()
	r.members = next
	r.mu.Unlock()
}

// AddMember adds or updates one member. Idempotent: re-adding an existing
// id updates its admin flag.
func (r *RosterStore) AddMember(id string, isAdmin bool) {
	r.mu.Lock()
	r.members[id] = isAdmin
	r.mu.Unlock()
}

// RemoveMember removes the id from both the membership and admin sets.
// Idempotent.
func (r *RosterStore) RemoveMember(id string) {
	r.mu.Lock()
	delete(r.members, id)
	r.mu.Unlock()
}

// IsMember reports whether the id is currently tracked.
func (r *RosterStore) IsMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// IsAdmin reports whether the id is a current group admin.
func (r *RosterStore) IsAdmin(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[id]
}

// AllAdmins returns the current admin ids, sorted for stable fan-out order.
func (r *RosterStore) AllAdmins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var admins []string
	for id, isAdmin := range r.members {
		if isAdmin {
			admins = append(admins, id)
		}
	}
	sort.Strings(admins)
	return admins
}

// Snapshot returns a read-only view for the admin API.
func (r *RosterStore) Snapshot() member.RosterSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := member.RosterSnapshot{Members: make([]member.Member, 0, len(r.members))}
	for id, isAdmin := range r.members {
		snap.Members = append(snap.Members, member.Member{ID: id, IsAdmin: isAdmin})
		if isAdmin {
			snap.Admins++
		}
	}
	snap.Total = len(snap.Members)
	sort.Slice(snap.Members, func(i, j int) bool { return snap.Members[i].ID < snap.Members[j].ID })
	return snap
}

// Counts returns the member and admin totals.
func (r *RosterStore) Counts() (total, admins int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total = len(r.members)
	for _, isAdmin := range r.members {
		if isAdmin {
			admins++
		}
	}
	return total, admins
}
