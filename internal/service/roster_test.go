package service

import (
	"testing"

	"github.com/Strob0t/GroupWarden/internal/domain/member"
)

func TestSyncReplacesRoster(t *testing.T) {
	r := NewRosterStore()
	r.AddMember("stale@c.us", true)

	r.Sync([]member.Member{
		{ID: "a@c.us", IsAdmin: true},
		{ID: "b@c.us", IsAdmin: false},
	})

	if r.IsMember("stale@c.us") {
		t.Error("stale member survived sync")
	}
	if !r.IsAdmin("a@c.us") || r.IsAdmin("b@c.us") {
		t.Error("admin flags wrong after sync")
	}
	total, admins := r.Counts()
	if total != 2 || admins != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", total, admins)
	}
}

func TestAddMemberIdempotent(t *testing.T) {
	r := NewRosterStore()

	r.AddMember("a@c.us", false)
	r.AddMember("a@c.us", false)
	if total, _ := r.Counts(); total != 1 {
		t.Errorf("total = %d, want 1", total)
	}

	// Re-adding with a new flag updates it.
	r.AddMember("a@c.us", true)
	if !r.IsAdmin("a@c.us") {
		t.Error("admin promotion lost")
	}
}

func TestRemoveMemberClearsAdmin(t *testing.T) {
	r := NewRosterStore()
	r.AddMember("a@c.us", true)

	r.RemoveMember("a@c.us")
	r.RemoveMember("a@c.us") // idempotent

	if r.IsMember("a@c.us") || r.IsAdmin("a@c.us") {
		t.Error("removed member still present")
	}
}

func TestAllAdminsSorted(t *testing.T) {
	r := NewRosterStore()
	r.Sync([]member.Member{
		{ID: "c@c.us", IsAdmin: true},
		{ID: "a@c.us", IsAdmin: true},
		{ID: "b@c.us", IsAdmin: false},
	})

	admins := r.AllAdmins()
	if len(admins) != 2 || admins[0] != "a@c.us" || admins[1] != "c@c.us" {
		t.Errorf("admins = %v, want [a@c.us c@c.us]", admins)
	}
}

func TestSnapshot(t *testing.T) {
	r := NewRosterStore()
	r.Sync([]member.Member{
		{ID: "b@c.us", IsAdmin: false},
		{ID: "a@c.us", IsAdmin: true},
	})

	snap := r.Snapshot()
	if snap.Total != 2 || snap.Admins != 1 {
		t.Errorf("snapshot counts = %+v", snap)
	}
	if snap.Members[0].ID != "a@c.us" {
		t.Errorf("members not sorted: %v", snap.Members)
	}
}
