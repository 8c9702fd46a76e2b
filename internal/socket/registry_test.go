package socket

import (
	"sort"
	"testing"
)

func TestRegisterUnregister(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")

	if got, ok := r.UserID("c1"); !ok || got != "u1" {
		t.Fatalf("UserID(c1) = %q, %v", got, ok)
	}
	if r.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1", r.ConnectionCount())
	}

	dep, ok := r.Unregister("c1")
	if !ok {
		t.Fatal("first Unregister reported not found")
	}
	if dep.UserID != "u1" {
		t.Fatalf("Departure.UserID = %q", dep.UserID)
	}

	// Idempotent: second call is a safe no-op.
	if _, ok := r.Unregister("c1"); ok {
		t.Fatal("second Unregister reported ok")
	}
	if r.ConnectionCount() != 0 {
		t.Fatalf("ConnectionCount = %d after unregister", r.ConnectionCount())
	}
}

func TestJoinOrganizationIdempotent(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")

	if !r.JoinOrganization("c1", "org1") {
		t.Fatal("first join reported no change")
	}
	if r.JoinOrganization("c1", "org1") {
		t.Fatal("second join reported a change")
	}

	conns := r.OrganizationConnections("org1")
	if len(conns) != 1 || conns[0] != "c1" {
		t.Fatalf("OrganizationConnections = %v", conns)
	}
}

func TestJoinUnknownConnection(t *testing.T) {
	r := NewConnectionRegistry()
	if r.JoinOrganization("ghost", "org1") {
		t.Fatal("joined with unregistered connection")
	}
	if r.JoinProject("ghost", "p1") {
		t.Fatal("joined project with unregistered connection")
	}
}

func TestPresenceCountDistinctUsers(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")
	r.Register("u1", "c2") // second tab, same user
	r.Register("u2", "c3")

	r.JoinOrganization("c1", "org1")
	r.JoinOrganization("c2", "org1")
	r.JoinOrganization("c3", "org1")

	if got := r.PresenceCount("org1"); got != 2 {
		t.Fatalf("PresenceCount = %d, want 2", got)
	}

	// Closing one of two tabs keeps the user present.
	r.Unregister("c1")
	if got := r.PresenceCount("org1"); got != 2 {
		t.Fatalf("PresenceCount after one tab closed = %d, want 2", got)
	}
	if !r.UserInOrganization("u1", "org1") {
		t.Fatal("user u1 should still be present")
	}

	// Closing the last tab removes the user.
	r.Unregister("c2")
	if got := r.PresenceCount("org1"); got != 1 {
		t.Fatalf("PresenceCount after last tab closed = %d, want 1", got)
	}
	if r.UserInOrganization("u1", "org1") {
		t.Fatal("user u1 should be gone")
	}
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")
	r.JoinOrganization("c1", "org1")
	r.JoinOrganization("c1", "org2")
	r.JoinProject("c1", "p1")
	r.SetTyping("c1", "p1")

	dep, ok := r.Unregister("c1")
	if !ok {
		t.Fatal("Unregister failed")
	}
	sort.Strings(dep.Organizations)
	if len(dep.Organizations) != 2 || dep.Organizations[0] != "org1" || dep.Organizations[1] != "org2" {
		t.Fatalf("Departure.Organizations = %v", dep.Organizations)
	}
	if len(dep.Projects) != 1 || dep.Projects[0] != "p1" {
		t.Fatalf("Departure.Projects = %v", dep.Projects)
	}
	if len(dep.Typing) != 1 || dep.Typing[0] != "p1" {
		t.Fatalf("Departure.Typing = %v", dep.Typing)
	}

	if len(r.OrganizationConnections("org1")) != 0 {
		t.Fatal("org1 room not emptied")
	}
	if len(r.ProjectConnections("p1")) != 0 {
		t.Fatal("p1 room not emptied")
	}
}

func TestLeaveOrganization(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")
	r.JoinOrganization("c1", "org1")

	if !r.LeaveOrganization("c1", "org1") {
		t.Fatal("leave reported no change")
	}
	if r.LeaveOrganization("c1", "org1") {
		t.Fatal("second leave reported a change")
	}
	if r.PresenceCount("org1") != 0 {
		t.Fatal("presence count not zero after leave")
	}
}

func TestTypingState(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")

	// Typing requires room membership.
	if r.SetTyping("c1", "p1") {
		t.Fatal("SetTyping succeeded outside the room")
	}

	r.JoinProject("c1", "p1")
	if !r.SetTyping("c1", "p1") {
		t.Fatal("SetTyping failed in the room")
	}
	if r.SetTyping("c1", "p1") {
		t.Fatal("SetTyping reported a change twice")
	}
	if !r.ClearTyping("c1", "p1") {
		t.Fatal("ClearTyping failed")
	}
	if r.ClearTyping("c1", "p1") {
		t.Fatal("ClearTyping reported a change twice")
	}

	// Leaving the project clears outstanding typing state.
	r.SetTyping("c1", "p1")
	r.LeaveProject("c1", "p1")
	if r.ClearTyping("c1", "p1") {
		t.Fatal("typing state survived LeaveProject")
	}
}

func TestUserConnections(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", "c1")
	r.Register("u1", "c2")

	conns := r.UserConnections("u1")
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "c1" || conns[1] != "c2" {
		t.Fatalf("UserConnections = %v", conns)
	}
	if got := r.UserConnections("nobody"); got != nil {
		t.Fatalf("UserConnections for unknown user = %v", got)
	}
}
