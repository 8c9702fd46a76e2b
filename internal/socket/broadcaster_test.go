package socket

import "testing"

func TestMemberEventsReachOrganizationRoom(t *testing.T) {
	h := newTestHub(staticResolver{})
	b := NewBroadcaster(h)

	member := newTestClient(h, "u1", "c1")
	outsider := newTestClient(h, "u2", "c2")
	h.registerClient(member)
	h.registerClient(outsider)
	joinOrg(h, member, "org1")
	drain(t, member)

	b.MemberAdded("org1", "bee", "member", "alice")
	b.MemberRoleUpdated("org1", "bee", "admin", "active", "alice")
	b.MemberRemoved("org1", "bee", "alice")
	for i := 0; i < 3; i++ {
		h.deliverToRoom(<-h.roomBroadcast)
	}

	msgs := drain(t, member)
	want := []EventType{EventMemberAdded, EventMemberRoleUpdated, EventMemberRemoved}
	if len(msgs) != len(want) {
		t.Fatalf("got %v, want %v", eventsOf(msgs), want)
	}
	for i, event := range want {
		if msgs[i].Event != event {
			t.Fatalf("message %d = %s, want %s", i, msgs[i].Event, event)
		}
		payload, ok := msgs[i].Payload.(map[string]interface{})
		if !ok {
			t.Fatalf("message %d payload type %T", i, msgs[i].Payload)
		}
		if payload["organizationId"] != "org1" || payload["userId"] != "bee" {
			t.Fatalf("message %d payload = %v", i, payload)
		}
	}
	if payload, ok := msgs[1].Payload.(map[string]interface{}); ok && payload["role"] != "admin" {
		t.Fatalf("role update payload = %v", payload)
	}

	if leaked := drain(t, outsider); len(leaked) != 0 {
		t.Fatalf("member events leaked outside the room: %v", eventsOf(leaked))
	}
}
