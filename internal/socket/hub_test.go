package socket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
)

// staticResolver maps "userID/orgID" to a role, the way an active membership
// row would.
type staticResolver map[string]permission.Role

func (s staticResolver) Resolve(_ context.Context, userID, orgID string) (permission.Set, error) {
	role, ok := s[userID+"/"+orgID]
	if !ok {
		return nil, nil
	}
	return permission.Of(role), nil
}

// staticProjects maps project ids to their owning organization.
type staticProjects map[string]string

func (s staticProjects) OrganizationID(_ context.Context, projectID string) (string, error) {
	return s[projectID], nil
}

func newTestHub(resolver MembershipResolver) *Hub {
	return NewHub(NewConnectionRegistry(), resolver, staticProjects{})
}

func newTestClient(hub *Hub, userID, connID string) *Client {
	return &Client{ID: connID, UserID: userID, Hub: hub, Send: make(chan []byte, 64)}
}

// drain decodes every message currently queued on the client's send channel.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var msgs []Message
	for {
		select {
		case data := <-c.Send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("undecodable message: %v", err)
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func eventsOf(msgs []Message) []EventType {
	out := make([]EventType, len(msgs))
	for i, m := range msgs {
		out[i] = m.Event
	}
	return out
}

func countEvents(msgs []Message, event EventType) int {
	n := 0
	for _, m := range msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

// joinOrg registers nothing; it drives the hub's join path synchronously the
// way the run loop would.
func joinOrg(h *Hub, c *Client, orgID string) {
	h.handleJoin(&roomRequest{client: c, scope: scopeOrganization, roomID: orgID})
}

func TestSecondTabDoesNotChangePresence(t *testing.T) {
	h := newTestHub(staticResolver{})
	observer := newTestClient(h, "observer", "obs-1")
	tabA := newTestClient(h, "u1", "tab-a")
	tabB := newTestClient(h, "u1", "tab-b")

	h.registerClient(observer)
	joinOrg(h, observer, "org1")
	drain(t, observer)

	// First tab: observer sees the user come online with count 2.
	h.registerClient(tabA)
	joinOrg(h, tabA, "org1")
	msgs := drain(t, observer)
	if countEvents(msgs, EventPresenceOnline) != 1 {
		t.Fatalf("first tab join: events %v, want one presence:online", eventsOf(msgs))
	}
	if countEvents(msgs, EventOnlineUsersCount) != 1 {
		t.Fatalf("first tab join: missing online_users_count in %v", eventsOf(msgs))
	}

	// Second tab for the same user: no presence traffic at all.
	h.registerClient(tabB)
	joinOrg(h, tabB, "org1")
	msgs = drain(t, observer)
	if len(msgs) != 0 {
		t.Fatalf("second tab join emitted %v", eventsOf(msgs))
	}

	// Tab A disconnects; the user still has tab B, so nothing fires.
	h.unregisterClient(tabA)
	msgs = drain(t, observer)
	if len(msgs) != 0 {
		t.Fatalf("first tab close emitted %v", eventsOf(msgs))
	}

	// Tab B disconnects; now the user is offline and the count drops.
	h.unregisterClient(tabB)
	msgs = drain(t, observer)
	if countEvents(msgs, EventPresenceOffline) != 1 {
		t.Fatalf("last tab close: events %v, want one presence:offline", eventsOf(msgs))
	}
	if h.registry.PresenceCount("org1") != 1 {
		t.Fatalf("presence count = %d, want 1", h.registry.PresenceCount("org1"))
	}
}

func TestJoinTwiceEmitsPresenceOnce(t *testing.T) {
	h := newTestHub(staticResolver{})
	observer := newTestClient(h, "observer", "obs-1")
	member := newTestClient(h, "u1", "c1")

	h.registerClient(observer)
	joinOrg(h, observer, "org1")
	drain(t, observer)

	h.registerClient(member)
	joinOrg(h, member, "org1")
	joinOrg(h, member, "org1")

	msgs := drain(t, observer)
	if countEvents(msgs, EventPresenceOnline) != 1 {
		t.Fatalf("double join: events %v, want one presence:online", eventsOf(msgs))
	}

	// The second join is still acknowledged.
	acks := countEvents(drain(t, member), EventAck)
	if acks != 2 {
		t.Fatalf("acks = %d, want 2", acks)
	}
}

func TestRoomBroadcastOrderPreserved(t *testing.T) {
	h := newTestHub(staticResolver{})
	member := newTestClient(h, "u1", "c1")
	h.registerClient(member)
	joinOrg(h, member, "org1")
	drain(t, member)

	for _, taskID := range []string{"t1", "t2", "t3"} {
		h.deliverToRoom(&roomMessage{
			scope:  scopeOrganization,
			roomID: "org1",
			data:   encode(EventTaskCreated, TaskPayload{OrganizationID: "org1", TaskID: taskID}),
		})
	}

	msgs := drain(t, member)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		payload, ok := msgs[i].Payload.(map[string]interface{})
		if !ok {
			t.Fatalf("message %d payload type %T", i, msgs[i].Payload)
		}
		if payload["taskId"] != want {
			t.Fatalf("message %d taskId = %v, want %s", i, payload["taskId"], want)
		}
	}
}

func TestBroadcastIncludesSender(t *testing.T) {
	h := newTestHub(staticResolver{})
	actor := newTestClient(h, "owner", "c1")
	other := newTestClient(h, "member", "c2")
	h.registerClient(actor)
	h.registerClient(other)
	joinOrg(h, actor, "org1")
	joinOrg(h, other, "org1")
	drain(t, actor)
	drain(t, other)

	h.deliverToRoom(&roomMessage{
		scope:  scopeOrganization,
		roomID: "org1",
		data:   encode(EventTaskCreated, TaskPayload{OrganizationID: "org1", TaskID: "t1", ActorID: "owner"}),
	})

	if countEvents(drain(t, actor), EventTaskCreated) != 1 {
		t.Fatal("actor did not receive its own task:created")
	}
	if countEvents(drain(t, other), EventTaskCreated) != 1 {
		t.Fatal("room member did not receive task:created")
	}
}

func TestDisconnectSynthesizesTypingStop(t *testing.T) {
	h := newTestHub(staticResolver{})
	typist := newTestClient(h, "u1", "c1")
	watcher := newTestClient(h, "u2", "c2")
	h.registerClient(typist)
	h.registerClient(watcher)
	h.registry.JoinProject("c1", "p1")
	h.registry.JoinProject("c2", "p1")

	h.handleTyping(&typingRequest{client: typist, projectID: "p1", start: true})
	msgs := drain(t, watcher)
	if countEvents(msgs, EventTypingStart) != 1 {
		t.Fatalf("typing relay: events %v", eventsOf(msgs))
	}

	// Disconnect without typing:stop; the hub must synthesize one.
	h.unregisterClient(typist)
	msgs = drain(t, watcher)
	if countEvents(msgs, EventTypingStop) != 1 {
		t.Fatalf("disconnect: events %v, want one typing:stop", eventsOf(msgs))
	}
}

func TestTypingNotRelayedToSender(t *testing.T) {
	h := newTestHub(staticResolver{})
	typist := newTestClient(h, "u1", "c1")
	h.registerClient(typist)
	h.registry.JoinProject("c1", "p1")

	h.handleTyping(&typingRequest{client: typist, projectID: "p1", start: true})
	if msgs := drain(t, typist); len(msgs) != 0 {
		t.Fatalf("sender received its own typing event: %v", eventsOf(msgs))
	}
}

func TestTypingOutsideRoomDropped(t *testing.T) {
	h := newTestHub(staticResolver{})
	typist := newTestClient(h, "u1", "c1")
	watcher := newTestClient(h, "u2", "c2")
	h.registerClient(typist)
	h.registerClient(watcher)
	h.registry.JoinProject("c2", "p1")

	h.handleTyping(&typingRequest{client: typist, projectID: "p1", start: true})
	if msgs := drain(t, watcher); len(msgs) != 0 {
		t.Fatalf("typing from outside the room relayed: %v", eventsOf(msgs))
	}
}

func TestJoinAbandonedAfterDisconnect(t *testing.T) {
	h := newTestHub(staticResolver{})
	client := newTestClient(h, "u1", "c1")
	h.registerClient(client)
	h.unregisterClient(client)

	// The membership check resolved after the disconnect; the join must not
	// mutate the registry as if it succeeded.
	joinOrg(h, client, "org1")
	if h.registry.PresenceCount("org1") != 0 {
		t.Fatal("abandoned join mutated the registry")
	}
	if len(h.registry.OrganizationConnections("org1")) != 0 {
		t.Fatal("abandoned join added a room member")
	}
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	h := newTestHub(staticResolver{})
	client := newTestClient(h, "u1", "c1")
	h.registerClient(client)
	h.unregisterClient(client)
	h.unregisterClient(client) // must not panic or double-close Send
	if h.ConnectedClients() != 0 {
		t.Fatalf("ConnectedClients = %d", h.ConnectedClients())
	}
}

func TestDirectMessageReachesAllTabs(t *testing.T) {
	h := newTestHub(staticResolver{})
	tabA := newTestClient(h, "u1", "c1")
	tabB := newTestClient(h, "u1", "c2")
	stranger := newTestClient(h, "u2", "c3")
	h.registerClient(tabA)
	h.registerClient(tabB)
	h.registerClient(stranger)

	h.deliverToUser(&directMessage{
		userID: "u1",
		data:   encode(EventNotificationNew, NotificationPayload{Notification: NotificationItem{ID: "n1"}}),
	})

	if countEvents(drain(t, tabA), EventNotificationNew) != 1 {
		t.Fatal("tab A missed the notification")
	}
	if countEvents(drain(t, tabB), EventNotificationNew) != 1 {
		t.Fatal("tab B missed the notification")
	}
	if len(drain(t, stranger)) != 0 {
		t.Fatal("direct message leaked to another user")
	}
}

func TestAuthorizeGuard(t *testing.T) {
	resolver := staticResolver{
		"member-user/org1": permission.RoleMember,
		"owner-user/org1":  permission.RoleOwner,
	}
	h := newTestHub(resolver)

	tests := []struct {
		name     string
		userID   string
		orgID    string
		required permission.Permission
		want     bool
	}{
		{"member can read org", "member-user", "org1", permission.OrganizationRead, true},
		{"member cannot delete org", "member-user", "org1", permission.OrganizationDelete, false},
		{"owner can delete org", "owner-user", "org1", permission.OrganizationDelete, true},
		{"non-member denied", "stranger", "org1", permission.OrganizationRead, false},
		{"member of other org denied", "member-user", "org2", permission.OrganizationRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(h, tt.userID, "conn-"+tt.userID)
			if got := c.authorize(tt.orgID, tt.required); got != tt.want {
				t.Errorf("authorize(%s, %s) = %v, want %v", tt.orgID, tt.required, got, tt.want)
			}
		})
	}
}

func TestJoinProjectChecksOwningOrganization(t *testing.T) {
	resolver := staticResolver{
		"intruder/org-a": permission.RoleMember,
		"insider/org-b":  permission.RoleMember,
	}
	projects := staticProjects{"p-1": "org-b"}
	h := NewHub(NewConnectionRegistry(), resolver, projects)

	intruder := newTestClient(h, "intruder", "c1")
	insider := newTestClient(h, "insider", "c2")
	watcher := newTestClient(h, "watcher", "c3")
	h.registerClient(intruder)
	h.registerClient(insider)
	h.registerClient(watcher)
	h.registry.JoinProject("c3", "p-1")

	// A member of another organization is rejected no matter which
	// organization id their client claims.
	intruder.handleMessage([]byte(`{"event":"join:project","projectId":"p-1","organizationId":"org-a"}`))
	select {
	case <-h.join:
		t.Fatal("cross-organization join request was queued")
	default:
	}
	msgs := drain(t, intruder)
	if countEvents(msgs, EventError) != 1 {
		t.Fatalf("intruder events %v, want one error", eventsOf(msgs))
	}

	// A member of the owning organization gets in.
	insider.handleMessage([]byte(`{"event":"join:project","projectId":"p-1"}`))
	select {
	case req := <-h.join:
		h.handleJoin(req)
	default:
		t.Fatal("owning-organization join was not queued")
	}
	if !h.registry.InProject("c2", "p-1") {
		t.Fatal("owning-organization member not in the room")
	}

	// Room traffic reaches the room, never the rejected connection.
	h.handleTyping(&typingRequest{client: insider, projectID: "p-1", start: true})
	if countEvents(drain(t, watcher), EventTypingStart) != 1 {
		t.Fatal("room member missed typing:start")
	}
	if msgs := drain(t, intruder); len(msgs) != 0 {
		t.Fatalf("rejected connection received room traffic: %v", eventsOf(msgs))
	}

	// Unknown projects resolve to no organization and are denied too.
	insider.handleMessage([]byte(`{"event":"join:project","projectId":"ghost"}`))
	select {
	case <-h.join:
		t.Fatal("join for unknown project was queued")
	default:
	}
	if countEvents(drain(t, insider), EventError) != 1 {
		t.Fatal("unknown project join not rejected")
	}
}

func TestSlowConsumerDropSurvivesShutdown(t *testing.T) {
	h := newTestHub(staticResolver{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	// Zero-capacity send queue: the first delivery overflows immediately.
	slow := &Client{ID: "c1", UserID: "u1", Hub: h, Send: make(chan []byte)}
	h.register <- slow
	h.direct <- &directMessage{userID: "u1", data: encode(EventNotificationNew, nil)}

	deadline := time.After(2 * time.Second)
	for h.ConnectedClients() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow consumer was not dropped")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-stopped

	// Drops that lose the race with shutdown must not wait forever on the
	// dead run loop.
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("run loop exit left pending drops blocked")
	}
}

func TestLeaveOrganizationPresence(t *testing.T) {
	h := newTestHub(staticResolver{})
	observer := newTestClient(h, "observer", "obs-1")
	member := newTestClient(h, "u1", "c1")
	h.registerClient(observer)
	joinOrg(h, observer, "org1")
	h.registerClient(member)
	joinOrg(h, member, "org1")
	drain(t, observer)

	h.handleLeave(&roomRequest{client: member, scope: scopeOrganization, roomID: "org1"})
	msgs := drain(t, observer)
	if countEvents(msgs, EventPresenceOffline) != 1 {
		t.Fatalf("leave: events %v, want one presence:offline", eventsOf(msgs))
	}
}
