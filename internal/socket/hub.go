package socket

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
)

// MembershipResolver resolves the permission set a user holds in an
// organization. Implementations must return the empty set for missing,
// invited or suspended memberships.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, organizationID string) (permission.Set, error)
}

// ProjectResolver maps a project to its owning organization. The gateway
// never trusts a client-supplied organization id for project rooms; the
// owning organization is looked up server-side and the permission guard runs
// against that. Unknown projects resolve to "".
type ProjectResolver interface {
	OrganizationID(ctx context.Context, projectID string) (string, error)
}

type roomScope int

const (
	scopeOrganization roomScope = iota
	scopeProject
)

type roomRequest struct {
	client *Client
	scope  roomScope
	roomID string
}

type typingRequest struct {
	client    *Client
	projectID string
	start     bool
}

type roomMessage struct {
	scope   roomScope
	roomID  string
	data    []byte
	exclude string // connection id to skip, used for typing relays
}

type directMessage struct {
	userID string
	data   []byte
}

// Hub is the realtime gateway. It owns the ConnectionRegistry exclusively:
// every registry mutation happens on the Run loop, so room state needs no
// lock and broadcasts for one room keep the order their triggers arrived in.
type Hub struct {
	registry    *ConnectionRegistry
	clients     map[string]*Client
	memberships MembershipResolver
	projects    ProjectResolver

	register      chan *Client
	unregister    chan *Client
	join          chan *roomRequest
	leave         chan *roomRequest
	typing        chan *typingRequest
	roomBroadcast chan *roomMessage
	direct        chan *directMessage

	// done closes when Run returns so helper goroutines stop waiting on it.
	done chan struct{}

	connCount atomic.Int64
}

// NewHub creates a hub around an explicitly constructed registry.
func NewHub(registry *ConnectionRegistry, memberships MembershipResolver, projects ProjectResolver) *Hub {
	return &Hub{
		registry:      registry,
		clients:       make(map[string]*Client),
		memberships:   memberships,
		projects:      projects,
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		join:          make(chan *roomRequest, 64),
		leave:         make(chan *roomRequest, 64),
		typing:        make(chan *typingRequest, 64),
		roomBroadcast: make(chan *roomMessage, 256),
		direct:        make(chan *directMessage, 256),
		done:          make(chan struct{}),
	}
}

// Run drives the hub until ctx is cancelled. All registry mutations and all
// fan-out happen here, one event at a time.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	log.Println("[Hub] realtime gateway started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[Hub] realtime gateway stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.join:
			h.handleJoin(req)

		case req := <-h.leave:
			h.handleLeave(req)

		case req := <-h.typing:
			h.handleTyping(req)

		case rm := <-h.roomBroadcast:
			h.deliverToRoom(rm)

		case dm := <-h.direct:
			h.deliverToUser(dm)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.registry.Register(client.UserID, client.ID)
	h.clients[client.ID] = client
	h.connCount.Store(int64(h.registry.ConnectionCount()))
	log.Printf("[Hub] client registered: user=%s conn=%s total=%d",
		client.UserID, client.ID, h.registry.ConnectionCount())
}

func (h *Hub) unregisterClient(client *Client) {
	dep, ok := h.registry.Unregister(client.ID)
	if !ok {
		// Disconnect paths can race into here twice; cleanup already ran.
		return
	}

	// Synthesize typing:stop for any room left with a dangling indicator.
	for _, projectID := range dep.Typing {
		h.deliverToRoom(&roomMessage{
			scope:  scopeProject,
			roomID: projectID,
			data: encode(EventTypingStop, TypingPayload{
				ProjectID: projectID,
				UserID:    dep.UserID,
			}),
			exclude: client.ID,
		})
	}

	for _, orgID := range dep.Organizations {
		if !h.registry.UserInOrganization(dep.UserID, orgID) {
			h.announcePresence(orgID, dep.UserID, false)
		}
	}

	if _, known := h.clients[client.ID]; known {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.connCount.Store(int64(h.registry.ConnectionCount()))
	log.Printf("[Hub] client disconnected: user=%s conn=%s total=%d",
		client.UserID, client.ID, h.registry.ConnectionCount())
}

func (h *Hub) handleJoin(req *roomRequest) {
	// The permission check ran on the reader goroutine; the connection may
	// have disconnected while it was in flight. Abandon the join if so.
	if _, live := h.registry.UserID(req.client.ID); !live {
		return
	}

	switch req.scope {
	case scopeOrganization:
		wasPresent := h.registry.UserInOrganization(req.client.UserID, req.roomID)
		if h.registry.JoinOrganization(req.client.ID, req.roomID) && !wasPresent {
			h.announcePresence(req.roomID, req.client.UserID, true)
		}
		req.client.enqueue(encode(EventAck, AckPayload{
			Event:          EventJoinOrganization,
			OrganizationID: req.roomID,
		}))

	case scopeProject:
		h.registry.JoinProject(req.client.ID, req.roomID)
		req.client.enqueue(encode(EventAck, AckPayload{
			Event:     EventJoinProject,
			ProjectID: req.roomID,
		}))
	}
}

func (h *Hub) handleLeave(req *roomRequest) {
	if _, live := h.registry.UserID(req.client.ID); !live {
		return
	}

	switch req.scope {
	case scopeOrganization:
		if h.registry.LeaveOrganization(req.client.ID, req.roomID) &&
			!h.registry.UserInOrganization(req.client.UserID, req.roomID) {
			h.announcePresence(req.roomID, req.client.UserID, false)
		}
		req.client.enqueue(encode(EventAck, AckPayload{
			Event:          EventLeaveOrganization,
			OrganizationID: req.roomID,
		}))

	case scopeProject:
		if h.registry.ClearTyping(req.client.ID, req.roomID) {
			h.deliverToRoom(&roomMessage{
				scope:  scopeProject,
				roomID: req.roomID,
				data: encode(EventTypingStop, TypingPayload{
					ProjectID: req.roomID,
					UserID:    req.client.UserID,
				}),
				exclude: req.client.ID,
			})
		}
		h.registry.LeaveProject(req.client.ID, req.roomID)
		req.client.enqueue(encode(EventAck, AckPayload{
			Event:     EventLeaveProject,
			ProjectID: req.roomID,
		}))
	}
}

func (h *Hub) handleTyping(req *typingRequest) {
	if !h.registry.InProject(req.client.ID, req.projectID) {
		return
	}
	event := EventTypingStop
	if req.start {
		event = EventTypingStart
		h.registry.SetTyping(req.client.ID, req.projectID)
	} else {
		h.registry.ClearTyping(req.client.ID, req.projectID)
	}
	h.deliverToRoom(&roomMessage{
		scope:  scopeProject,
		roomID: req.projectID,
		data: encode(event, TypingPayload{
			ProjectID: req.projectID,
			UserID:    req.client.UserID,
		}),
		exclude: req.client.ID,
	})
}

// announcePresence fires presence and count events for an organization room.
// Callers only invoke it when the distinct-user count actually changed.
func (h *Hub) announcePresence(orgID, userID string, online bool) {
	event := EventPresenceOffline
	if online {
		event = EventPresenceOnline
	}
	count := h.registry.PresenceCount(orgID)

	h.deliverToRoom(&roomMessage{
		scope:  scopeOrganization,
		roomID: orgID,
		data:   encode(event, PresencePayload{OrganizationID: orgID, UserID: userID}),
	})
	h.deliverToRoom(&roomMessage{
		scope:  scopeOrganization,
		roomID: orgID,
		data:   encode(EventPresenceUpdate, PresenceCountPayload{OrganizationID: orgID, Count: count}),
	})
	h.deliverToRoom(&roomMessage{
		scope:  scopeOrganization,
		roomID: orgID,
		data:   encode(EventOnlineUsersCount, PresenceCountPayload{OrganizationID: orgID, Count: count}),
	})
}

func (h *Hub) deliverToRoom(rm *roomMessage) {
	var conns []string
	switch rm.scope {
	case scopeOrganization:
		conns = h.registry.OrganizationConnections(rm.roomID)
	case scopeProject:
		conns = h.registry.ProjectConnections(rm.roomID)
	}
	for _, connID := range conns {
		if connID == rm.exclude {
			continue
		}
		h.send(connID, rm.data)
	}
}

func (h *Hub) deliverToUser(dm *directMessage) {
	for _, connID := range h.registry.UserConnections(dm.userID) {
		h.send(connID, dm.data)
	}
}

func (h *Hub) send(connID string, data []byte) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		// Slow consumer: drop the connection rather than block the loop.
		// The drop can race the loop's shutdown; bail out once Run returns
		// instead of blocking on a channel nobody reads.
		go func(c *Client) {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}(client)
	}
}

// ============================================
// API for the REST layer and socket handlers
// ============================================

// SendToOrganization broadcasts an event to every connection joined to the
// organization room, the trigger's sender included. Broadcasts enqueue in
// call order and the run loop preserves that order per room.
func (h *Hub) SendToOrganization(orgID string, event EventType, payload interface{}) {
	h.roomBroadcast <- &roomMessage{
		scope:  scopeOrganization,
		roomID: orgID,
		data:   encode(event, payload),
	}
}

// SendToProject broadcasts an event to every connection joined to the project
// room.
func (h *Hub) SendToProject(projectID string, event EventType, payload interface{}) {
	h.roomBroadcast <- &roomMessage{
		scope:  scopeProject,
		roomID: projectID,
		data:   encode(event, payload),
	}
}

// SendToUser delivers an event to every live connection of one user.
func (h *Hub) SendToUser(userID string, event EventType, payload interface{}) {
	h.direct <- &directMessage{userID: userID, data: encode(event, payload)}
}

// ConnectedClients returns the live connection count. Safe from any
// goroutine; the health endpoint reads it.
func (h *Hub) ConnectedClients() int {
	return int(h.connCount.Load())
}

func encode(event EventType, payload interface{}) []byte {
	data, err := json.Marshal(Message{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("[Hub] marshal %s: %v", event, err)
		return nil
	}
	return data
}
