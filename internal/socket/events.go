package socket

import "time"

// EventType is the wire name of a realtime event. Names are part of the
// client protocol and must not change.
type EventType string

const (
	// Inbound room management
	EventJoinOrganization  EventType = "join:organization"
	EventLeaveOrganization EventType = "leave:organization"
	EventJoinProject       EventType = "join:project"
	EventLeaveProject      EventType = "leave:project"

	// Task events, org-scoped
	EventTaskCreated EventType = "task:created"
	EventTaskUpdated EventType = "task:updated"
	EventTaskDeleted EventType = "task:deleted"

	// Project events, org-scoped
	EventProjectUpdated EventType = "project:updated"

	// Member lifecycle events, org-scoped
	EventMemberAdded       EventType = "member_added"
	EventMemberRemoved     EventType = "member_removed"
	EventMemberRoleUpdated EventType = "member_role_updated"

	// Notification events, direct to user
	EventNotificationNew   EventType = "notification:new"
	EventNotificationRead  EventType = "notification:read"
	EventNotificationsLoad EventType = "notifications:load"

	// Presence events, org-scoped
	EventPresenceOnline   EventType = "presence:online"
	EventPresenceOffline  EventType = "presence:offline"
	EventPresenceUpdate   EventType = "presence:update"
	EventOnlineUsersCount EventType = "online_users_count"

	// Typing indicators, project-scoped
	EventTypingStart EventType = "typing:start"
	EventTypingStop  EventType = "typing:stop"

	// System
	EventAck   EventType = "ack"
	EventError EventType = "error"
	EventPing  EventType = "ping"
	EventPong  EventType = "pong"
)

// Message is an outbound event envelope.
type Message struct {
	Event     EventType   `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is an inbound event from a connected client.
type ClientMessage struct {
	Event          EventType `json:"event"`
	OrganizationID string    `json:"organizationId,omitempty"`
	ProjectID      string    `json:"projectId,omitempty"`
}

// ============================================
// Outbound payloads, one struct per event kind
// ============================================

// PresencePayload accompanies presence:online and presence:offline.
type PresencePayload struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
}

// PresenceCountPayload accompanies presence:update and online_users_count.
// Count is distinct users, not connections.
type PresenceCountPayload struct {
	OrganizationID string `json:"organizationId"`
	Count          int    `json:"count"`
}

// TypingPayload accompanies typing:start and typing:stop.
type TypingPayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
}

// TaskPayload accompanies task:created, task:updated and task:deleted.
// Task carries the serialized task body; it is nil for deletions.
type TaskPayload struct {
	OrganizationID string      `json:"organizationId"`
	ProjectID      string      `json:"projectId"`
	TaskID         string      `json:"taskId"`
	Task           interface{} `json:"task,omitempty"`
	ActorID        string      `json:"actorId,omitempty"`
}

// ProjectPayload accompanies project:updated.
type ProjectPayload struct {
	OrganizationID string      `json:"organizationId"`
	ProjectID      string      `json:"projectId"`
	Project        interface{} `json:"project,omitempty"`
	ActorID        string      `json:"actorId,omitempty"`
}

// MemberPayload accompanies member_added, member_removed and
// member_role_updated.
type MemberPayload struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Role           string `json:"role,omitempty"`
	Status         string `json:"status,omitempty"`
	ActorID        string `json:"actorId,omitempty"`
}

// NotificationItem is the wire form of a stored notification.
type NotificationItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPayload accompanies notification:new and notification:read.
type NotificationPayload struct {
	Notification NotificationItem `json:"notification"`
}

// NotificationsLoadPayload accompanies notifications:load, pushed once per
// connection right after the handshake.
type NotificationsLoadPayload struct {
	Notifications []NotificationItem `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
}

// AckPayload accompanies ack.
type AckPayload struct {
	Event          EventType `json:"event"`
	OrganizationID string    `json:"organizationId,omitempty"`
	ProjectID      string    `json:"projectId,omitempty"`
}

// ErrorPayload accompanies error. Authorization failures are acknowledged,
// never silently dropped.
type ErrorPayload struct {
	Event   EventType `json:"event"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

const (
	ErrCodeForbidden  = "forbidden"
	ErrCodeBadRequest = "bad_request"
	ErrCodeInternal   = "internal"
)
