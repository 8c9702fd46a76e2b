package socket

// Broadcaster is the REST layer's view of the gateway. It never touches the
// registry directly; every call funnels through the hub loop. Broadcasts are
// best effort: the REST response does not wait on delivery.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a broadcaster over a hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ============================================
// Task events (organization room)
// ============================================

func (b *Broadcaster) TaskCreated(orgID, projectID, taskID string, task interface{}, actorID string) {
	b.hub.SendToOrganization(orgID, EventTaskCreated, TaskPayload{
		OrganizationID: orgID,
		ProjectID:      projectID,
		TaskID:         taskID,
		Task:           task,
		ActorID:        actorID,
	})
}

func (b *Broadcaster) TaskUpdated(orgID, projectID, taskID string, task interface{}, actorID string) {
	b.hub.SendToOrganization(orgID, EventTaskUpdated, TaskPayload{
		OrganizationID: orgID,
		ProjectID:      projectID,
		TaskID:         taskID,
		Task:           task,
		ActorID:        actorID,
	})
}

func (b *Broadcaster) TaskDeleted(orgID, projectID, taskID, actorID string) {
	b.hub.SendToOrganization(orgID, EventTaskDeleted, TaskPayload{
		OrganizationID: orgID,
		ProjectID:      projectID,
		TaskID:         taskID,
		ActorID:        actorID,
	})
}

// ============================================
// Project events (organization room)
// ============================================

func (b *Broadcaster) ProjectUpdated(orgID, projectID string, project interface{}, actorID string) {
	b.hub.SendToOrganization(orgID, EventProjectUpdated, ProjectPayload{
		OrganizationID: orgID,
		ProjectID:      projectID,
		Project:        project,
		ActorID:        actorID,
	})
}

// ============================================
// Member lifecycle events (organization room)
// ============================================

func (b *Broadcaster) MemberAdded(orgID, userID, role, actorID string) {
	b.hub.SendToOrganization(orgID, EventMemberAdded, MemberPayload{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		ActorID:        actorID,
	})
}

func (b *Broadcaster) MemberRemoved(orgID, userID, actorID string) {
	b.hub.SendToOrganization(orgID, EventMemberRemoved, MemberPayload{
		OrganizationID: orgID,
		UserID:         userID,
		ActorID:        actorID,
	})
}

func (b *Broadcaster) MemberRoleUpdated(orgID, userID, role, status, actorID string) {
	b.hub.SendToOrganization(orgID, EventMemberRoleUpdated, MemberPayload{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		Status:         status,
		ActorID:        actorID,
	})
}

// ============================================
// Notification events (direct to user)
// ============================================

func (b *Broadcaster) NotificationNew(userID string, item NotificationItem) {
	b.hub.SendToUser(userID, EventNotificationNew, NotificationPayload{Notification: item})
}

func (b *Broadcaster) NotificationRead(userID string, item NotificationItem) {
	b.hub.SendToUser(userID, EventNotificationRead, NotificationPayload{Notification: item})
}
