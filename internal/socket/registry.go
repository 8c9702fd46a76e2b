package socket

// connection is the registry's view of one live socket.
type connection struct {
	id            string
	userID        string
	organizations map[string]struct{}
	projects      map[string]struct{}
	typing        map[string]struct{} // project ids with an outstanding typing:start
}

// Departure describes the rooms a connection occupied at the moment it was
// unregistered, so the hub can emit the required presence and typing events.
type Departure struct {
	UserID        string
	Organizations []string
	Projects      []string
	Typing        []string
}

// ConnectionRegistry tracks live connections and the rooms they occupy:
// userID -> connection ids, organizationID -> connection ids and
// projectID -> connection ids. It holds no lock: every mutation happens on
// the hub run loop, which owns the registry for the process lifetime.
type ConnectionRegistry struct {
	conns        map[string]*connection
	users        map[string]map[string]struct{}
	orgRooms     map[string]map[string]struct{}
	projectRooms map[string]map[string]struct{}
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:        make(map[string]*connection),
		users:        make(map[string]map[string]struct{}),
		orgRooms:     make(map[string]map[string]struct{}),
		projectRooms: make(map[string]map[string]struct{}),
	}
}

// Register records a new authenticated connection for userID. Registering an
// already-known connection id is a no-op.
func (r *ConnectionRegistry) Register(userID, connID string) {
	if _, ok := r.conns[connID]; ok {
		return
	}
	r.conns[connID] = &connection{
		id:            connID,
		userID:        userID,
		organizations: make(map[string]struct{}),
		projects:      make(map[string]struct{}),
		typing:        make(map[string]struct{}),
	}
	if r.users[userID] == nil {
		r.users[userID] = make(map[string]struct{})
	}
	r.users[userID][connID] = struct{}{}
}

// Unregister removes a connection from the user index and from every room it
// joined. It is idempotent: the second call for the same id reports ok=false
// and changes nothing.
func (r *ConnectionRegistry) Unregister(connID string) (Departure, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return Departure{}, false
	}
	dep := Departure{UserID: conn.userID}
	for orgID := range conn.organizations {
		dep.Organizations = append(dep.Organizations, orgID)
		r.removeFromRoom(r.orgRooms, orgID, connID)
	}
	for projectID := range conn.projects {
		dep.Projects = append(dep.Projects, projectID)
		r.removeFromRoom(r.projectRooms, projectID, connID)
	}
	for projectID := range conn.typing {
		dep.Typing = append(dep.Typing, projectID)
	}
	if conns, ok := r.users[conn.userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.users, conn.userID)
		}
	}
	delete(r.conns, connID)
	return dep, true
}

// UserID resolves a connection id to its authenticated user.
func (r *ConnectionRegistry) UserID(connID string) (string, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return conn.userID, true
}

// JoinOrganization adds the connection to an organization room. Joining twice
// is a no-op; the return value reports whether membership actually changed.
// Callers must have passed the permission guard before invoking this.
func (r *ConnectionRegistry) JoinOrganization(connID, orgID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := conn.organizations[orgID]; joined {
		return false
	}
	conn.organizations[orgID] = struct{}{}
	if r.orgRooms[orgID] == nil {
		r.orgRooms[orgID] = make(map[string]struct{})
	}
	r.orgRooms[orgID][connID] = struct{}{}
	return true
}

// LeaveOrganization removes the connection from an organization room.
func (r *ConnectionRegistry) LeaveOrganization(connID, orgID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := conn.organizations[orgID]; !joined {
		return false
	}
	delete(conn.organizations, orgID)
	r.removeFromRoom(r.orgRooms, orgID, connID)
	return true
}

// JoinProject adds the connection to a project room, idempotently.
func (r *ConnectionRegistry) JoinProject(connID, projectID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := conn.projects[projectID]; joined {
		return false
	}
	conn.projects[projectID] = struct{}{}
	if r.projectRooms[projectID] == nil {
		r.projectRooms[projectID] = make(map[string]struct{})
	}
	r.projectRooms[projectID][connID] = struct{}{}
	return true
}

// LeaveProject removes the connection from a project room and clears any
// outstanding typing state for it.
func (r *ConnectionRegistry) LeaveProject(connID, projectID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := conn.projects[projectID]; !joined {
		return false
	}
	delete(conn.projects, projectID)
	delete(conn.typing, projectID)
	r.removeFromRoom(r.projectRooms, projectID, connID)
	return true
}

// InProject reports whether the connection has joined a project room.
func (r *ConnectionRegistry) InProject(connID, projectID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := conn.projects[projectID]
	return joined
}

// OrganizationConnections lists the connection ids joined to an organization
// room.
func (r *ConnectionRegistry) OrganizationConnections(orgID string) []string {
	return roomMembers(r.orgRooms, orgID)
}

// ProjectConnections lists the connection ids joined to a project room.
func (r *ConnectionRegistry) ProjectConnections(projectID string) []string {
	return roomMembers(r.projectRooms, projectID)
}

// UserConnections lists the live connection ids for a user.
func (r *ConnectionRegistry) UserConnections(userID string) []string {
	return roomMembers(r.users, userID)
}

// PresenceCount returns the number of distinct users with at least one
// connection joined to the organization room. A user with two tabs counts
// once.
func (r *ConnectionRegistry) PresenceCount(orgID string) int {
	seen := make(map[string]struct{})
	for connID := range r.orgRooms[orgID] {
		if conn, ok := r.conns[connID]; ok {
			seen[conn.userID] = struct{}{}
		}
	}
	return len(seen)
}

// UserInOrganization reports whether the user has at least one connection
// joined to the organization room.
func (r *ConnectionRegistry) UserInOrganization(userID, orgID string) bool {
	for connID := range r.users[userID] {
		if conn, ok := r.conns[connID]; ok {
			if _, joined := conn.organizations[orgID]; joined {
				return true
			}
		}
	}
	return false
}

// SetTyping marks an outstanding typing:start for the connection in a project
// room. Returns false if the state was already set or the connection is not
// in the room.
func (r *ConnectionRegistry) SetTyping(connID, projectID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := conn.projects[projectID]; !joined {
		return false
	}
	if _, typing := conn.typing[projectID]; typing {
		return false
	}
	conn.typing[projectID] = struct{}{}
	return true
}

// ClearTyping clears an outstanding typing:start. Returns whether state
// changed.
func (r *ConnectionRegistry) ClearTyping(connID, projectID string) bool {
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, typing := conn.typing[projectID]; !typing {
		return false
	}
	delete(conn.typing, projectID)
	return true
}

// ConnectionCount returns the number of live connections.
func (r *ConnectionRegistry) ConnectionCount() int {
	return len(r.conns)
}

func (r *ConnectionRegistry) removeFromRoom(rooms map[string]map[string]struct{}, roomID, connID string) {
	if members, ok := rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(rooms, roomID)
		}
	}
}

func roomMembers(rooms map[string]map[string]struct{}, roomID string) []string {
	members, ok := rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}
