package socket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (4KB)
	maxMessageSize int64 = 4096

	// Budget for membership lookups triggered by join requests
	resolveTimeout = 5 * time.Second
)

// Client is one authenticated websocket connection.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte
}

// ReadPump pumps messages from the websocket connection into the hub. It runs
// one goroutine per connection and triggers cleanup exactly once on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] websocket error for user %s: %v", c.UserID, err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued messages into the same frame batch
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[Client] bad message from user %s: %v", c.UserID, err)
		c.sendError(msg.Event, ErrCodeBadRequest, "malformed message")
		return
	}

	switch msg.Event {
	case EventJoinOrganization:
		if msg.OrganizationID == "" {
			c.sendError(msg.Event, ErrCodeBadRequest, "organizationId required")
			return
		}
		// Membership is re-checked on every join, not only the first: a
		// membership revoked since the last join stops room delivery here.
		if !c.authorize(msg.OrganizationID, permission.OrganizationRead) {
			c.sendError(msg.Event, ErrCodeForbidden, "not an active member of this organization")
			return
		}
		c.Hub.join <- &roomRequest{client: c, scope: scopeOrganization, roomID: msg.OrganizationID}

	case EventLeaveOrganization:
		if msg.OrganizationID == "" {
			c.sendError(msg.Event, ErrCodeBadRequest, "organizationId required")
			return
		}
		c.Hub.leave <- &roomRequest{client: c, scope: scopeOrganization, roomID: msg.OrganizationID}

	case EventJoinProject:
		if msg.ProjectID == "" {
			c.sendError(msg.Event, ErrCodeBadRequest, "projectId required")
			return
		}
		// The owning organization is resolved server-side; the guard never
		// runs against an organization id the client picked. A msg that
		// carries one anyway is ignored.
		orgID := c.resolveProjectOrg(msg.ProjectID)
		if orgID == "" || !c.authorize(orgID, permission.ProjectRead) {
			c.sendError(msg.Event, ErrCodeForbidden, "no access to this project")
			return
		}
		c.Hub.join <- &roomRequest{client: c, scope: scopeProject, roomID: msg.ProjectID}

	case EventLeaveProject:
		if msg.ProjectID == "" {
			c.sendError(msg.Event, ErrCodeBadRequest, "projectId required")
			return
		}
		c.Hub.leave <- &roomRequest{client: c, scope: scopeProject, roomID: msg.ProjectID}

	case EventTypingStart:
		if msg.ProjectID == "" {
			return
		}
		c.Hub.typing <- &typingRequest{client: c, projectID: msg.ProjectID, start: true}

	case EventTypingStop:
		if msg.ProjectID == "" {
			return
		}
		c.Hub.typing <- &typingRequest{client: c, projectID: msg.ProjectID, start: false}

	case EventPing:
		c.enqueue(encode(EventPong, nil))

	default:
		log.Printf("[Client] unknown event %q from user %s", msg.Event, c.UserID)
	}
}

// authorize runs the permission guard against the caller's membership in an
// organization. This is the suspension point of the join flow; the hub loop
// re-validates the connection after it resumes.
func (c *Client) authorize(orgID string, required permission.Permission) bool {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	set, err := c.Hub.memberships.Resolve(ctx, c.UserID, orgID)
	if err != nil {
		log.Printf("[Client] membership resolve failed: user=%s org=%s err=%v", c.UserID, orgID, err)
		return false
	}
	return set.Has(required)
}

// resolveProjectOrg looks up the organization that owns a project. Unknown
// projects come back as "", which the caller treats as a denial.
func (c *Client) resolveProjectOrg(projectID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	orgID, err := c.Hub.projects.OrganizationID(ctx, projectID)
	if err != nil {
		log.Printf("[Client] project resolve failed: user=%s project=%s err=%v", c.UserID, projectID, err)
		return ""
	}
	return orgID
}

func (c *Client) sendError(event EventType, code, message string) {
	c.enqueue(encode(EventError, ErrorPayload{Event: event, Code: code, Message: message}))
}

// enqueue offers data to the connection's send queue without blocking.
func (c *Client) enqueue(data []byte) {
	if data == nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("[Client] send queue full for user %s", c.UserID)
	}
}
