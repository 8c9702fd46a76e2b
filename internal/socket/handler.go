package socket

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// In production, restrict to your domains
		return true
	},
}

// NotificationLoader enumerates a user's stored notifications so the gateway
// can push notifications:load right after the handshake.
type NotificationLoader interface {
	Pending(ctx context.Context, userID string) ([]NotificationItem, int, error)
}

// Handler upgrades HTTP requests to websocket connections.
type Handler struct {
	Hub           *Hub
	JWTSecret     string
	Notifications NotificationLoader
}

// NewHandler creates a websocket handler. The JWT secret is needed here
// because browser websocket clients pass the token as a query parameter.
func NewHandler(hub *Hub, jwtSecret string, notifications NotificationLoader) *Handler {
	return &Handler{
		Hub:           hub,
		JWTSecret:     jwtSecret,
		Notifications: notifications,
	}
}

// HandleWebSocket authenticates the handshake and hands the connection to the
// hub. A bad, expired or missing token refuses the connection outright; there
// is no anonymous mode.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	userID, err := h.verifyToken(tokenString)
	if err != nil {
		log.Printf("[WebSocket] token rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WebSocket] upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan []byte, 256),
	}

	h.Hub.register <- client

	go client.WritePump()
	go client.ReadPump()

	go h.pushPendingNotifications(client)
}

// pushPendingNotifications loads the user's stored notifications and delivers
// notifications:load on the fresh connection. Best effort: a failed load is
// logged, not fatal to the connection.
func (h *Handler) pushPendingNotifications(client *Client) {
	if h.Notifications == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	items, unread, err := h.Notifications.Pending(ctx, client.UserID)
	if err != nil {
		log.Printf("[WebSocket] notifications load failed for user %s: %v", client.UserID, err)
		return
	}
	client.enqueue(encode(EventNotificationsLoad, NotificationsLoadPayload{
		Notifications: items,
		UnreadCount:   unread,
	}))
}

func (h *Handler) verifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return "", jwt.ErrTokenExpired
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return userID, nil
}
