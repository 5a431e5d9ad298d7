package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/middleware"
	"github.com/driftlinehq/driftline/backend/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The JWT is the access control; the socket carries no cookies
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway upgrades authenticated HTTP requests to websocket connections and
// registers them with the hub.
type Gateway struct {
	hub    *Hub
	logger notify.Logger
}

// NewGateway creates a Gateway.
func NewGateway(hub *Hub, logger notify.Logger) *Gateway {
	if logger == nil {
		logger = notify.StdLogger{}
	}
	return &Gateway{hub: hub, logger: logger}
}

// RegisterRoutes registers the websocket endpoint. It lives outside the JWT
// middleware group because browsers cannot set headers on websocket dials;
// the token travels as a query parameter instead.
func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", g.Handle)
}

// Handle authenticates, upgrades, and wires the connection into the hub.
// Unauthenticated requests are rejected before the upgrade; the identity in
// the token decides which topics the connection starts on, so one user can
// never subscribe to another's notification stream.
func (g *Gateway) Handle(c echo.Context) error {
	tokenString := c.QueryParam("token")
	if tokenString == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	claims, err := middleware.ParseToken(tokenString)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Warnf("websocket upgrade failed for user %d: %v", claims.UserID, err)
		return nil
	}

	client := NewClient(g.hub, conn, claims.UserID)
	g.hub.Register(client)
	g.hub.Subscribe(client, notify.NotificationTopic(claims.UserID))
	g.hub.Subscribe(client, notify.FeedTopic(claims.UserID))

	go client.writePump()
	go client.readPump()
	return nil
}
