package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fleet_monitor/internal/hub"
	"fleet_monitor/internal/middleware"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// WSController serves the live monitoring feed. Clients connect once and
// receive position and alert events pushed by the trip monitor.
type WSController struct {
	Hub *hub.FleetHub
}

func NewWSController(fleetHub *hub.FleetHub) *WSController {
	return &WSController{Hub: fleetHub}
}

// authenticateForWebSocket validates the JWT from the query string.
// Browsers cannot set the Authorization header on WebSocket upgrades, so
// the token rides in a query parameter here.
func authenticateForWebSocket(c *gin.Context) (*middleware.Claims, error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		logrus.Warn("WebSocket connection attempt: Missing token query parameter.")
		return nil, errors.New("missing authentication token")
	}
	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case "transportadora", "admin":
		return claims, nil
	default:
		return nil, errors.New("unauthorized role for WebSocket connection")
	}
}

// HandleMonitoringWebSocket upgrades the connection and keeps it
// registered with the hub until the client goes away.
func (wc *WSController) HandleMonitoringWebSocket(c *gin.Context) {
	claims, authErr := authenticateForWebSocket(c)
	if authErr != nil {
		logrus.WithError(authErr).Warn("WebSocket connection attempt rejected.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	if claims.Role == "admin" {
		wc.Hub.RegisterAdmin(conn)
	} else {
		wc.Hub.RegisterCompany(claims.UserID, conn)
	}
	defer wc.Hub.Unregister(conn)

	log := logrus.WithFields(logrus.Fields{
		"user_id": claims.UserID,
		"role":    claims.Role,
	})
	log.Info("Monitoring WebSocket connection established.")

	// The feed is one-way. Reads only detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("Monitoring WebSocket closed.")
			} else {
				log.WithError(err).Warn("Error reading from monitoring WebSocket.")
			}
			break
		}
	}
}
