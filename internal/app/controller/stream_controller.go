package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/middleware"
	ws "github.com/ranlab/bizdir-backend/internal/websocket"
)

// StreamController upgrades callers onto the live edit request feed.
type StreamController struct {
	hub           *ws.Hub
	regionService service.RegionService
	upgrader      websocket.Upgrader
}

// NewStreamController accepts upgrades from allowedOrigins; "*" allows any.
func NewStreamController(hub *ws.Hub, regionService service.RegionService, allowedOrigins []string) *StreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return &StreamController{
		hub:           hub,
		regionService: regionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (ctrl *StreamController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	var regionIDs []string
	if !identity.Admin {
		regions, err := ctrl.regionService.ManagedBy(c.Request.Context(), identity, identity.UserAppID)
		if err != nil {
			respondServiceError(c, err, "subscribe to edit feed")
			return
		}
		for _, r := range regions {
			regionIDs = append(regionIDs, r.ID)
		}
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Warn("Edit feed upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	log.Info("Edit feed connected", map[string]interface{}{
		"user_app_id": identity.UserAppID,
		"regions":     regionIDs,
	})
	ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, identity, regionIDs).Serve()
}
