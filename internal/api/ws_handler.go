package api

import (
	"errors"
	"net/http"

	"yatube/internal/interfaces"
	"yatube/internal/service"
	internalws "yatube/internal/websocket"
	"yatube/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// The default origin check (same host) applies.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WSHandler struct {
	hub          interfaces.ConnectionManager
	groupService *service.GroupService
}

func NewWSHandler(hub interfaces.ConnectionManager, groupService *service.GroupService) *WSHandler {
	return &WSHandler{
		hub:          hub,
		groupService: groupService,
	}
}

// HandleFeed upgrades to a websocket that streams post events, optionally
// only those of ?group=<slug>.
func (h *WSHandler) HandleFeed(c *gin.Context) {
	slug := c.Query("group")
	if slug != "" {
		if _, err := h.groupService.GetBySlug(slug); err != nil {
			if errors.Is(err, service.ErrGroupNotFound) {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}
			logger.L.Error("Failed to look up feed group", zap.String("group", slug), zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := internalws.NewClient(conn, slug, h.hub)
	logger.L.Info("Feed connection upgraded", zap.String("clientID", client.ID), zap.String("group", slug))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
