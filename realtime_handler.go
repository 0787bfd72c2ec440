package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/realtime"
)

// pingPeriod keeps idle connections alive through proxies that drop quiet sockets.
const pingPeriod = 25 * time.Second

// Requests are authenticated by token, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// realtimeConnect upgrades to a websocket that receives this user's change
// events and the periodic refresh signal.
// GET /api/realtime?token=... (browsers can't set headers on websocket requests).
func (h *Handler) realtimeConnect(c *gin.Context) {
	if h.hub == nil {
		apiError(c, http.StatusServiceUnavailable, "realtime updates disabled")
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Warn().Err(err).Msg("[realtimeConnect] upgrade failed")
		return
	}

	client := realtime.NewClient(strconv.Itoa(c.GetInt("user_id")), conn)
	h.hub.Register(client)
	log.Debug().Str("client", client.ID).Str("user", client.UserID).Msg("[realtimeConnect] connected")

	go client.WritePump(pingPeriod)
	client.ReadPump(h.hub)
}
