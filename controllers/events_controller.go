package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventsController streams change events to connected panels
type EventsController struct {
	hub       *services.SSEHub
	heartbeat time.Duration
}

// NewEventsController creates the controller
func NewEventsController(svc *services.Services) *EventsController {
	return &EventsController{hub: svc.Hub, heartbeat: 30 * time.Second}
}

// Stream handles GET /api/v1/events?access_token=xxx
func (ctl *EventsController) Stream(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	clientID := uuid.NewString()
	client := ctl.hub.Register(clientID, userID)
	defer ctl.hub.Unregister(clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"client_id\":%q}\n\n", clientID)
	c.Writer.Flush()

	heartbeat := time.NewTicker(ctl.heartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case msg, ok := <-client.Messages:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
