package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/service"
	"realtime-scoring-backend/websocket"

	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 15 * time.Second

// LiveController streams poll results as they change, over WebSocket or SSE.
type LiveController struct {
	polls *service.PollService
	hub   *websocket.Hub
	bus   mq.EventBus
}

func NewLiveController(polls *service.PollService, hub *websocket.Hub, bus mq.EventBus) *LiveController {
	return &LiveController{polls: polls, hub: hub, bus: bus}
}

func (lc *LiveController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/polls/:id/ws", lc.HandleWebSocket)
	api.GET("/polls/:id/live", lc.HandleSSE)
}

// HandleWebSocket 升级为WebSocket连接，先发送当前结果，再推送后续更新
func (lc *LiveController) HandleWebSocket(c *gin.Context) {
	pollID := c.Param("id")
	// Reject unknown or deleted polls before upgrading.
	if _, err := lc.polls.Snapshot(c.Request.Context(), pollID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "poll_id", pollID, "error", err)
		return
	}

	// Register before reading the snapshot so no commit falls in between.
	client := websocket.NewClient(pollID, conn)
	lc.hub.Register(client, nil)
	snapshot, err := lc.polls.Snapshot(c.Request.Context(), pollID)
	if err != nil {
		// 投票在升级期间被删除，关闭连接
		slog.Warn("websocket snapshot failed", "poll_id", pollID, "error", err)
		lc.hub.Unregister(client)
		conn.Close()
		return
	}
	lc.hub.Offer(client, snapshot)

	slog.Info("websocket connected", "poll_id", pollID, "remote", c.ClientIP())
	websocket.Serve(lc.hub, client)
}

// HandleSSE 通过Server-Sent Events推送结果更新
func (lc *LiveController) HandleSSE(c *gin.Context) {
	pollID := c.Param("id")

	// Subscribe before reading the snapshot so no commit falls in between.
	updates, unsubscribe := lc.bus.Subscribe()
	defer unsubscribe()

	snapshot, err := lc.polls.Snapshot(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // 禁用Nginx缓冲
	c.Status(http.StatusOK)

	var last int64
	// send reports whether the stream should stay open.
	send := func(u mq.PollUpdate) bool {
		if u.Version <= last {
			return true
		}
		last = u.Version
		msg := websocket.MessageFor(u)
		c.SSEvent(msg.Type, msg)
		c.Writer.Flush()
		return !u.Deleted
	}

	if !send(snapshot) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.PollID != pollID {
				continue
			}
			if !send(u) {
				return
			}
		}
	}
}
