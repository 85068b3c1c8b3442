package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Writes are serialized because the hub and the reader loop both send.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// wsCommand is a client request to follow or unfollow a task's events.
type wsCommand struct {
	Action string `json:"action"`
	TaskID string `json:"taskId"`
}

type wsReply struct {
	Event string `json:"event"`
	Group string `json:"group,omitempty"`
	Error string `json:"error,omitempty"`
}

// WebSocket handles GET /api/v1/ws. The connection joins User_{id} at once
// and may join or leave Task_{id} groups with {"action":"join","taskId":...}.
// It requires JWT middleware to have set "user_id" in context.
func (h *Handler) WebSocket(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	log := h.log.WithField("user_id", userID)
	client := &wsClient{conn: conn}
	h.hub.Join(realtime.UserGroup(userID), client)
	metrics.ClientConnected()
	log.Debug("websocket connected")

	pingTicker := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
					// ping failed; reader loop will exit on next error
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		pingTicker.Stop()
		h.hub.LeaveAll(client)
		client.Close()
		metrics.ClientDisconnected()
		log.Debug("websocket disconnected")
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := h.handleCommand(c, client, data)
		if msg, err := json.Marshal(reply); err == nil {
			client.Send(msg)
		}
	}
}

func (h *Handler) handleCommand(c *gin.Context, client *wsClient, data []byte) wsReply {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wsReply{Event: "Error", Error: "Invalid message"}
	}
	if cmd.TaskID == "" {
		return wsReply{Event: "Error", Error: "taskId is required"}
	}
	group := realtime.TaskGroup(cmd.TaskID)

	switch strings.ToLower(cmd.Action) {
	case "join":
		if _, err := h.svc.Tasks.GetTask(c.Request.Context(), cmd.TaskID); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				h.log.WithError(err).WithFields(logrus.Fields{"task_id": cmd.TaskID}).Error("joining task group")
			}
			return wsReply{Event: "Error", Group: group, Error: apperr.PublicMessage(err, false)}
		}
		h.hub.Join(group, client)
		return wsReply{Event: "Joined", Group: group}
	case "leave":
		h.hub.Leave(group, client)
		return wsReply{Event: "Left", Group: group}
	default:
		return wsReply{Event: "Error", Error: "action must be 'join' or 'leave'"}
	}
}
