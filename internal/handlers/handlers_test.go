package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/logging"
	"riteswipe-api/internal/middleware"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/reports"
	"riteswipe-api/internal/services"
	"riteswipe-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	h   *Handler
	hub *realtime.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	rep, err := reports.FromGORM(db)
	require.NoError(t, err)

	log := logging.Discard()
	hub := realtime.NewHub(log)
	svc := services.New(db, nil, payments.NewLedger(log), rep, nil, services.Options{}, log)
	issuer := auth.NewTokenIssuer("test-secret", "riteswipe-api", "riteswipe-clients", time.Hour)
	return &fixture{db: db, h: New(svc, issuer, hub, log), hub: hub}
}

// engine authenticates every request as userID, skipping JWT.
func (f *fixture) engine(userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	r.Use(middleware.ErrorHandler(logging.Discard(), false))
	r.GET("/users/profile", f.h.GetProfile)
	r.POST("/tasks/:id/escrow", f.h.CreateEscrow)
	r.POST("/tasks", f.h.CreateTask)
	r.POST("/notifications/:id/read", f.h.MarkNotificationRead)
	r.GET("/ws", f.h.WebSocket)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestCallerRequired(t *testing.T) {
	f := newFixture(t)
	w := serve(f.engine(""), http.MethodGet, "/users/profile", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "User ID not found in token", errorOf(t, w))
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	user, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)

	w := serve(f.engine(user.ID), http.MethodGet, "/users/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, user.ID, got.ID)
	require.NotContains(t, w.Body.String(), "password")
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	user, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)
	r := f.engine(user.ID)

	w := serve(r, http.MethodPost, "/tasks", `{"title":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, errorOf(t, w), "Invalid request body")

	w = serve(r, http.MethodPost, "/tasks", `{"title":"Fix sink","skillRequiredId":"missing","minPrice":10,"maxPrice":20}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/tasks", `{"title":"Fix sink","minPrice":10,"maxPrice":20}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Skill is required", errorOf(t, w))
}

func TestCreateEscrow_Conflict(t *testing.T) {
	f := newFixture(t)
	owner, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)
	task, err := testutil.SeedTask(f.db, owner.ID, nil, models.TaskOpen, 50, 100)
	require.NoError(t, err)
	r := f.engine(owner.ID)

	w := serve(r, http.MethodPost, "/tasks/"+task.ID+"/escrow", `{"amount":"60"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(r, http.MethodPost, "/tasks/"+task.ID+"/escrow", `{"amount":"60"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Escrow payment already exists for this task", errorOf(t, w))

	w = serve(r, http.MethodPost, "/tasks/nope/escrow", `{"amount":"60"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkNotificationRead_OtherUser(t *testing.T) {
	f := newFixture(t)
	alice, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)
	bob, err := testutil.SeedUser(f.db, "Bob")
	require.NoError(t, err)
	n := models.Notification{ID: "n-1", UserID: alice.ID, Message: "hello", CreatedAt: time.Now()}
	require.NoError(t, f.db.Create(&n).Error)

	w := serve(f.engine(bob.ID), http.MethodPost, "/notifications/n-1/read", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(f.engine(alice.ID), http.MethodPost, "/notifications/n-1/read", "")
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)
	owner, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)
	task, err := testutil.SeedTask(f.db, owner.ID, nil, models.TaskOpen, 10, 20)
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	client := &wsClient{}

	require.Equal(t, "Invalid message", f.h.handleCommand(c, client, []byte("{")).Error)
	require.Equal(t, "taskId is required", f.h.handleCommand(c, client, []byte(`{"action":"join"}`)).Error)
	require.Equal(t, "Error", f.h.handleCommand(c, client, []byte(`{"action":"shout","taskId":"x"}`)).Event)

	reply := f.h.handleCommand(c, client, []byte(`{"action":"join","taskId":"missing"}`))
	require.Equal(t, "Error", reply.Event)
	require.Equal(t, "Task (missing) was not found", reply.Error)

	group := realtime.TaskGroup(task.ID)
	reply = f.h.handleCommand(c, client, []byte(`{"action":"JOIN","taskId":"`+task.ID+`"}`))
	require.Equal(t, wsReply{Event: "Joined", Group: group}, reply)
	require.Equal(t, 1, f.hub.Subscribers(group))

	reply = f.h.handleCommand(c, client, []byte(`{"action":"leave","taskId":"`+task.ID+`"}`))
	require.Equal(t, "Left", reply.Event)
	require.Zero(t, f.hub.Subscribers(group))
}

func TestWebSocket_ReceivesPushes(t *testing.T) {
	f := newFixture(t)
	owner, err := testutil.SeedUser(f.db, "Alice")
	require.NoError(t, err)
	task, err := testutil.SeedTask(f.db, owner.ID, nil, models.TaskOpen, 10, 20)
	require.NoError(t, err)

	srv := httptest.NewServer(f.engine(owner.ID))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "join", TaskID: task.ID}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "Joined", reply.Event)
	require.Equal(t, 1, f.hub.Subscribers(realtime.UserGroup(owner.ID)))

	payload := json.RawMessage(`{"taskId":"` + task.ID + `"}`)
	require.NoError(t, f.hub.Publish(t.Context(), realtime.TaskGroup(task.ID), realtime.EventTaskUpdated, payload))

	var env realtime.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, realtime.EventTaskUpdated, env.Event)
	require.Equal(t, realtime.TaskGroup(task.ID), env.Group)
	require.JSONEq(t, string(payload), string(env.Payload))
}
