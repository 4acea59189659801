package messaging_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/storage/memory"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

var (
	client    = order.Actor{ID: "client-1", Role: order.RoleClient}
	craftsman = order.Actor{ID: "craftsman-1", Role: order.RoleCraftsman}
	stranger  = order.Actor{ID: "craftsman-2", Role: order.RoleCraftsman}
)

type env struct {
	store  *memory.Store
	clock  *clock.Fake
	engine *order.Engine
	hub    *messaging.Hub
	svc    *messaging.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{store: memory.New(), clock: clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))}
	e.hub = messaging.NewHub(zap.NewNop())
	e.engine = order.NewEngine(order.Params{
		Store:         e.store,
		Subscriptions: e.store,
		Directory:     e.store,
		Events:        e.hub,
		Clock:         e.clock,
	})
	e.svc = messaging.NewService(e.store, e.engine, e.store, e.store, e.hub, e.clock, zap.NewNop())

	ctx := context.Background()
	for _, u := range []auth.User{
		{ID: client.ID, Name: "سارة", Email: "sara@example.com", Role: order.RoleClient},
		{ID: craftsman.ID, Name: "أحمد", Email: "ahmad@example.com", Role: order.RoleCraftsman, Specialty: "نجارة"},
		{ID: stranger.ID, Name: "محمد", Email: "mohammad@example.com", Role: order.RoleCraftsman, Specialty: "نجارة"},
	} {
		require.NoError(t, e.store.CreateUser(ctx, u))
	}
	subs := subscription.NewService(e.store, e.clock, zap.NewNop())
	for _, id := range []string{craftsman.ID, stranger.ID} {
		_, err := subs.Subscribe(ctx, id, "العضوية الشهرية", 50, subscription.Monthly)
		require.NoError(t, err)
	}
	return e
}

func (e *env) engagedOrder(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	o, err := e.engine.Create(ctx, client, order.CreateRequest{Title: "باب خشب", Category: "نجارة", Price: 200})
	require.NoError(t, err)
	_, err = e.engine.Engage(ctx, o.ID, craftsman)
	require.NoError(t, err)
	return o.ID
}

func TestSendAndReadFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.engagedOrder(t)

	m, err := e.svc.Send(ctx, client, id, messaging.SendRequest{Content: "  متى تستطيع الحضور؟ "})
	require.NoError(t, err)
	assert.Equal(t, craftsman.ID, m.RecipientID)
	assert.Equal(t, messaging.TypeText, m.Type)
	assert.Equal(t, messaging.StatusSent, m.Status)
	assert.Equal(t, "متى تستطيع الحضور؟", m.Content)

	o, err := e.store.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.True(t, o.HasUnreadMessages)

	n, err := e.svc.UnreadCount(ctx, craftsman)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	notes, err := e.store.ListNotifications(ctx, craftsman.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "رسالة من سارة", notes[0].Body)

	// the sender listing does not clear anything addressed to the other side
	msgs, err := e.svc.List(ctx, client, id, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].ReadAt)

	o, err = e.store.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.True(t, o.HasUnreadMessages)

	e.clock.Advance(time.Minute)
	msgs, err = e.svc.List(ctx, craftsman, id, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, messaging.StatusRead, msgs[0].Status)
	require.NotNil(t, msgs[0].ReadAt)

	o, err = e.store.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.False(t, o.HasUnreadMessages)

	n, err = e.svc.UnreadCount(ctx, craftsman)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListSince(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.engagedOrder(t)

	first, err := e.svc.Send(ctx, client, id, messaging.SendRequest{Content: "مرحبا"})
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	_, err = e.svc.Send(ctx, craftsman, id, messaging.SendRequest{Content: "24.7136,46.6753", Type: messaging.TypeLocation})
	require.NoError(t, err)

	msgs, err := e.svc.List(ctx, client, id, &first.CreatedAt)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, messaging.TypeLocation, msgs[0].Type)
}

func TestSendRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.engagedOrder(t)

	_, err := e.svc.Send(ctx, client, id, messaging.SendRequest{Content: "   "})
	assert.Equal(t, order.KindValidation, order.KindOf(err))

	_, err = e.svc.Send(ctx, client, id, messaging.SendRequest{Content: "x", Type: "video"})
	assert.Equal(t, order.KindValidation, order.KindOf(err))

	_, err = e.svc.Send(ctx, client, id, messaging.SendRequest{Content: strings.Repeat("ب", 2001)})
	assert.Equal(t, order.KindValidation, order.KindOf(err))

	_, err = e.svc.Send(ctx, stranger, id, messaging.SendRequest{Content: "hi"})
	assert.Equal(t, order.KindUnauthorized, order.KindOf(err))

	_, err = e.svc.Send(ctx, client, "missing", messaging.SendRequest{Content: "hi"})
	assert.Equal(t, order.KindNotFound, order.KindOf(err))

	open, err := e.engine.Create(ctx, client, order.CreateRequest{Title: "رف", Category: "نجارة", Price: 80})
	require.NoError(t, err)
	_, err = e.svc.Send(ctx, client, open.ID, messaging.SendRequest{Content: "hello?"})
	assert.Equal(t, order.KindInvalidTransition, order.KindOf(err))
}

func TestHandlers(t *testing.T) {
	e := newEnv(t)
	id := e.engagedOrder(t)
	h := messaging.NewHandler(e.svc, e.hub)
	srv := echo.New()

	call := func(method, target, body string, actor order.Actor, fn echo.HandlerFunc) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := srv.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		c.Set("actor", actor)
		require.NoError(t, fn(c))
		return rec
	}

	rec := call(http.MethodPost, "/orders/"+id+"/messages", `{"content":"السلام عليكم"}`, client, h.SendMessage)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = call(http.MethodPost, "/orders/"+id+"/messages", `{"content":"hi"}`, stranger, h.SendMessage)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"unauthorized"`)

	rec = call(http.MethodGet, "/orders/"+id+"/messages?since=yesterday", "", craftsman, h.ListMessages)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodGet, "/messages/unread", "", craftsman, h.UnreadCount)
	assert.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = call(http.MethodGet, "/orders/"+id+"/messages", "", craftsman, h.ListMessages)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"read"`)
}

func TestWebsocketReceivesStatusAndMessages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.engagedOrder(t)
	h := messaging.NewHandler(e.svc, e.hub)

	srv := echo.New()
	srv.GET("/orders/:id/ws", h.OrderWS, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("actor", client)
			return next(c)
		}
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/orders/"+id+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	read := func() map[string]interface{} {
		var evt map[string]interface{}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&evt))
		return evt
	}
	assert.Equal(t, messaging.EventPresenceJoin, read()["type"])

	_, err = e.engine.Accept(ctx, id, craftsman)
	require.NoError(t, err)
	evt := read()
	assert.Equal(t, messaging.EventOrderStatus, evt["type"])
	assert.Equal(t, "waiting_client_approval", evt["data"].(map[string]interface{})["to"])

	_, err = e.svc.Send(ctx, craftsman, id, messaging.SendRequest{Content: "جاهز"})
	require.NoError(t, err)
	assert.Equal(t, messaging.EventMessageNew, read()["type"])
}
