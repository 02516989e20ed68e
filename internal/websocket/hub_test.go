package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(h *Hub, username string) *Client {
	return &Client{hub: h, username: username, send: make(chan []byte, 4)}
}

func addClients(h *Hub, clients ...*Client) {
	for _, c := range clients {
		if h.clients[c.username] == nil {
			h.clients[c.username] = make(map[*Client]struct{})
		}
		h.clients[c.username][c] = struct{}{}
	}
}

func receive(t *testing.T, c *Client) models.WSMessage {
	t.Helper()
	select {
	case b := <-c.send:
		var got models.WSMessage
		require.NoError(t, json.Unmarshal(b, &got))
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for message to %s", c.username)
	}
	return models.WSMessage{}
}

func requireNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("unexpected message to %s: %s", c.username, b)
	default:
	}
}

func TestHubDispatch(t *testing.T) {
	h := NewHub(nil, discardLogger())
	justin := newTestClient(h, "Justin")
	vasu := newTestClient(h, "Vasu")
	cynthia := newTestClient(h, "Cynthia")
	addClients(h, justin, vasu, cynthia)

	h.dispatch(models.Envelope{
		Recipients: []string{"Justin", "Vasu"},
		Message:    models.WSMessage{Event: models.EventMessageNew},
	})
	require.Equal(t, models.EventMessageNew, receive(t, justin).Event)
	require.Equal(t, models.EventMessageNew, receive(t, vasu).Event)
	requireNothing(t, cynthia)

	h.dispatch(models.Envelope{Public: true, Message: models.WSMessage{Event: models.EventMemberAdded}})
	for _, c := range []*Client{justin, vasu, cynthia} {
		require.Equal(t, models.EventMemberAdded, receive(t, c).Event)
	}
}

func TestHubDispatchDropsSlowClient(t *testing.T) {
	h := NewHub(nil, discardLogger())
	slow := &Client{hub: h, username: "Justin", send: make(chan []byte)}
	addClients(h, slow)

	h.dispatch(models.Envelope{Public: true, Message: models.WSMessage{Event: models.EventMessageNew}})

	require.False(t, h.IsUserOnline("Justin"))
	_, open := <-slow.send
	require.False(t, open)
}

func TestHubDispatchReachesEveryTab(t *testing.T) {
	h := NewHub(nil, discardLogger())
	tab1 := newTestClient(h, "Justin")
	tab2 := newTestClient(h, "Justin")
	addClients(h, tab1, tab2)

	h.dispatch(models.Envelope{Recipients: []string{"Justin"}, Message: models.WSMessage{Event: "hello"}})
	require.Equal(t, "hello", receive(t, tab1).Event)
	require.Equal(t, "hello", receive(t, tab2).Event)
	require.ElementsMatch(t, []string{"Justin"}, h.OnlineUsers())
	require.True(t, h.IsUserOnline("Justin"))
}

func TestClientErrorAfterHubStopped(t *testing.T) {
	h := NewHub(nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := NewClient(h, nil, "Justin", &fakePoster{}, nil)
	require.True(t, h.Register(c))
	cancel()
	<-h.done

	require.NotPanics(t, func() { c.handleMessage([]byte("not json")) })
	for range c.send {
	}
}

func TestClientErrorAfterDroppedAsSlow(t *testing.T) {
	h := NewHub(nil, discardLogger())
	slow := &Client{hub: h, username: "Justin", send: make(chan []byte), poster: &fakePoster{}}
	addClients(h, slow)

	h.dispatch(models.Envelope{Public: true, Message: models.WSMessage{Event: models.EventMessageNew}})

	require.NotPanics(t, func() { slow.handleMessage([]byte(`{"event":"typing.start"}`)) })
}

func TestHubBroadcastBusy(t *testing.T) {
	h := NewHub(nil, discardLogger())
	for i := 0; i < cap(h.deliver); i++ {
		require.NoError(t, h.Broadcast(models.Envelope{Public: true}))
	}
	require.ErrorIs(t, h.Broadcast(models.Envelope{Public: true}), ErrHubBusy)
}

func TestHubRunRegistersAndStops(t *testing.T) {
	h := NewHub(nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	justin := newTestClient(h, "Justin")
	require.True(t, h.Register(justin))

	presence := receive(t, justin)
	require.Equal(t, models.EventPresenceUpdate, presence.Event)

	cancel()
	<-h.done
	require.False(t, h.Register(newTestClient(h, "Vasu")))
	h.Unregister(justin)
}

type fakePoster struct {
	mu    sync.Mutex
	calls []models.WSMessageSendPayload
	err   error
}

func (f *fakePoster) PostMessage(actor, title, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, models.WSMessageSendPayload{Title: title, Content: content})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: uuid.New(), Content: content}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, string) bool { return false }

func TestClientHandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		posterErr error
		limiter   Limiter
		wantCode  string
		posted    int
	}{
		{name: "send", raw: `{"event":"message.send","payload":{"title":"general","content":"hi"}}`, posted: 1},
		{name: "bad json", raw: `{`, wantCode: "bad_request"},
		{name: "unknown event", raw: `{"event":"typing.start"}`, wantCode: "bad_request"},
		{name: "missing title", raw: `{"event":"message.send","payload":{"content":"hi"}}`, wantCode: "bad_request"},
		{
			name:      "forbidden",
			raw:       `{"event":"message.send","payload":{"title":"team","content":"hi"}}`,
			posterErr: models.ErrForbidden,
			wantCode:  "forbidden",
			posted:    1,
		},
		{
			name:     "rate limited",
			raw:      `{"event":"message.send","payload":{"title":"general","content":"hi"}}`,
			limiter:  denyAll{},
			wantCode: "rate_limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{err: tt.posterErr}
			h := NewHub(nil, discardLogger())
			c := NewClient(h, nil, "Justin", poster, tt.limiter)

			c.handleMessage([]byte(tt.raw))

			require.Len(t, poster.calls, tt.posted)
			if tt.wantCode == "" {
				requireNothing(t, c)
				return
			}
			got := receive(t, c)
			require.Equal(t, models.EventError, got.Event)
			payload, _ := got.Payload.(map[string]any)
			require.Equal(t, tt.wantCode, payload["code"])
		})
	}
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, "not_found", errorCode(models.ErrNotFound))
	require.Equal(t, "unauthenticated", errorCode(models.ErrUnauthenticated))
	require.Equal(t, "internal", errorCode(errors.New("boom")))
}

func TestMatchOrigin(t *testing.T) {
	require.True(t, matchOrigin("http://localhost:3000", "http://localhost:3000"))
	require.True(t, matchOrigin("*.example.com", "https://chat.example.com"))
	require.False(t, matchOrigin("*.example.com", "https://evilexample.com"))
	require.False(t, matchOrigin("http://localhost:3000", "http://localhost:4000"))
}

type staticUsers map[string]uuid.UUID

func (s staticUsers) GetUser(name string) (*models.User, bool) {
	id, ok := s[name]
	return &models.User{ID: id, Name: name}, ok
}

func (s staticUsers) GetUserID(name string) (uuid.UUID, bool) {
	id, ok := s[name]
	return id, ok
}

func TestHandleWebSocketEndToEnd(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)

	h := NewHub(nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	jwtService := auth.NewJWTService("secret", 1)
	justinID := uuid.New()
	handler := NewHandler(h, jwtService, staticUsers{"Justin": justinID}, &fakePoster{}, nil, nil)

	r := gin.New()
	r.GET("/ws", handler.HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	token, err := jwtService.GenerateToken(justinID, "Justin")
	req.NoError(err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	req.NoError(err)
	defer conn.Close()

	req.Eventually(func() bool { return h.IsUserOnline("Justin") }, time.Second, 10*time.Millisecond)
	req.NoError(h.Broadcast(models.Envelope{
		Recipients: []string{"Justin"},
		Message:    models.WSMessage{Event: models.EventMessageNew, Payload: map[string]string{"content": "hi"}},
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg models.WSMessage
		req.NoError(conn.ReadJSON(&msg))
		if msg.Event == models.EventMessageNew {
			break
		}
		req.Equal(models.EventPresenceUpdate, msg.Event)
	}
}
