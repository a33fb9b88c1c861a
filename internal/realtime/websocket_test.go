package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/caficafe-chat/internal/agent"
	"github.com/ashureev/caficafe-chat/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type echoChatter struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (c *echoChatter) Chat(_ context.Context, userID, message string) (agent.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
	if c.err != nil {
		return agent.Reply{}, c.err
	}
	return agent.Reply{Text: "echo: " + message, At: time.Now()}, nil
}

func startServer(t *testing.T, chatter Chatter, limiter *agent.RateLimiter) (*httptest.Server, *SessionManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm := NewSessionManager(logger)
	srv := httptest.NewServer(NewHandler(chatter, sm, limiter, 1000, []string{"http://localhost:3000"}, logger))
	t.Cleanup(srv.Close)
	return srv, sm
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, msg wsMessage) wsMessage {
	t.Helper()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var resp wsMessage
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return resp
}

func TestWebSocketChat(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chatter := &echoChatter{}
	srv, _ := startServer(t, chatter, nil)
	conn := dial(t, ctx, srv, "user_id=user_ws1&session_id=tab-1")

	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "ping"}); resp.Type != "pong" {
		t.Errorf("expected pong, got %+v", resp)
	}

	resp := roundTrip(t, ctx, conn, wsMessage{Type: "message", Content: "  Are you   open today? "})
	if resp.Type != "reply" || resp.Content != "echo: Are you open today?" {
		t.Errorf("unexpected reply: %+v", resp)
	}
	if resp.Timestamp == "" {
		t.Error("expected reply timestamp")
	}

	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "message", Content: "exploit"}); resp.Type != "error" || resp.Content != "Message contains prohibited content." {
		t.Errorf("unexpected validation reply: %+v", resp)
	}
	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "bogus"}); resp.Type != "error" {
		t.Errorf("unexpected reply to unknown type: %+v", resp)
	}

	chatter.mu.Lock()
	defer chatter.mu.Unlock()
	if len(chatter.users) != 1 || chatter.users[0] != "user_ws1" {
		t.Errorf("chatter saw users %v", chatter.users)
	}
}

func TestWebSocketChatErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	limiter := agent.NewRateLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	srv, _ := startServer(t, &echoChatter{err: errors.New("disk full")}, limiter)
	conn := dial(t, ctx, srv, "user_id=user_ws2")

	// Rejected messages leave the single allowed request unused.
	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "message", Content: "   "}); resp.Content != "Message cannot be empty." {
		t.Errorf("unexpected reply: %+v", resp)
	}
	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "message", Content: "hi"}); resp.Content != "Internal server error" {
		t.Errorf("unexpected reply: %+v", resp)
	}
	if resp := roundTrip(t, ctx, conn, wsMessage{Type: "message", Content: "hi again"}); resp.Content != "rate limit exceeded" {
		t.Errorf("unexpected reply: %+v", resp)
	}
}

func TestWebSocketReplacesSession(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, sm := startServer(t, &echoChatter{}, nil)
	first := dial(t, ctx, srv, "user_id=user_ws3&session_id=tab")
	roundTrip(t, ctx, first, wsMessage{Type: "ping"})

	second := dial(t, ctx, srv, "user_id=user_ws3&session_id=tab")
	roundTrip(t, ctx, second, wsMessage{Type: "ping"})

	var msg wsMessage
	if err := wsjson.Read(ctx, first, &msg); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("expected replaced socket to be closed normally, got %v", err)
	}
	if sm.Count() != 1 {
		t.Errorf("expected one live session, got %d", sm.Count())
	}
}

func TestWebSocketWithoutSessionIDKeepsBothSockets(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, sm := startServer(t, &echoChatter{}, nil)
	first := dial(t, ctx, srv, "user_id=user_ws4")
	roundTrip(t, ctx, first, wsMessage{Type: "ping"})
	second := dial(t, ctx, srv, "user_id=user_ws4")
	roundTrip(t, ctx, second, wsMessage{Type: "ping"})

	if resp := roundTrip(t, ctx, first, wsMessage{Type: "ping"}); resp.Type != "pong" {
		t.Errorf("first socket stopped answering: %+v", resp)
	}
	if sm.Count() != 2 {
		t.Errorf("expected two live sessions, got %d", sm.Count())
	}
}

func TestSessionIDFromQuery(t *testing.T) {
	t.Parallel()

	if got := sessionIDFromQuery("tab-7"); got != "tab-7" {
		t.Errorf("sessionIDFromQuery(tab-7) = %q", got)
	}
	a, b := sessionIDFromQuery(""), sessionIDFromQuery("  ")
	if a == "" || a == b || a == identity.DefaultSessionIDValue {
		t.Errorf("blank session IDs should be fresh and distinct, got %q and %q", a, b)
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	got := originPatterns([]string{"https://munyanezaarmel.github.io", "http://localhost:5500", "*", "::bad"})
	want := []string{"munyanezaarmel.github.io", "localhost:5500", "*"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d = %q, want %q", i, got[i], want[i])
		}
	}
}
