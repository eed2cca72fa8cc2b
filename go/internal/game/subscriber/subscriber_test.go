package subscriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tebaklive/admin/go/internal/game/events"
)

func TestWebsocketSourceDeliversInOrder(t *testing.T) {
	frames := []string{
		`{"name":"comment","payload":{"username":"budi","commentText":"pisang"}}`,
		`not even json`,
		`{"payload":{"missing":"name"}}`,
		`{"name":"round","payload":{"open":false}}`,
		`{"name":"wordSet","payload":{"wordLength":6}}`,
	}

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewWebsocketSource("ws" + strings.TrimPrefix(srv.URL, "http"))
	go src.Run(ctx)

	want := []events.Name{events.NameComment, events.NameRound, events.NameWordSet}
	for i, name := range want {
		select {
		case p := <-src.Events():
			if p.Name != name {
				t.Fatalf("push %d: name = %q, want %q", i, p.Name, name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("push %d: timed out waiting for %q", i, name)
		}
	}

	// the malformed frames must have been dropped, not queued
	select {
	case p := <-src.Events():
		t.Fatalf("unexpected extra push: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebsocketSourceStopsOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	src := NewWebsocketSource("ws" + strings.TrimPrefix(srv.URL, "http"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPushFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		wantOK  bool
		want    events.Name
	}{
		{"game.events.comment", true, events.NameComment},
		{"game.events.correct", true, events.NameCorrect},
		{"game.events.state", true, events.NameState},
		{"game.events.", false, ""},
		{"game.events.a.b", false, ""},
		{"other.subject", false, ""},
	}

	for _, tt := range tests {
		push, ok := pushFromSubject(tt.subject, []byte(`{}`))
		if ok != tt.wantOK {
			t.Errorf("%s: ok = %v, want %v", tt.subject, ok, tt.wantOK)
			continue
		}
		if ok && push.Name != tt.want {
			t.Errorf("%s: name = %q, want %q", tt.subject, push.Name, tt.want)
		}
	}
}
