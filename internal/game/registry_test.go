package game

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// serverConn hands back the server side of a live websocket so tests can
// build registry entries by hand.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ch := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ch <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case ws := <-ch:
		t.Cleanup(func() { ws.Close() })
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("server connection never arrived")
		return nil
	}
}

func TestBroadcastDropsSlowConnWithoutBlocking(t *testing.T) {
	reg := NewRegistry(discardLogger())

	// The disconnect callback takes the same lock the broadcaster holds,
	// exactly as the session does during a state broadcast.
	var stateMu sync.Mutex
	reg.SetHandlers(nil, func(*Conn) {
		stateMu.Lock()
		defer stateMu.Unlock()
	})

	c := &Conn{
		ID:       "slow",
		Role:     RoleDisplay,
		ws:       serverConn(t),
		send:     make(chan []byte), // unbuffered and never drained
		registry: reg,
	}
	reg.mu.Lock()
	reg.conns[c] = struct{}{}
	reg.mu.Unlock()

	stateMu.Lock()
	done := make(chan struct{})
	go func() {
		reg.Broadcast(map[string]string{"type": "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked while dropping a slow connection")
	}
	stateMu.Unlock()

	waitFor(t, "slow connection removal", func() bool { return reg.Count() == 0 })
}

func TestBroadcastRacingDisconnectDoesNotPanic(t *testing.T) {
	reg := NewRegistry(discardLogger())

	conns := make([]*Conn, 200)
	for i := range conns {
		c := &Conn{
			ID:       strconv.Itoa(i),
			Role:     RoleDisplay,
			send:     make(chan []byte, sendBufferSize),
			registry: reg,
		}
		conns[i] = c
		reg.mu.Lock()
		reg.conns[c] = struct{}{}
		reg.mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			reg.Broadcast(map[string]int{"seq": i})
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range conns {
			reg.remove(c)
		}
	}()
	wg.Wait()

	if got := reg.Count(); got != 0 {
		t.Errorf("connections left = %d, want 0", got)
	}
}
