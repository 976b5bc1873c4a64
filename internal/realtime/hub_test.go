package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestPublishReachesOnlyTheFamily(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("family"))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dial := func(family string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?family="+family, nil)
		if err != nil {
			t.Fatalf("dial %s: %v", family, err)
		}
		return conn
	}

	a := dial("fam-a")
	defer a.Close()
	b := dial("fam-b")
	defer b.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Publish("fam-a", map[string]string{"type": "xp_added"}); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := a.ReadMessage()
	if err != nil {
		t.Fatalf("read fam-a: %v", err)
	}
	if string(msg) != `{"type":"xp_added"}` {
		t.Errorf("message = %s", msg)
	}

	b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, msg, err := b.ReadMessage(); err == nil {
		t.Errorf("fam-b received %s", msg)
	}
}
