package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

func testHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func fakeClient(h *Hub, buffer int) *Client {
	c := &Client{id: "fake", hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastFanOut(t *testing.T) {
	h, _ := testHub(t)
	a := fakeClient(h, 4)
	b := fakeClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]int{"frame": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Kind != KindJSON || string(msg.Data) != `{"frame":1}` {
				t.Errorf("unexpected message %+v", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := testHub(t)
	slow := fakeClient(h, 0)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastJPEG([]byte{0xff, 0xd8})
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel should be closed")
	}
}

func TestHub_Unregister(t *testing.T) {
	h, _ := testHub(t)
	c := fakeClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := testHub(t)
	c := fakeClient(h, 1)
	waitFor(t, func() bool { return h.IsRunning() && h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("hub should report stopped")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on stop")
	}
}

func TestMessage_FrameType(t *testing.T) {
	if got := (Message{Kind: KindJPEG}).frameType(); got != websocket.BinaryMessage {
		t.Errorf("jpeg: got frame type %d", got)
	}
	if got := (Message{Kind: KindJSON}).frameType(); got != websocket.TextMessage {
		t.Errorf("json: got frame type %d", got)
	}
}
