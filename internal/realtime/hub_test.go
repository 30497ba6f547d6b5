package realtime

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := SessionChannel(uuid.NewString())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventReplyDelta, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventReplyCompleted, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventReplyDelta {
		t.Fatalf("first event: want=%s got=%s", SSEEventReplyDelta, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventReplyCompleted {
		t.Fatalf("second event: want=%s got=%s", SSEEventReplyCompleted, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close=%d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSessionUpdated})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventSessionUpdated {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
	hub.Close()
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := SessionChannel("full")
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, channel)
	defer hub.CloseClient(c)

	for i := 0; i < outboundBuffer+10; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSessionElapsed, Data: i})
	}
	if len(c.Outbound) != outboundBuffer {
		t.Fatalf("buffered=%d want %d", len(c.Outbound), outboundBuffer)
	}
}

func TestSSEHubIgnoresOtherChannels(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, SessionChannel("a"))
	defer hub.CloseClient(c)

	hub.Broadcast(SSEMessage{Channel: SessionChannel("b"), Event: SSEEventReplyDelta})
	hub.Broadcast(SSEMessage{Event: SSEEventReplyDelta})
	if len(c.Outbound) != 0 {
		t.Fatalf("unexpected delivery")
	}
}

func TestServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	hub.SetHeartbeat(20 * time.Millisecond)
	sid := uuid.New()
	channel := SessionChannel(sid.String())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := hub.NewSSEClient(sid)
		hub.AddChannel(c, channel)
		defer hub.CloseClient(c)
		hub.ServeHTTP(w, r, c)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(channel) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventReplyDelta, Data: map[string]string{"delta": "Hi"}})

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), 8192)
	var sawPing, sawEvent bool
	for sc.Scan() && !(sawPing && sawEvent) {
		line := sc.Text()
		if strings.HasPrefix(line, ": ping") {
			sawPing = true
		}
		if line == `data: {"delta":"Hi"}` {
			sawEvent = true
		}
	}
	if !sawEvent || !sawPing {
		t.Fatalf("sawEvent=%v sawPing=%v err=%v", sawEvent, sawPing, sc.Err())
	}
	cancel()
}

type failingRemote struct{ calls int }

func (f *failingRemote) Publish(context.Context, SSEMessage) error {
	f.calls++
	return errors.New("down")
}

func TestPublisherFallsBackToHub(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, "ch")
	defer hub.CloseClient(c)

	remote := &failingRemote{}
	NewPublisher(nil, hub, remote).Publish(context.Background(), SSEMessage{Channel: "ch", Event: SSEEventReplyFailed})
	if remote.calls != 1 {
		t.Fatalf("remote calls=%d", remote.calls)
	}
	recvMessage(t, c.Outbound, time.Second)
}
