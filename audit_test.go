package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/authtest"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func collect(sink *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case e := <-sink.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func eventTypes(events []AuditEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &countingSink{}, nil)
	if d != nil {
		t.Fatal("disabled audit should not start a dispatcher")
	}
	d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher drops nothing")
	}
}

func TestAuditDispatcherStampsAndFlushes(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink, func() time.Time { return fixed })

	d.Emit(context.Background(), AuditEvent{EventType: AuditRenewal, Cycle: "c1", Success: true})
	d.Close()

	events := collect(sink)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if !events[0].Timestamp.Equal(fixed) || events[0].Cycle != "c1" {
		t.Fatalf("unexpected event %+v", events[0])
	}

	d.Emit(context.Background(), AuditEvent{EventType: AuditRenewal})
	if len(collect(sink)) != 0 {
		t.Fatal("closed dispatcher must not deliver")
	}
}

func TestAuditDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditRequestRetried})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a full queue")
	}
	close(sink.gate)
	d.Close()
}

func TestAuditBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: false}, sink, nil)

	// One event is held by the sink, one fills the queue.
	d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, AuditEvent{EventType: AuditLogin})
	if d.Dropped() != 1 {
		t.Fatalf("expected one drop after ctx timeout, got %d", d.Dropped())
	}
	close(sink.gate)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{EventType: AuditSessionCleared, Success: true, Metadata: map[string]string{"reason": "explicit"}})

	line := strings.TrimSpace(buf.String())
	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid JSON line %q: %v", line, err)
	}
	if got["event_type"] != AuditSessionCleared || got["success"] != true {
		t.Fatalf("unexpected JSON %v", got)
	}
	if _, ok := got["cycle"]; ok {
		t.Fatal("empty cycle should be omitted")
	}
}

func TestClientAuditTrail(t *testing.T) {
	srv := newTestServer(t)
	sink := NewChannelSink(64)
	c := newTestClient(t, srv, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithRequestID(context.Background(), "trail-1")

	if _, err := c.Login(ctx, authtest.DefaultUsername, authtest.DefaultPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	srv.RevokeAccessToken(storedPair(t, c).AccessToken)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL()+authtest.PathWhoAmI, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	_ = c.Close()

	events := collect(sink)
	want := []string{AuditLogin, AuditRenewal, AuditRequestRetried, AuditLogout}
	if got := eventTypes(events); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected audit trail %v, want %v", got, want)
	}
	if events[0].RequestID != "trail-1" || events[0].UserID != "u-1001" {
		t.Fatalf("unexpected login event %+v", events[0])
	}
	if events[1].Cycle == "" || !events[1].Success {
		t.Fatalf("unexpected renewal event %+v", events[1])
	}
}

func TestClientAuditRenewalFailure(t *testing.T) {
	srv := newTestServer(t)
	sink := NewChannelSink(64)
	c := newTestClient(t, srv, func(b *Builder) { b.WithAuditSink(sink) })
	seedSession(t, c, srv, 20*time.Minute, -time.Minute)
	srv.FailRenewals(1, http.StatusBadGateway)

	if _, err := c.AccessToken(context.Background()); err == nil {
		t.Fatal("expected renewal failure")
	}
	_ = c.Close()

	events := collect(sink)
	if len(events) != 1 || events[0].EventType != AuditRenewal || events[0].Success || events[0].Error == "" {
		t.Fatalf("unexpected events %+v", events)
	}
}
