package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type blockingSink struct {
	release chan struct{}
	got     chan Event
}

func (b *blockingSink) Emit(_ context.Context, e Event) {
	<-b.release
	b.got <- e
}

func TestDispatcherAssignsIDsAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), Event{EventType: "login_success", Success: true})
	d.Emit(context.Background(), Event{EventType: "logout", Success: true})
	d.Close()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		e := <-sink.Events()
		if e.EventID == "" || e.Timestamp.IsZero() {
			t.Fatalf("expected id and timestamp to be filled, got %+v", e)
		}
		if seen[e.EventID] {
			t.Fatalf("duplicate event id %s", e.EventID)
		}
		seen[e.EventID] = true
	}
}

type panicSink struct {
	after *ChannelSink
}

func (p panicSink) Emit(ctx context.Context, e Event) {
	if e.EventType == "bad" {
		panic("sink failure")
	}
	p.after.Emit(ctx, e)
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	sink := panicSink{after: NewChannelSink(4)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{EventType: "bad"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	if got := (<-sink.after.Events()).EventType; got != "logout" {
		t.Fatalf("expected logout delivered after the panic, got %q", got)
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected the panicking delivery counted as lost, got %d", d.Dropped())
	}
}

func TestDispatcherCountsByTypeAndStampsWithClock(t *testing.T) {
	stamp := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, Now: func() time.Time { return stamp }}, sink)

	for _, typ := range []string{"logout", "login_success", "logout"} {
		d.Emit(context.Background(), Event{EventType: typ})
	}
	got := d.Counts()
	d.Close()

	want := []TypeCount{{EventType: "login_success", Count: 1}, {EventType: "logout", Count: 2}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Counts() = %v, want %v", got, want)
	}
	if e := <-sink.Events(); !e.Timestamp.Equal(stamp) {
		t.Fatalf("expected injected timestamp, got %v", e.Timestamp)
	}
	var nilDispatcher *Dispatcher
	if nilDispatcher.Counts() != nil {
		t.Fatal("nil dispatcher must report no counts")
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), got: make(chan Event, 16)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "token_validated"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a stalled sink and a one-slot buffer")
	}
	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{EventID: "a", EventType: "login_failure", Error: "credentials_incorrect"})
	s.Emit(context.Background(), Event{EventID: "b", EventType: "logout", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if e.EventType != "login_failure" || e.Error != "credentials_incorrect" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{EventType: "logout"})
	if (<-a.Events()).EventType != "logout" || (<-b.Events()).EventType != "logout" {
		t.Fatal("expected both sinks to receive the event")
	}
}
