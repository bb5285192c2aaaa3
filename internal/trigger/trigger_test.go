package trigger

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sua-org/court-cam/internal/clipper"
	"github.com/sua-org/court-cam/internal/core"
)

type fakeClipper struct {
	sources []core.Source
	offline map[int]bool

	mu       sync.Mutex
	requests []int
	seconds  []int
}

func newFakeClipper() *fakeClipper {
	return &fakeClipper{
		sources: []core.Source{
			{ID: 0, Name: "Court 1 Cam", GroupID: 1},
			{ID: 1, Name: "Court 2 Left", GroupID: 2},
			{ID: 2, Name: "Court 2 Right", GroupID: 2},
		},
		offline: map[int]bool{},
	}
}

func (f *fakeClipper) Sources() []core.Source { return f.sources }

func (f *fakeClipper) RequestClip(id, seconds int) (*clipper.Job, error) {
	f.mu.Lock()
	f.requests = append(f.requests, id)
	f.seconds = append(f.seconds, seconds)
	f.mu.Unlock()

	if id < 0 || id >= len(f.sources) {
		return nil, fmt.Errorf("%w: id %d", core.ErrSourceNotFound, id)
	}
	if f.offline[id] {
		return nil, fmt.Errorf("%w: %s", core.ErrSourceUnavailable, f.sources[id].Name)
	}
	return &clipper.Job{Source: f.sources[id], Seconds: seconds}, nil
}

func (f *fakeClipper) RequestGroupClip(groupID, seconds int) ([]clipper.Outcome, error) {
	var outs []clipper.Outcome
	for _, s := range f.sources {
		if s.GroupID != groupID {
			continue
		}
		job, err := f.RequestClip(s.ID, seconds)
		outs = append(outs, clipper.Outcome{Source: s, Job: job, Err: err})
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrGroupNotFound, groupID)
	}
	return outs, nil
}

func (f *fakeClipper) jobs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestHandle(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		group   int
		offline []int
		want    string
		jobs    int
	}{
		{"group", "2", NoGroup, nil, "ACK: clip started for Court 2 Left, Court 2 Right", 2},
		{"group with newline", " 2\r\n", NoGroup, nil, "ACK: clip started for Court 2 Left, Court 2 Right", 2},
		{"legacy token", "CREATE_CLIP", NoGroup, nil, "ACK: clip started for Court 1 Cam", 1},
		{"legacy token bound", "CREATE_CLIP", 2, nil, "ACK: clip started for Court 2 Left, Court 2 Right", 2},
		{"partial failure", "2", NoGroup, []int{2}, "ACK: clip started for Court 2 Left; failed: Court 2 Right (offline)", 2},
		{"all failed", "1", NoGroup, []int{0}, "NACK: clip failed for Court 1 Cam (offline)", 1},
		{"unknown group", "9", NoGroup, nil, `NACK: unknown group "9"`, 0},
		{"garbage", "abcd", NoGroup, nil, `NACK: unrecognized command "abcd"`, 0},
		{"negative", "-1", NoGroup, nil, `NACK: unrecognized command "-1"`, 0},
		{"empty", "", NoGroup, nil, `NACK: unrecognized command ""`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := newFakeClipper()
			for _, id := range tc.offline {
				fc.offline[id] = true
			}
			d := NewDispatcher(fc, Config{Seconds: 15})

			got := d.Handle(tc.payload, tc.group)
			if got != tc.want {
				t.Fatalf("Handle(%q) = %q, want %q", tc.payload, got, tc.want)
			}
			if fc.jobs() != tc.jobs {
				t.Fatalf("jobs = %d, want %d", fc.jobs(), tc.jobs)
			}
		})
	}
}

func TestReply(t *testing.T) {
	a := core.Source{ID: 0, Name: "Court 2 Left"}
	b := core.Source{ID: 1, Name: "Court 2 Right"}
	cases := []struct {
		name string
		outs []clipper.Outcome
		want string
	}{
		{"no outcomes", nil, "NACK: no sources"},
		{"all started", []clipper.Outcome{
			{Source: a, Job: &clipper.Job{Source: a, Seconds: 10}},
			{Source: b, Job: &clipper.Job{Source: b, Seconds: 10}},
		}, "ACK: clip started for Court 2 Left, Court 2 Right"},
		{"clamped", []clipper.Outcome{
			{Source: a, Job: &clipper.Job{Source: a, Requested: 30, Seconds: 15, Clamped: true}},
			{Source: b, Err: fmt.Errorf("%w: x", core.ErrBufferEmpty)},
		}, "ACK: clip started for Court 2 Left (clamped to 15s); failed: Court 2 Right (buffer empty)"},
		{"none started", []clipper.Outcome{
			{Source: a, Err: fmt.Errorf("%w: x", core.ErrSourceUnavailable)},
		}, "NACK: clip failed for Court 2 Left (offline)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reply(tc.outs); got != tc.want {
				t.Fatalf("Reply = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHandleLegacySourceOffline(t *testing.T) {
	fc := newFakeClipper()
	d := NewDispatcher(fc, Config{LegacySource: 7})

	got := d.Handle("create_clip", NoGroup)
	if got != "NACK: clip failed for source 7 (not found)" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TRIGGER_LEGACY_TOKEN", "")
	t.Setenv("TRIGGER_LEGACY_SOURCE", "2")
	t.Setenv("CLIP_DEFAULT_SECONDS", "12")
	cfg := ConfigFromEnv()
	if cfg.LegacyToken != "CREATE_CLIP" || cfg.LegacySource != 2 || cfg.Seconds != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestUDPRoundTrip(t *testing.T) {
	fc := newFakeClipper()
	l := NewUDPListener("127.0.0.1:0", NoGroup, NewDispatcher(fc, Config{}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Listen(ctx); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	ask := func(msg string) string {
		t.Helper()
		if _, err := conn.Write([]byte(msg)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		buf := make([]byte, maxDatagram)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		return string(buf[:n])
	}

	if got := ask("2"); got != "ACK: clip started for Court 2 Left, Court 2 Right" {
		t.Fatalf("reply = %q", got)
	}
	if got := ask("abcd"); !strings.HasPrefix(got, "NACK") || !strings.Contains(got, "unrecognized") {
		t.Fatalf("reply = %q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve não encerrou")
	}
}

func TestUDPBoundGroup(t *testing.T) {
	fc := newFakeClipper()
	l := NewUDPListener("127.0.0.1:0", 1, NewDispatcher(fc, Config{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := l.Listen(ctx); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() { _ = l.Serve(ctx) }()

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("CREATE_CLIP")); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, maxDatagram)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(buf[:n]); got != "ACK: clip started for Court 1 Cam" {
		t.Fatalf("reply = %q", got)
	}
}

type fakeBroker struct {
	mu       sync.Mutex
	handlers map[string]func(string, []byte)
	replies  chan string
}

func (b *fakeBroker) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.replies <- topic + " " + string(payload)
	return nil
}

func TestSubscribeMQTT(t *testing.T) {
	b := &fakeBroker{handlers: map[string]func(string, []byte){}, replies: make(chan string, 1)}
	if err := SubscribeMQTT(b, "courts/", NewDispatcher(newFakeClipper(), Config{})); err != nil {
		t.Fatalf("SubscribeMQTT: %v", err)
	}
	h, ok := b.handlers["courts/trigger"]
	if !ok {
		t.Fatalf("handlers = %v", b.handlers)
	}
	h("courts/trigger", []byte("1"))

	select {
	case got := <-b.replies:
		if got != "courts/trigger/reply ACK: clip started for Court 1 Cam" {
			t.Fatalf("reply = %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("sem resposta")
	}
}
