package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
	got      chan struct{}
}

func newRecorder() *recordingSubscriber {
	return &recordingSubscriber{got: make(chan struct{}, 16)}
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("gone")
	}
	r.payloads = append(r.payloads, p)
	r.got <- struct{}{}
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recordingSubscriber) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestHubPublishesToTeamSubscribersOnly(t *testing.T) {
	hub := NewHub(8)
	defer hub.Stop()

	teamA, teamB := newRecorder(), newRecorder()
	hub.Register("team-a", teamA)
	hub.Register("team-b", teamB)

	if err := hub.Publish(Event{Type: MemberInvited, TeamID: "team-a", UserID: "u1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, teamA.got)

	var e Event
	if err := json.Unmarshal(teamA.payloads[0], &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != MemberInvited || e.UserID != "u1" || e.OccurredAt.IsZero() {
		t.Fatalf("unexpected event %+v", e)
	}

	// a second broadcast to team-a proves team-b saw nothing in between
	_ = hub.Publish(Event{Type: MemberRemoved, TeamID: "team-a"})
	waitFor(t, teamA.got)
	if len(teamB.got) != 0 {
		t.Fatalf("team-b must not receive team-a events")
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub(8)
	defer hub.Stop()

	bad := newRecorder()
	bad.fail = true
	good := newRecorder()
	hub.Register("team", bad)
	hub.Register("team", good)

	_ = hub.Publish(Event{Type: MemberJoinRequested, TeamID: "team"})
	waitFor(t, good.got)
	// the next delivery starts only after the previous fan-out finished
	_ = hub.Publish(Event{Type: MemberRemoved, TeamID: "team"})
	waitFor(t, good.got)
	if !bad.isClosed() {
		t.Fatalf("failing subscriber should be closed")
	}
}

func TestHubStopClosesSubscribersAndRejectsPublish(t *testing.T) {
	hub := NewHub(1)
	sub := newRecorder()
	hub.Register("team", sub)
	hub.Stop()

	deadline := time.Now().Add(time.Second)
	for !sub.isClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not closed after Stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := hub.Publish(Event{TeamID: "team"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestSSEClientFramesPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	payload, err := encode(Event{Type: MemberInvited, TeamID: "team", UserID: "7"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := client.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Send([]byte(`{"teamId":"team"}`)); err != nil {
		t.Fatalf("send untyped: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	want := "event: member.invited\ndata: " + string(payload) + "\n\n" +
		"data: {\"teamId\":\"team\"}\n\n" +
		": ping\n\n"
	if body := rec.Body.String(); body != want {
		t.Fatalf("unexpected stream %q", body)
	}

	client.Close()
	if err := client.Send([]byte("x")); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after close, got %v", err)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("data: x")) {
		t.Fatalf("closed client must not write")
	}
}
