package eventbus

import (
	"testing"
	"time"

	"pkt.systems/codeyard/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(SessionTopic("s1"))
	defer cancel()

	event := schema.SessionEvent{Type: schema.SessionEventCodeUpdated, SessionID: "s1", ParticipantID: "p1", Code: "x"}
	bus.OnSessionEvent(event)

	select {
	case got := <-ch:
		if got.Type != EventSession {
			t.Fatalf("expected session event, got %v", got.Type)
		}
		if got.Session.SessionID != event.SessionID || got.Session.Code != "x" {
			t.Fatalf("unexpected payload: %+v", got.Session)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := New(nil)
	sessionCh, cancelSession := bus.Subscribe(SessionTopic("s1"))
	defer cancelSession()
	deployCh, cancelDeploy := bus.Subscribe(DeploymentTopic("d1"))
	defer cancelDeploy()

	bus.OnSessionEvent(schema.SessionEvent{SessionID: "other"})
	bus.OnDeploymentEvent(schema.DeploymentEvent{DeploymentID: "d1", Progress: 10})

	select {
	case got := <-deployCh:
		if got.Type != EventDeployment || got.Deployment.Progress != 10 {
			t.Fatalf("unexpected deployment event: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for deployment event")
	}
	select {
	case got := <-sessionCh:
		t.Fatalf("unexpected event on unrelated topic: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(SessionTopic("s1"))
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if n := bus.Subscribers(SessionTopic("s1")); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe(SessionTopic("s1"))
	defer cancel()

	bus.OnSessionEvent(schema.SessionEvent{SessionID: "s1"})
	done := make(chan struct{})
	go func() {
		bus.OnSessionEvent(schema.SessionEvent{SessionID: "s1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}
