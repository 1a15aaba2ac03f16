package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/alphapile/pilesched/config"
	coremon "github.com/alphapile/pilesched/core/monitoring"
)

type transport struct {
	events []*sentry.Event
}

func (t *transport) Configure(sentry.ClientOptions) {}
func (t *transport) SendEvent(e *sentry.Event)      { t.events = append(t.events, e) }
func (t *transport) Flush(time.Duration) bool       { return true }

func TestEmptyDSNIsNop(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitorTags(t *testing.T) {
	tr := &transport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@example.com/1", Transport: tr})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(errors.New("solve failed"), map[string]string{"task_id": "t1"})
	m.CaptureException(nil, nil)
	m.CapturePanic("boom", map[string]string{"task_id": "t2"})
	m.Flush(time.Second)

	if len(tr.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tr.events))
	}
	if tr.events[0].Tags["task_id"] != "t1" || tr.events[1].Tags["task_id"] != "t2" {
		t.Fatalf("tags not propagated: %v %v", tr.events[0].Tags, tr.events[1].Tags)
	}
}
