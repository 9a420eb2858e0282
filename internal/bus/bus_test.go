package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// orderedSink appends its id to a shared trace so tests can observe
// delivery order across sinks.
type orderedSink struct {
	id    string
	trace *[]string
	err   error
	recs  []lifecycle.Record
}

func (s *orderedSink) Write(rec lifecycle.Record) error {
	*s.trace = append(*s.trace, s.id)
	s.recs = append(s.recs, rec)
	return s.err
}

func record(msg string) lifecycle.Record {
	return lifecycle.Record{
		RunID:     "run-1",
		Name:      "bus-world",
		Event:     lifecycle.EventSystem,
		Level:     lifecycle.LevelInfo,
		Message:   msg,
		Timestamp: time.Unix(0, 0).UTC(),
	}
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	var trace []string
	b := New()
	for _, id := range []string{"first", "second", "third"} {
		b.Register(&orderedSink{id: id, trace: &trace})
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	if err := b.Publish(record("a development")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(trace) != len(want) {
		t.Fatalf("delivered to %d sinks, want %d", len(trace), len(want))
	}
	for i, id := range want {
		if trace[i] != id {
			t.Fatalf("delivery order %v, want %v", trace, want)
		}
	}
}

func TestPublishContinuesPastFailingSink(t *testing.T) {
	var trace []string
	broken := &orderedSink{id: "broken", trace: &trace, err: errors.New("sink down")}
	after := &orderedSink{id: "after", trace: &trace}

	b := New()
	b.Register(broken)
	b.Register(after)

	err := b.Publish(record("a development"))
	if err == nil || !errors.Is(err, broken.err) {
		t.Fatalf("Publish error = %v, want the broken sink's error", err)
	}
	if len(after.recs) != 1 {
		t.Fatalf("sink after the failure got %d records, want 1", len(after.recs))
	}
}

func TestPublishJoinsAllErrors(t *testing.T) {
	var trace []string
	first := &orderedSink{id: "first", trace: &trace, err: errors.New("first down")}
	second := &orderedSink{id: "second", trace: &trace, err: errors.New("second down")}

	b := New()
	b.Register(first)
	b.Register(second)

	err := b.Publish(record("a development"))
	if !errors.Is(err, first.err) || !errors.Is(err, second.err) {
		t.Fatalf("Publish error = %v, want both sink errors joined", err)
	}
}

func TestPublishWithoutSinks(t *testing.T) {
	b := New()
	if err := b.Publish(record("a development")); err != nil {
		t.Fatalf("Publish on an empty bus: %v", err)
	}
}
