// Package bus provides the in-process event bus that fans lifecycle
// records out to registered sinks. Delivery is synchronous and ordered;
// persistence and batching are the sinks' concern, not the bus's.
package bus

import (
	"errors"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// Sink receives lifecycle records published on the bus.
type Sink interface {
	Write(lifecycle.Record) error
}

// Bus delivers records to all registered sinks in registration order.
type Bus struct {
	sinks []Sink
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Register appends a sink. There is no unregistration; the bus lives as
// long as the run it serves.
func (b *Bus) Register(s Sink) {
	b.sinks = append(b.sinks, s)
}

// Publish delivers rec to every sink in registration order and returns
// once all have been invoked. A failing sink does not stop delivery to
// the sinks after it; all errors are joined.
func (b *Bus) Publish(rec lifecycle.Record) error {
	var errs []error
	for _, s := range b.sinks {
		if err := s.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered sinks.
func (b *Bus) Len() int {
	return len(b.sinks)
}
