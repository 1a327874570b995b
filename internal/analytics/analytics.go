// Package analytics dispatches anonymized visitor events to an analytics
// backend without blocking the request that produced them.
package analytics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned when a provider's backend is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Event is one analytics hit. IP and UserAgent are already anonymized by the
// time a provider sees them.
type Event struct {
	Time       time.Time
	TrackingID string
	ClientID   string
	IP         string
	UserAgent  string
	// Params holds the caller's event fields, e.g. ec/ea/el for category,
	// action and label.
	Params map[string]string
}

// Provider delivers events to a backend.
type Provider interface {
	Send(ctx context.Context, ev Event) error
}

// Multi sends every event to each provider in turn.
type Multi []Provider

// Send implements Provider. All providers are attempted; their errors are joined.
func (m Multi) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordingProvider keeps every event in memory. Used in tests and as a
// debugging sink.
type RecordingProvider struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from Send after recording the event.
	Err error
}

// Send implements Provider.
func (r *RecordingProvider) Send(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *RecordingProvider) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
