package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/observability"

	"go.uber.org/zap"
)

// Options configures a Dispatcher.
type Options struct {
	// TrackingID identifies the analytics property. Empty disables dispatch.
	TrackingID string
	QueueSize  int
	Workers    int
	// Timeout bounds each provider call.
	Timeout time.Duration
	IPs     logic.IPAnonymizer
	UAs     logic.UserAgentAnonymizer
}

// Dispatcher queues events and delivers them from a fixed pool of workers.
// Event never blocks and never reports delivery errors to the caller.
type Dispatcher struct {
	opts     Options
	provider Provider
	metrics  observability.MetricsRegistry
	logger   *zap.Logger
	now      func() time.Time

	// fraction of successful deliveries that are logged
	logSampleRate float64

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker pool. With an empty TrackingID or a nil
// provider no workers are started and Event is a no-op.
func NewDispatcher(opts Options, provider Provider, metrics observability.MetricsRegistry, logger *zap.Logger) *Dispatcher {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.IPs == (logic.IPAnonymizer{}) {
		opts.IPs = logic.DefaultIPAnonymizer
	}

	d := &Dispatcher{
		opts:     opts,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,

		logSampleRate: observability.GetSamplingRate(),
	}
	if !d.Enabled() {
		d.closed = true
		return d
	}

	d.queue = make(chan Event, opts.QueueSize)
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enabled reports whether events are delivered at all.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.opts.TrackingID != "" && d.provider != nil
}

// Event records an analytics event for the visitor at uip with user agent
// ua. Both are anonymized before leaving the process; a "cid" param is used
// as the client id, otherwise a random one is assigned.
func (d *Dispatcher) Event(uip, ua string, params map[string]string) {
	if !d.Enabled() {
		return
	}

	ev := Event{
		Time:       d.now().UTC(),
		TrackingID: d.opts.TrackingID,
		Params:     make(map[string]string, len(params)),
	}
	for k, v := range params {
		ev.Params[k] = v
	}
	if cid := ev.Params["cid"]; cid != "" {
		ev.ClientID = cid
	} else {
		ev.ClientID = uuid.NewString()
	}
	delete(ev.Params, "cid")

	if uip != "" {
		ev.IP, _ = d.opts.IPs.Anonymize(uip)
	}
	if ua != "" {
		ev.UserAgent = d.opts.UAs.Anonymize(ua)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.IncrementAnalyticsEvents("dropped")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.metrics.IncrementAnalyticsEvents("dropped")
		d.logger.Warn("analytics queue full, dropping event")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()

	if err := d.provider.Send(ctx, ev); err != nil {
		d.metrics.IncrementAnalyticsEvents("failed")
		d.logger.Warn("analytics event not delivered", zap.Error(err))
		return
	}
	d.metrics.IncrementAnalyticsEvents("sent")
	if observability.ShouldSample(d.logSampleRate) {
		d.logger.Info("analytics event delivered",
			zap.String("category", ev.Params["ec"]),
			zap.String("action", ev.Params["ea"]))
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
