package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/observability"
)

// DispatcherConfig holds async delivery configuration.
type DispatcherConfig struct {
	// Workers is the number of delivery goroutines. Default: 4.
	Workers int
	// QueueSize is the buffered queue capacity. Default: 1024.
	QueueSize int
	// RateLimit is the maximum deliveries per second. Default: 10.
	RateLimit float64
	// RateBurst is the delivery burst size. Default: 20.
	RateBurst int
	// MaxRetries is the number of retries after a failed delivery. Default: 3.
	MaxRetries int
	// RetryDelay is the wait between delivery attempts. Default: 2s.
	RetryDelay time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// Dispatcher fans lifecycle events out to delivery channels from a worker
// pool. Enqueue never blocks: when the queue is full the event is dropped
// and counted, keeping notification pressure away from the committing
// transaction.
type Dispatcher struct {
	cfg      DispatcherConfig
	channels []Channel
	queue    chan *domain.LifecycleEvent
	limiter  *rate.Limiter
	logger   zerolog.Logger
	metrics  *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher delivering to the given channels.
func NewDispatcher(cfg DispatcherConfig, channels []Channel, logger zerolog.Logger, metrics *observability.Metrics) *Dispatcher {
	cfg.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		queue:    make(chan *domain.LifecycleEvent, cfg.QueueSize),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:   logger.With().Str("component", "notify_dispatcher").Logger(),
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.logger.Info().
		Int("workers", d.cfg.Workers).
		Int("queue_size", d.cfg.QueueSize).
		Int("channels", len(d.channels)).
		Msg("starting notification dispatcher")

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Enqueue submits an event for delivery. It never blocks: a full queue or a
// closed dispatcher drops the event, increments the drop counter, and
// returns false.
func (d *Dispatcher) Enqueue(event *domain.LifecycleEvent) bool {
	if event == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- event:
		d.metrics.RecordNotificationEnqueued(event.EventType)
		return true
	default:
		d.drop(event, "queue full")
		return false
	}
}

// Close stops accepting events, drains the queue, and waits for in-flight
// deliveries, up to the context deadline.
func (d *Dispatcher) Close(ctx context.Context) error {
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
		d.cancel()
		d.logger.Info().Msg("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for event := range d.queue {
		if err := d.limiter.Wait(d.ctx); err != nil {
			// Shutdown deadline hit; deliver remaining events unpaced.
			d.deliver(event)
			continue
		}
		d.deliver(event)
	}
}

// deliver attempts the event on every channel, retrying per channel.
func (d *Dispatcher) deliver(event *domain.LifecycleEvent) {
	for _, ch := range d.channels {
		d.deliverOn(ch, event)
	}
}

func (d *Dispatcher) deliverOn(ch Channel, event *domain.LifecycleEvent) {
	logger := d.logger.With().
		Str("channel", ch.Name()).
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Logger()

	attempts := d.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		err := ch.Send(d.ctx, event)
		if err == nil {
			d.metrics.RecordNotificationSent(ch.Name(), time.Since(start).Seconds())
			return
		}

		logger.Warn().Err(err).
			Int("attempt", attempt).
			Msg("notification delivery failed")

		if attempt < attempts {
			select {
			case <-time.After(d.cfg.RetryDelay):
			case <-d.ctx.Done():
				d.metrics.RecordNotificationFailed(ch.Name())
				return
			}
		}
	}

	d.metrics.RecordNotificationFailed(ch.Name())
	logger.Error().Int("attempts", attempts).Msg("notification delivery exhausted retries")
}

func (d *Dispatcher) drop(event *domain.LifecycleEvent, reason string) {
	d.metrics.RecordNotificationDropped()
	d.logger.Warn().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("reason", reason).
		Msg("notification dropped")
}
