// Package sender runs replies to Telegram on a small worker pool so handlers
// return without waiting on the API.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

const component = "tg.sender"

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
	// OnResult observes every finished job, e.g. to feed delivery counters.
	OnResult func(action string, err error)
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers; zero options fall back to defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run without blocking. run must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits until the queue drains.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	attempts := d.opts.MaxRetries + 1
	attempt, err := 0, error(nil)
	for attempt = 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			break
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break
		}
		pause := netutil.Pause(err, attempt, d.opts.RetryBackoff)
		logger.Debug(j.ctx, component, "send.retry",
			append(j.attrs(),
				slog.Int("attempt", attempt),
				slog.Duration("delay", pause),
				slog.String("error_kind", netutil.Kind(err)),
			)...,
		)
		if serr := netutil.Sleep(ctx, pause); serr != nil {
			err = serr
			break
		}
	}

	elapsed := logger.Took(start)
	if err != nil {
		logger.Error(j.ctx, component, "send.fail",
			append(j.attrs(),
				slog.String("error", netutil.Redact(err)),
				slog.String("error_kind", netutil.Kind(err)),
				slog.Int("attempts", attempt),
				slog.Duration("duration", elapsed),
			)...,
		)
	} else {
		level := logger.Debug
		if attempt > 1 {
			level = logger.Info
		}
		level(j.ctx, component, "send.success",
			append(j.attrs(),
				slog.Int("attempt", attempt),
				slog.Duration("duration", elapsed),
			)...,
		)
	}
	if d.opts.OnResult != nil {
		d.opts.OnResult(j.action, err)
	}
}
