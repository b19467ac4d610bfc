package worker

import (
	"context"
	"sync"
	"time"

	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

const (
	defaultQueueSize   = 16
	defaultIdleTimeout = 5 * time.Minute
)

// Handler processes one event. ctx is cancelled when the pool stops or a
// preempting event arrives for the same key.
type Handler[E any] func(ctx context.Context, ev E)

type Options struct {
	QueueSize   int
	IdleTimeout time.Duration
	// OnDrop is called when an event is discarded because the key's queue is full.
	OnDrop func(key int64)
}

// Pool runs events of one key strictly in order and events of different keys concurrently.
type Pool[E any] struct {
	handler     Handler[E]
	queueSize   int
	idleTimeout time.Duration
	onDrop      func(key int64)

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	workers map[int64]*keyWorker[E]
	stopped bool
}

type keyWorker[E any] struct {
	queue  chan item[E]
	cancel context.CancelFunc
	// epoch grows with every preempt; items queued under an older epoch are stale.
	epoch uint64
}

type item[E any] struct {
	ev    E
	epoch uint64
}

func New[E any](handler Handler[E], opts Options) *Pool[E] {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}

	base, stop := context.WithCancel(context.Background())

	return &Pool[E]{
		handler:     handler,
		queueSize:   opts.QueueSize,
		idleTimeout: opts.IdleTimeout,
		onDrop:      opts.OnDrop,
		base:        base,
		stop:        stop,
		workers:     make(map[int64]*keyWorker[E]),
	}
}

// Submit queues ev for key. With preempt set, the event in flight for key is
// cancelled and events still waiting in its queue are discarded. Submit never
// blocks and reports whether the event was queued.
func (p *Pool[E]) Submit(key int64, ev E, preempt bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}

	w, ok := p.workers[key]
	if !ok {
		w = &keyWorker[E]{queue: make(chan item[E], p.queueSize)}
		p.workers[key] = w
		p.wg.Add(1)
		go p.run(key, w)
	}

	if preempt {
		p.preemptLocked(key, w)
	}

	select {
	case w.queue <- item[E]{ev: ev, epoch: w.epoch}:
		return true
	default:
		logx.Warn().Int64("user_id", key).Msg("event queue full - event dropped")
		if p.onDrop != nil {
			p.onDrop(key)
		}
		return false
	}
}

// Active returns the number of keys that currently own a worker goroutine.
func (p *Pool[E]) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.workers)
}

// Stop cancels in-flight work and waits for every worker to exit.
func (p *Pool[E]) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.stop()
	p.wg.Wait()
}

func (p *Pool[E]) run(key int64, w *keyWorker[E]) {
	defer p.wg.Done()

	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-p.base.Done():
			return
		case it := <-w.queue:
			if ctx, ok := p.begin(w, it); ok {
				p.handle(ctx, key, w, it.ev)
			}
			idle.Reset(p.idleTimeout)
		case <-idle.C:
			p.mu.Lock()
			if len(w.queue) == 0 {
				delete(p.workers, key)
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			idle.Reset(p.idleTimeout)
		}
	}
}

// preemptLocked cancels the running event of w and discards everything queued
// or already dequeued but not yet started. p.mu must be held.
func (p *Pool[E]) preemptLocked(key int64, w *keyWorker[E]) {
	w.epoch++
	if w.cancel != nil {
		w.cancel()
	}
	if discarded := drain(w.queue); discarded > 0 {
		logx.Debug().Int64("user_id", key).Int("discarded", discarded).Msg("queued events discarded by reset")
	}
}

// begin installs the cancel func for it, or reports false when a preempt
// arrived after it was queued.
func (p *Pool[E]) begin(w *keyWorker[E], it item[E]) (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if it.epoch != w.epoch {
		return nil, false
	}

	ctx, cancel := context.WithCancel(p.base)
	w.cancel = cancel
	return ctx, true
}

func (p *Pool[E]) handle(ctx context.Context, key int64, w *keyWorker[E], ev E) {
	defer func() {
		p.mu.Lock()
		cancel := w.cancel
		w.cancel = nil
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		if r := recover(); r != nil {
			logx.Error().Int64("user_id", key).Interface("panic", r).Msg("event handler panicked")
		}
	}()

	p.handler(ctx, ev)
}

func drain[E any](queue chan item[E]) int {
	n := 0
	for {
		select {
		case <-queue:
			n++
		default:
			return n
		}
	}
}
