package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Writer persists batches of calls. *Store implements it.
type Writer interface {
	Insert(ctx context.Context, calls ...*Call) error
}

// RecorderConfig configures the recorder.
type RecorderConfig struct {
	Writer        Writer
	BatchSize     int           // Flush after N calls (default: 50)
	FlushInterval time.Duration // Or after duration (default: 2s)
	QueueSize     int           // Buffer size (default: 1000)
	Logger        *slog.Logger
}

// Recorder handles fire-and-forget call recording. Calls are queued and
// written in batches by a single goroutine.
type Recorder struct {
	writer Writer
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	queue   chan *Call
	flushCh chan chan struct{}
	batch   []*Call

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// NewRecorder creates a recorder. Call Start before recording.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Recorder{
		writer:        cfg.Writer,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan *Call, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
		batch:         make([]*Call, 0, cfg.BatchSize),
	}
}

// Start begins processing queued calls.
func (r *Recorder) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Add(1)
	go r.run()
}

// Stop flushes remaining calls and shuts down.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		r.wg.Wait()
		if r.cancel != nil {
			r.cancel()
		}
		r.logger.Debug("call recorder stopped")
	})
}

// Record queues a call. It never blocks; calls are dropped when the queue is
// full or the recorder is stopped.
func (r *Recorder) Record(call *Call) {
	if r == nil || r.writer == nil || call == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("recorder stopped, dropping call", "provider", call.Provider)
		return
	}
	select {
	case r.queue <- call:
	default:
		r.logger.Warn("recorder queue full, dropping call", "provider", call.Provider)
	}
}

// Flush writes everything queued so far and waits for the write.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil
	}
	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case call, ok := <-r.queue:
			if !ok {
				r.flush()
				return
			}
			r.batch = append(r.batch, call)
			if len(r.batch) >= r.batchSize {
				r.flush()
			}

		case <-ticker.C:
			r.flush()

		case done := <-r.flushCh:
			r.drain()
			r.flush()
			close(done)
		}
	}
}

// drain moves already-queued calls into the batch.
func (r *Recorder) drain() {
	for {
		select {
		case call, ok := <-r.queue:
			if !ok {
				return
			}
			r.batch = append(r.batch, call)
		default:
			return
		}
	}
}

func (r *Recorder) flush() {
	if len(r.batch) == 0 {
		return
	}
	calls := r.batch
	r.batch = make([]*Call, 0, r.batchSize)

	r.logger.Debug("flushing call batch", "count", len(calls))
	if err := r.writer.Insert(r.ctx, calls...); err != nil {
		r.logger.Error("failed to record calls", "count", len(calls), "error", err)
	}
}
