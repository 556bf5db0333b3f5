// Package calclog persists a summary of every calculator run without letting
// persistence failures reach the caller.
package calclog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/pkg/mathutil"
	"go.uber.org/zap"
)

// Entry is one recorded calculator run.
type Entry = models.CalculatorLog

// Sink stores entries. store.CalculatorLogRepository satisfies it.
type Sink interface {
	InsertCalculatorLog(ctx context.Context, entry *Entry) error
}

// ErrClosed is returned by Close when the recorder was already closed.
var ErrClosed = errors.New("recorder closed")

// FromSummary builds an entry from a projection summary. Units and savings
// are rounded to the two decimals the log table stores.
func FromSummary(s projection.Summary) *Entry {
	return &Entry{
		City:           string(s.City),
		MonthlyBill:    s.MonthlyBill,
		EstimatedUnits: mathutil.Round(s.EstimatedUnits),
		SystemSizeKW:   s.SystemSizeKW,
		AnnualSavings:  mathutil.Round(s.AnnualSavings),
		PaybackYears:   s.PaybackYears,
	}
}

// Recorder hands entries to a background worker through a bounded queue.
type Recorder struct {
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration

	queue chan *Entry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder with the given queue size and per-insert timeout.
// A nil sink produces a recorder that discards entries.
func NewRecorder(sink Sink, logger *zap.Logger, queueSize int, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r := &Recorder{
		sink:    sink,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan *Entry, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues an entry. It never blocks; a full queue drops the entry.
func (r *Recorder) Record(entry *Entry) {
	if entry == nil || r.sink == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("calculator log queue full; dropping entry",
			zap.String("op", "calclog.Record"),
			zap.String("city", entry.City),
		)
	}
}

// Close stops accepting entries and waits for queued ones to be written or for
// ctx to expire.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.sink.InsertCalculatorLog(ctx, entry); err != nil {
		r.logger.Warn("calculator log persistence warning",
			zap.String("op", "calclog.write"),
			zap.String("city", entry.City),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("calculator run recorded",
		zap.String("op", "calclog.write"),
		zap.String("id", entry.ID.String()),
	)
}
