package calclog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/mathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSink struct {
	mu      sync.Mutex
	entries []*Entry
	err     error
	block   chan struct{}
}

func (f *fakeSink) InsertCalculatorLog(ctx context.Context, entry *Entry) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestFromSummary(t *testing.T) {
	proj, err := projection.Compute(projection.Input{City: projection.Mumbai, MonthlyBill: 2500, RoofType: projection.Flat})
	require.NoError(t, err)

	entry := FromSummary(proj.Summary())
	assert.Equal(t, "Mumbai", entry.City)
	assert.Equal(t, 2500.0, entry.MonthlyBill)
	assert.Equal(t, mathutil.Round(proj.EstimatedMonthlyUnits), entry.EstimatedUnits)
	assert.True(t, mathutil.WithinTolerance(proj.EstimatedMonthlyUnits, entry.EstimatedUnits, constants.CurrencyTolerance))
	assert.Equal(t, 2.5, entry.SystemSizeKW)
	assert.Equal(t, 30000.0, entry.AnnualSavings)
	assert.Equal(t, proj.PaybackYears, entry.PaybackYears)
}

func TestRecorderDrainsOnClose(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink, zap.NewNop(), 16, time.Second)

	for i := 0; i < 10; i++ {
		rec.Record(&Entry{City: "Delhi", MonthlyBill: float64(1000 + i)})
	}

	require.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, 10, sink.count())
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &fakeSink{err: errors.New("connection refused")}
	rec := NewRecorder(sink, zap.New(core), 4, time.Second)

	rec.Record(&Entry{City: "Chennai"})
	require.NoError(t, rec.Close(context.Background()))

	entries := logs.FilterMessage("calculator log persistence warning").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &fakeSink{block: make(chan struct{})}
	rec := NewRecorder(sink, zap.New(core), 1, time.Second)

	start := time.Now()
	for i := 0; i < 20; i++ {
		rec.Record(&Entry{City: "Mumbai"})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond, "Record must not block")
	assert.NotZero(t, logs.FilterMessage("calculator log queue full; dropping entry").Len())

	close(sink.block)
	require.NoError(t, rec.Close(context.Background()))
	assert.LessOrEqual(t, sink.count(), 2)
}

func TestRecorderCloseTwice(t *testing.T) {
	rec := NewRecorder(&fakeSink{}, nil, 1, time.Second)
	require.NoError(t, rec.Close(context.Background()))
	assert.ErrorIs(t, rec.Close(context.Background()), ErrClosed)

	// Recording after close is a no-op.
	rec.Record(&Entry{City: "Delhi"})
}

func TestRecorderNilSinkDiscards(t *testing.T) {
	rec := NewRecorder(nil, nil, 1, 0)
	rec.Record(&Entry{City: "Delhi"})
	require.NoError(t, rec.Close(context.Background()))
}

func TestRecorderCloseHonoursContext(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	rec := NewRecorder(sink, nil, 4, time.Minute)
	rec.Record(&Entry{City: "Delhi"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rec.Close(ctx), context.DeadlineExceeded)
	close(sink.block)
}
