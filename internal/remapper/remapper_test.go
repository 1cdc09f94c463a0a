package remapper

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evremap/evremap/internal/engine"
	"github.com/evremap/evremap/internal/mapping"
)

// fakeSource feeds a fixed event sequence, one per NextEvent call, then
// blocks until the test cancels the context — a recording fake applied
// to the read side instead of the write side.
type fakeSource struct {
	events []engine.Event
	idx    int
	closed bool
	mu     sync.Mutex
	done   <-chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) NextEvent() (engine.Event, error) {
	f.mu.Lock()
	if f.idx < len(f.events) {
		ev := f.events[f.idx]
		f.idx++
		f.mu.Unlock()
		return ev, nil
	}
	f.mu.Unlock()
	<-f.done
	return engine.Event{}, context.Canceled
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type fakeSink struct {
	mu  sync.Mutex
	out []engine.Out
}

func (f *fakeSink) Apply(out []engine.Out) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, out...)
	return nil
}

func (f *fakeSink) snapshot() []engine.Out {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engine.Out, len(f.out))
	copy(out, f.out)
	return out
}

func testLogger() *charmlog.Logger {
	return charmlog.NewWithOptions(io.Discard, charmlog.Options{})
}

func TestRunDeliversPassthroughAndTearsDownOnCancel(t *testing.T) {
	tbl, err := mapping.NewTable(nil, nil, 50*time.Millisecond)
	require.NoError(t, err)
	eng := engine.New(tbl)

	done := make(chan struct{})
	src := &fakeSource{
		events: []engine.Event{
			{Code: 30, State: engine.KeyPress},
		},
		done: done,
	}
	sink := &fakeSink{}

	r := New(src, sink, eng, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) > 0
	}, time.Second, time.Millisecond)

	cancel()
	close(done)
	<-runErr

	out := sink.snapshot()
	assert.Contains(t, out, engine.Out{Kind: engine.OutPress, Code: 30})

	src.mu.Lock()
	assert.True(t, src.closed)
	src.mu.Unlock()
}

func TestSetEnabledRoutesThroughRunGoroutine(t *testing.T) {
	tbl, err := mapping.NewTable(nil, nil, 50*time.Millisecond)
	require.NoError(t, err)
	eng := engine.New(tbl)

	done := make(chan struct{})
	src := &fakeSource{
		events: []engine.Event{
			{Code: 30, State: engine.KeyPress},
		},
		done: done,
	}
	sink := &fakeSink{}

	r := New(src, sink, eng, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) > 0
	}, time.Second, time.Millisecond)

	r.SetEnabled(false)

	require.Eventually(t, func() bool {
		for _, o := range sink.snapshot() {
			if o.Kind == engine.OutRelease && o.Code == 30 {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	cancel()
	close(done)
	<-runErr
}

func TestRunResolvesHoldOnTimerExpiry(t *testing.T) {
	tbl, err := mapping.NewTable(
		[]mapping.DualRole{{Input: 58, Hold: []mapping.KeyCode{29}, Tap: []mapping.KeyCode{1}}},
		nil, 30*time.Millisecond,
	)
	require.NoError(t, err)
	eng := engine.New(tbl)

	done := make(chan struct{})
	src := &fakeSource{
		events: []engine.Event{{Code: 58, State: engine.KeyPress}},
		done:   done,
	}
	sink := &fakeSink{}

	r := New(src, sink, eng, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, o := range sink.snapshot() {
			if o.Kind == engine.OutPress && o.Code == 29 {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	cancel()
	close(done)
	<-runErr
}
