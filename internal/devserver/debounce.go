package devserver

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultQuietWindow is how long the filesystem must stay quiet before a
	// burst of change events collapses into one rebuild.
	DefaultQuietWindow = 200 * time.Millisecond
	// DefaultMaxDelay bounds how long a continuous stream of events can
	// postpone the rebuild.
	DefaultMaxDelay = 2 * time.Second
)

// Debouncer coalesces bursts of change notifications into single emissions
// on C. It implements quiet-window debounce with a max-delay bound: rebuilds
// fire once changes settle, but a nonstop stream of events cannot starve the
// consumer.
//
// Notify never blocks. Run is a single goroutine.
type Debouncer struct {
	quiet time.Duration
	max   time.Duration

	in chan struct{}
	c  chan struct{}

	mu      sync.Mutex
	pending bool
}

func NewDebouncer(quiet, max time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	return &Debouncer{
		quiet: quiet,
		max:   max,
		in:    make(chan struct{}, 64),
		c:     make(chan struct{}, 1),
	}
}

// Notify records one change event. Safe from any goroutine.
func (d *Debouncer) Notify() {
	select {
	case d.in <- struct{}{}:
	default:
		// A full input channel means a flush is already inevitable.
	}
}

// C delivers one value per coalesced burst. Capacity one: an emission that
// arrives while the consumer is busy folds into the queued one.
func (d *Debouncer) C() <-chan struct{} {
	return d.c
}

// Run drives the timers until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var quietC, maxC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-d.in:
			d.mu.Lock()
			first := !d.pending
			d.pending = true
			d.mu.Unlock()

			resetTimer(quietTimer, d.quiet)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.max)
				maxC = maxTimer.C
			}

		case <-quietC:
			d.emit()
			quietC, maxC = nil, nil

		case <-maxC:
			d.emit()
			quietC, maxC = nil, nil
		}
	}
}

func (d *Debouncer) emit() {
	d.mu.Lock()
	d.pending = false
	d.mu.Unlock()
	select {
	case d.c <- struct{}{}:
	default:
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
