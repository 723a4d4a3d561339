// Package analyzertest provides a hand-driven clock for analyzer tests.
package analyzertest

import (
	"sync"
	"time"

	"github.com/kozaktomas/facelens/internal/analyzer"
)

// Clock is an analyzer.Clock whose tickers fire only when Tick is called.
type Clock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewClock creates a clock without tickers.
func NewClock() *Clock {
	return &Clock{}
}

// NewTicker implements analyzer.Clock.
func (m *Clock) NewTicker(d time.Duration) analyzer.Ticker {
	t := &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

// Tick delivers one tick to every active ticker and returns once each has
// been received. Stopped tickers are skipped.
func (m *Clock) Tick() {
	m.mu.Lock()
	tickers := make([]*manualTicker, len(m.tickers))
	copy(tickers, m.tickers)
	m.mu.Unlock()

	now := time.Now()
	for _, t := range tickers {
		select {
		case t.c <- now:
		case <-t.stopped:
		}
	}
}

// Active returns the number of tickers that were not stopped.
func (m *Clock) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		select {
		case <-t.stopped:
		default:
			n++
		}
	}
	return n
}

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}
