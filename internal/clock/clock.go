package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into services.
type Clock interface {
	Now() time.Time
	// NewTicker delivers ticks on C every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. C has capacity 1; ticks are dropped when
// the reader falls behind.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}

// Manual is a clock that only moves when told to. Its tickers fire from
// Set and Advance.
type Manual struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	tickers []*manualTicker
}

type manualTicker struct {
	ch       chan time.Time
	next     time.Time
	interval time.Duration
	stopped  bool
}

// NewManual returns a manual clock set to t.
func NewManual(t time.Time) *Manual {
	m := &Manual{now: t.UTC()}
	m.changed = sync.NewCond(&m.mu)
	return m
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &manualTicker{ch: make(chan time.Time, 1), next: m.now.Add(d), interval: d}
	m.tickers = append(m.tickers, mt)
	m.changed.Broadcast()
	return &Ticker{C: mt.ch, stop: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		mt.stopped = true
		m.changed.Broadcast()
	}}
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.fireLocked()
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.fireLocked()
	m.mu.Unlock()
}

// WaitForTickers blocks until at least n tickers are running.
func (m *Manual) WaitForTickers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.activeLocked() < n {
		m.changed.Wait()
	}
}

func (m *Manual) activeLocked() int {
	n := 0
	for _, t := range m.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// fireLocked sends one tick to every ticker that came due, at most one per
// call, and reschedules it past now.
func (m *Manual) fireLocked() {
	for _, t := range m.tickers {
		if t.stopped || t.next.After(m.now) {
			continue
		}
		select {
		case t.ch <- m.now:
		default:
		}
		for !t.next.After(m.now) {
			t.next = t.next.Add(t.interval)
		}
	}
}
