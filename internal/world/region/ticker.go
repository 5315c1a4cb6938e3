package region

import (
	"strconv"
	"sync"
	"time"

	"github.com/opencraft/voxelcore/internal/metrics"
)

// tickQueueSlack is the small buffer spec §4.D.4 allows before the timer starts
// dropping ticks instead of queueing them; maxLag is the watchdog saturation
// point (§5 "region lag watchdog").
const (
	tickQueueSlack = 20
	maxLag         = 255
	nominalTickHz  = 20
)

// lagAccountant is the pure decision logic behind the region ticker, kept
// separate from real timers so it can be tested deterministically: given how
// many posted ticks are still unacknowledged, decide whether to post this
// timer firing at all, and whether it should be a catch-up double-tick.
type lagAccountant struct {
	pending int
	lag     int
}

// onTimerFire is called once per nominal tick interval. If the actor already has
// tickQueueSlack ticks outstanding, this firing is dropped and lag grows
// (saturating at maxLag); otherwise a tick is posted, consuming one unit of
// accumulated lag as a double-tick when lag is outstanding.
func (a *lagAccountant) onTimerFire() (count int, post bool) {
	if a.pending >= tickQueueSlack {
		if a.lag < maxLag {
			a.lag++
		}
		return 0, false
	}
	count = 1
	if a.lag > 0 {
		count = 2
		a.lag--
	}
	a.pending++
	return count, true
}

// onTickAcked is called when the region actor finishes processing a posted tick.
func (a *lagAccountant) onTickAcked() {
	if a.pending > 0 {
		a.pending--
	}
}

// Ticker drives a Region's PerformTick schedule from a dedicated goroutine,
// never touching region state directly — only ever posting into its mailbox,
// per the "keep-alive and tick scheduling are periodic cooperative loops,
// implemented as dedicated tasks" design note.
type Ticker struct {
	pos      Position
	handle   Handle
	interval time.Duration
	stop     chan struct{}

	mu   sync.Mutex // acct is touched by Run and by per-tick ack goroutines
	acct lagAccountant

	lagGauge func(lag int)
}

// NewTicker builds a ticker for the region at pos at the nominal 20 Hz rate
// scaled by speedup (speedup > 1 runs the timer faster than real time, for
// accelerated tests).
func NewTicker(pos Position, handle Handle, speedup float64) *Ticker {
	interval := time.Second / time.Duration(nominalTickHz)
	if speedup > 0 {
		interval = time.Duration(float64(interval) / speedup)
	}
	x := strconv.FormatInt(int64(pos.X), 10)
	z := strconv.FormatInt(int64(pos.Z), 10)
	return &Ticker{
		pos:      pos,
		handle:   handle,
		interval: interval,
		stop:     make(chan struct{}),
		lagGauge: func(lag int) {
			metrics.RegionTickLag.WithLabelValues(x, z).Set(float64(lag))
		},
	}
}

// Run drives the ticker loop until Stop is called.
func (t *Ticker) Run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			count, post := t.acct.onTimerFire()
			t.lagGauge(t.acct.lag)
			t.mu.Unlock()
			if !post {
				continue
			}
			ack := make(chan struct{}, 1)
			t.handle.send(PerformTick{Count: count, ack: ack})
			go func() {
				<-ack
				t.mu.Lock()
				t.acct.onTickAcked()
				t.mu.Unlock()
			}()
		}
	}
}

// Stop ends the ticker loop.
func (t *Ticker) Stop() { close(t.stop) }

// Lag returns the current accumulated lag counter (operator-observable, per §5).
func (t *Ticker) Lag() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acct.lag
}
