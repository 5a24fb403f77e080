package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CycleFunc runs one polling cycle. gen identifies the cycle; a cycle whose
// generation is no longer current must not publish results.
type CycleFunc func(ctx context.Context, gen uint64) error

// Poller runs a cycle on a fixed interval, but only once the UI has been
// idle for IdleDelay. It can be suspended (while a detail view is open) and
// invalidated (when the date, filter or visible bookings change), which
// cancels the running cycle.
type Poller struct {
	cycle     CycleFunc
	interval  time.Duration
	idleDelay time.Duration
	log       logrus.FieldLogger
	now       func() time.Time

	mu           sync.Mutex
	gen          uint64
	cancel       context.CancelFunc
	suspended    bool
	lastActivity time.Time
	running      bool

	kick chan struct{}
}

// NewPoller creates a poller. Start must be called to begin polling.
func NewPoller(cycle CycleFunc, interval, idleDelay time.Duration, log logrus.FieldLogger) *Poller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		cycle:     cycle,
		interval:  interval,
		idleDelay: idleDelay,
		log:       log.WithField("component", "poller"),
		now:       time.Now,
		kick:      make(chan struct{}, 1),
	}
}

// Start polls until ctx is done. The first cycle runs once the UI is idle.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	timer := time.NewTimer(p.idleDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.cancelRunning()
			return
		case <-p.kick:
			resetTimer(timer, p.idleDelay)
		case <-timer.C:
			if wait := p.untilIdle(); wait > 0 {
				timer.Reset(wait)
				continue
			}
			if p.Suspended() {
				timer.Reset(p.interval)
				continue
			}
			p.RunOnce(ctx)
			timer.Reset(p.interval)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// untilIdle returns how long to wait before the UI counts as idle.
func (p *Poller) untilIdle() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastActivity.IsZero() {
		return 0
	}
	return p.lastActivity.Add(p.idleDelay).Sub(p.now())
}

// RunOnce runs one cycle now under a fresh generation and returns it. A
// suspended poller does nothing and returns 0.
func (p *Poller) RunOnce(ctx context.Context) uint64 {
	p.mu.Lock()
	if p.suspended {
		p.mu.Unlock()
		return 0
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	cctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	err := p.cycle(cctx, gen)

	p.mu.Lock()
	if p.gen == gen {
		p.cancel = nil
	}
	p.mu.Unlock()
	cancel()

	switch {
	case err == nil:
	case cctx.Err() != nil:
		p.log.WithField("generation", gen).Debug("cycle cancelled")
	default:
		p.log.WithError(err).WithField("generation", gen).Warn("cycle failed")
	}
	return gen
}

func (p *Poller) cancelRunning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Generation returns the generation of the newest cycle.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// IsCurrent reports whether gen is still the newest cycle.
func (p *Poller) IsCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

// Touch records UI activity, pushing the next cycle back by IdleDelay.
func (p *Poller) Touch() {
	p.mu.Lock()
	p.lastActivity = p.now()
	p.mu.Unlock()
}

// Suspend stops polling and cancels the running cycle.
func (p *Poller) Suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
	p.cancelRunning()
}

// Resume re-arms polling after Suspend.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.suspended = false
	p.mu.Unlock()
	p.poke()
}

// Suspended reports whether polling is suspended.
func (p *Poller) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// Invalidate makes the running cycle stale, cancels it, and schedules a
// new one after the idle delay.
func (p *Poller) Invalidate() {
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.poke()
}

func (p *Poller) poke() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}
