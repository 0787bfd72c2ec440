package realtime

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	MinRefreshInterval = 5 * time.Second
	MaxRefreshInterval = 30 * time.Second
)

// ErrPollerRunning is returned by Start on a poller that is already running.
var ErrPollerRunning = errors.New("poller already running")

// ClampInterval limits d to [MinRefreshInterval, MaxRefreshInterval]. A
// non-positive d selects the maximum.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return MaxRefreshInterval
	case d < MinRefreshInterval:
		return MinRefreshInterval
	case d > MaxRefreshInterval:
		return MaxRefreshInterval
	}
	return d
}

// Poller calls tick on a fixed interval between Start and Stop. It owns no
// global state; each caller constructs and stops its own.
type Poller struct {
	interval time.Duration
	tick     func(ctx context.Context, now time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller returns a stopped poller. interval is used as given; callers
// that take it from configuration clamp it with ClampInterval first.
func NewPoller(interval time.Duration, tick func(ctx context.Context, now time.Time)) *Poller {
	return &Poller{interval: interval, tick: tick}
}

// Start begins ticking in a background goroutine. The loop ends when ctx is
// cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			p.tick(ctx, now)
		}
	}
}

// Stop cancels the loop and waits for an in-flight tick to finish. It is
// safe to call on a stopped poller, and the poller may be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poller has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
