package services

import (
	"context"
	"log"
	"sync"
	"time"

	"fieldtrack/internal/geo"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
)

// Default pinger schedule: one ping shortly after launch, then a slow
// steady interval. Pings are best-effort telemetry only.
const (
	DefaultPingDelay    = 3 * time.Second
	DefaultPingInterval = 5 * time.Minute
)

// Pinger reports the device position in the background, bound to the
// session lifecycle: started at login, stopped at logout. It is fully
// decoupled from the attendance and visit machines; every failure is
// swallowed and nothing is retried early.
type Pinger struct {
	api      repository.AttendanceAPI
	loc      geo.Provider
	session  func() *models.Session
	delay    time.Duration
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPinger creates a pinger with the given schedule. Non-positive values
// fall back to the defaults.
func NewPinger(api repository.AttendanceAPI, loc geo.Provider, session func() *models.Session, delay, interval time.Duration) *Pinger {
	if delay <= 0 {
		delay = DefaultPingDelay
	}
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	return &Pinger{api: api, loc: loc, session: session, delay: delay, interval: interval}
}

// Start launches the ping loop. A second Start without Stop is a no-op.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
}

// Stop cancels the loop and waits for it to exit.
func (p *Pinger) Stop() {
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

func (p *Pinger) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	select {
	case <-ctx.Done():
		return
	case <-time.After(p.delay):
		p.ping(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

// ping sends one position sample. Failures are logged and dropped; the next
// tick tries again.
func (p *Pinger) ping(ctx context.Context) {
	sess := p.session()
	if !sess.Complete() {
		return
	}

	fix, err := p.loc.CurrentFix(ctx, geo.DefaultFixTimeout)
	if err != nil {
		log.Printf("location ping skipped, no fix: %v", err)
		return
	}

	err = p.api.PingLocation(ctx, repository.PingInput{
		UserID:    sess.UserID,
		BranchID:  sess.BranchID,
		CompanyID: sess.CompanyID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  fix.Accuracy,
	})
	if err != nil {
		log.Printf("location ping failed: %v", err)
	}
}
