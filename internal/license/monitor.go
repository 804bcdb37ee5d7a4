package license

import (
	"context"
	"log"
	"sync"
	"time"
)

// Monitor is a long-lived background loop that drives sweeps at a fixed
// cadence. The two production instances - expiration and tamper - run the
// identical sweep and differ only in interval, initial stagger and log
// label. The stagger keeps two loops launched at process boot from
// colliding on their first database hit.
type Monitor struct {
	label    string
	interval time.Duration
	stagger  time.Duration
	guard    *GuardService

	ctx       context.Context
	cancel    context.CancelFunc
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirationMonitor sweeps at a slow cadence (default 24h) aimed at
// expiry and remote revocation churn.
func NewExpirationMonitor(guard *GuardService, intervalHours int) *Monitor {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return newMonitor("ExpirationMonitor", guard, time.Duration(intervalHours)*time.Hour, 30*time.Second)
}

// NewTamperMonitor sweeps at a fast cadence (default 2h) so local tampering
// is caught within hours rather than a day.
func NewTamperMonitor(guard *GuardService, intervalHours int) *Monitor {
	if intervalHours <= 0 {
		intervalHours = 2
	}
	return newMonitor("TamperMonitor", guard, time.Duration(intervalHours)*time.Hour, 2*time.Minute)
}

func newMonitor(label string, guard *GuardService, interval, stagger time.Duration) *Monitor {
	return &Monitor{
		label:    label,
		interval: interval,
		stagger:  stagger,
		guard:    guard,
		stopChan: make(chan struct{}),
	}
}

// Start begins the monitor loop.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()

	log.Printf("%s started (interval: %v, stagger: %v)", m.label, m.interval, m.stagger)
}

// Stop stops the monitor and waits for the loop to exit. An in-flight
// remote fetch is cancelled so shutdown is prompt.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	m.cancel()
	close(m.stopChan)
	m.wg.Wait()
	log.Printf("%s stopped", m.label)
}

func (m *Monitor) run() {
	defer m.wg.Done()

	// Initial sweep after the stagger delay
	select {
	case <-time.After(m.stagger):
		m.sweep()
	case <-m.stopChan:
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep runs one guarded iteration. Errors and panics are contained here;
// a background job must never take the host process down with it.
func (m *Monitor) sweep() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: panic during sweep: %v", m.label, r)
		}
	}()

	if err := m.guard.Sweep(m.ctx, m.label); err != nil {
		// Already logged with context by the guard; unreachable remotes
		// self-heal on the next interval.
		return
	}
}
