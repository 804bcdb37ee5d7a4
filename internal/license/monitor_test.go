package license

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bizgrid/backend/internal/database"
	"github.com/stretchr/testify/assert"
)

// countingFetcher counts fetches and can panic on demand.
type countingFetcher struct {
	mu        sync.Mutex
	calls     int
	panicOnce bool
}

func (f *countingFetcher) Fetch(ctx context.Context) (*MappingSnapshot, error) {
	f.mu.Lock()
	f.calls++
	shouldPanic := f.panicOnce && f.calls == 1
	f.mu.Unlock()

	if shouldPanic {
		panic("simulated sweep failure")
	}
	return NewSnapshot(nil), nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestMonitorRunsSweepsUntilStopped(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	fetcher := &countingFetcher{}
	guard := NewGuardService(database.DB, fetcher)

	m := newMonitor("TestMonitor", guard, 20*time.Millisecond, time.Millisecond)
	m.Start()

	assert.Eventually(t, func() bool {
		return fetcher.count() >= 3
	}, 2*time.Second, 5*time.Millisecond, "monitor should keep sweeping on its interval")

	m.Stop()
	settled := fetcher.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, fetcher.count(), "no sweeps after Stop")
}

func TestMonitorStopIsPrompt(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	guard := NewGuardService(database.DB, &countingFetcher{})

	// Long interval and stagger: Stop must not wait them out
	m := newMonitor("TestMonitor", guard, time.Hour, time.Hour)
	m.Start()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return promptly")
	}
}

func TestMonitorSurvivesPanickingSweep(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	fetcher := &countingFetcher{panicOnce: true}
	guard := NewGuardService(database.DB, fetcher)

	m := newMonitor("TestMonitor", guard, 15*time.Millisecond, time.Millisecond)
	m.Start()
	defer m.Stop()

	// First sweep panics; the loop must keep going
	assert.Eventually(t, func() bool {
		return fetcher.count() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	guard := NewGuardService(database.DB, &countingFetcher{})
	m := newMonitor("TestMonitor", guard, time.Hour, time.Hour)

	m.Start()
	m.Start() // second call is a no-op
	m.Stop()
	m.Stop() // so is a second stop
}

func TestMonitorDefaults(t *testing.T) {
	guard := NewGuardService(nil, &countingFetcher{})

	exp := NewExpirationMonitor(guard, 0)
	assert.Equal(t, 24*time.Hour, exp.interval)
	assert.Equal(t, "ExpirationMonitor", exp.label)

	tam := NewTamperMonitor(guard, 0)
	assert.Equal(t, 2*time.Hour, tam.interval)
	assert.Equal(t, "TamperMonitor", tam.label)
}
