package core

// render_limiter.go caps how many headless browser instances run at once.
//
// Each PDF report holds one engine for its whole render. The limiter uses a
// semaphore so the process never starts more than the configured number of
// browsers. When every slot is taken, new reports wait up to maxWait before
// failing with ErrTooManyRenders.
//
// WaitForDrain lets shutdown block until in-flight renders finish.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEngines is the default limit for concurrent render engines.
const DefaultMaxEngines = 2

// DefaultRenderWait is how long to wait for a slot before rejecting.
const DefaultRenderWait = 30 * time.Second

// RenderLimiter controls concurrent engine usage with a semaphore.
type RenderLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewRenderLimiter creates a limiter allowing at most maxEngines engines.
// Requests that cannot acquire a slot within maxWait receive ErrTooManyRenders.
func NewRenderLimiter(maxEngines int, maxWait time.Duration) *RenderLimiter {
	if maxEngines <= 0 {
		maxEngines = DefaultMaxEngines
	}
	if maxWait <= 0 {
		maxWait = DefaultRenderWait
	}

	return &RenderLimiter{
		semaphore: make(chan struct{}, maxEngines),
		maxWait:   maxWait,
	}
}

// Acquire blocks until a slot is free, maxWait elapses, or ctx is done.
// The caller MUST call Release when the engine is closed.
func (l *RenderLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own wait timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRenders
	}
}

// TryAcquire takes a slot without blocking.
func (l *RenderLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot. Must be called exactly once per successful acquire.
func (l *RenderLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of engines currently running.
func (l *RenderLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no engine is running or ctx is done.
func (l *RenderLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RenderLimiterStatus is a snapshot of the limiter's state.
type RenderLimiterStatus struct {
	Active     int `json:"active"`
	Available  int `json:"available"`
	MaxEngines int `json:"max_engines"`
}

// Status returns the current limiter state for monitoring.
func (l *RenderLimiter) Status() RenderLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return RenderLimiterStatus{
		Active:     active,
		Available:  cap(l.semaphore) - len(l.semaphore),
		MaxEngines: cap(l.semaphore),
	}
}
