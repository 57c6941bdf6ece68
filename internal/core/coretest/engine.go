// Package coretest provides in-process doubles for the report pipeline so
// tests never start a browser.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// ErrInjected is returned by FakeEngine for students it was told to fail.
var ErrInjected = errors.New("injected render failure")

// FakeLauncher launches FakeEngines and records every launch.
type FakeLauncher struct {
	mu       sync.Mutex
	engines  []*FakeEngine
	failOn   map[string]bool
	delay    time.Duration
	LaunchFn func(ctx context.Context) error
}

// NewFakeLauncher creates a launcher whose engines succeed by default.
func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{failOn: make(map[string]bool)}
}

// FailFor makes any print whose markup mentions marker fail.
func (l *FakeLauncher) FailFor(marker string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failOn[marker] = true
}

// SetDelay makes every print take at least d.
func (l *FakeLauncher) SetDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}

// Launch implements core.EngineLauncher.
func (l *FakeLauncher) Launch(ctx context.Context) (core.RenderEngine, error) {
	if l.LaunchFn != nil {
		if err := l.LaunchFn(ctx); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	failOn := make(map[string]bool, len(l.failOn))
	for k := range l.failOn {
		failOn[k] = true
	}
	e := &FakeEngine{failOn: failOn, delay: l.delay}
	l.engines = append(l.engines, e)
	return e, nil
}

// Engines returns every engine launched so far.
func (l *FakeLauncher) Engines() []*FakeEngine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*FakeEngine, len(l.engines))
	copy(out, l.engines)
	return out
}

// OpenEngines counts launched engines that were not closed.
func (l *FakeLauncher) OpenEngines() int {
	n := 0
	for _, e := range l.Engines() {
		if !e.Closed() {
			n++
		}
	}
	return n
}

// FakeEngine records markup and returns "%PDF-fake\n" followed by a digest
// line per printed section.
type FakeEngine struct {
	mu      sync.Mutex
	markups []string
	closed  bool
	failOn  map[string]bool
	delay   time.Duration
}

// PrintPDF implements core.RenderEngine.
func (e *FakeEngine) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("engine closed")
	}
	for marker := range e.failOn {
		if strings.Contains(html, marker) {
			return nil, fmt.Errorf("%w: %s", ErrInjected, marker)
		}
	}

	e.markups = append(e.markups, html)
	sections := strings.Count(html, `class="student-report-container"`)
	return []byte(fmt.Sprintf("%%PDF-fake\nsections=%d\nbytes=%d\n", sections, len(html))), nil
}

// Close implements core.RenderEngine.
func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Markups returns the documents printed so far.
func (e *FakeEngine) Markups() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.markups))
	copy(out, e.markups)
	return out
}
