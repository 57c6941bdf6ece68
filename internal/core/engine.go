package core

import (
	"context"
	"sync"
)

// RenderEngine converts a complete HTML document into PDF bytes.
//
// PrintPDF may be called concurrently; each call must use its own page
// context. Close releases the engine and must be called on every exit path.
type RenderEngine interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}

// EngineLauncher starts one RenderEngine per report.
type EngineLauncher interface {
	Launch(ctx context.Context) (RenderEngine, error)
}

// LimitedLauncher caps the number of engines alive across all reports.
// The slot is held from Launch until the engine is closed.
type LimitedLauncher struct {
	launcher EngineLauncher
	limiter  *RenderLimiter
}

// NewLimitedLauncher wraps launcher with limiter.
func NewLimitedLauncher(launcher EngineLauncher, limiter *RenderLimiter) *LimitedLauncher {
	return &LimitedLauncher{launcher: launcher, limiter: limiter}
}

// Launch waits for a slot, then starts an engine.
// Returns a RenderError wrapping ErrTooManyRenders when the wait times out.
func (l *LimitedLauncher) Launch(ctx context.Context) (RenderEngine, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, RenderError("launch engine", "wait for render slot", err)
	}

	engine, err := l.launcher.Launch(ctx)
	if err != nil {
		l.limiter.Release()
		return nil, RenderError("launch engine", "start render engine", err)
	}

	return &limitedEngine{RenderEngine: engine, release: l.limiter.Release}, nil
}

// Status returns the limiter snapshot for health output.
func (l *LimitedLauncher) Status() RenderLimiterStatus {
	return l.limiter.Status()
}

type limitedEngine struct {
	RenderEngine
	release func()
	once    sync.Once
}

func (e *limitedEngine) Close() error {
	err := e.RenderEngine.Close()
	e.once.Do(e.release)
	return err
}
