package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/core/coretest"
)

func TestLimitedLauncher_HoldsSlotUntilClose(t *testing.T) {
	limiter := core.NewRenderLimiter(1, 10*time.Millisecond)
	launcher := core.NewLimitedLauncher(coretest.NewFakeLauncher(), limiter)

	engine, err := launcher.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, launcher.Status().Active)

	_, err = launcher.Launch(context.Background())
	assert.ErrorIs(t, err, core.ErrTooManyRenders)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close(), "second close must not release twice")
	assert.Equal(t, 0, launcher.Status().Active)

	engine, err = launcher.Launch(context.Background())
	require.NoError(t, err)
	require.NoError(t, engine.Close())
}

func TestLimitedLauncher_ReleasesOnLaunchFailure(t *testing.T) {
	fake := coretest.NewFakeLauncher()
	fake.LaunchFn = func(context.Context) error { return errors.New("chrome not found") }
	limiter := core.NewRenderLimiter(1, 10*time.Millisecond)

	_, err := core.NewLimitedLauncher(fake, limiter).Launch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRender)
	assert.Zero(t, limiter.ActiveCount())
}
