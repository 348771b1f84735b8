package app

import (
	"testing"

	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/memory"
	"github.com/anonto42/nano-midea/app/internal/ratelimit"
	"github.com/anonto42/nano-midea/app/internal/scheduler"
	"github.com/anonto42/nano-midea/app/pkg/config"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.App.Port = 0
	cfg.Backend.Documents = config.BackendMemory
	cfg.Backend.Objects = config.BackendMemory
	cfg.Backend.Credentials = config.BackendLocal
	cfg.Backend.Sessions = config.BackendMemory
	cfg.Media.LibraryDir = t.TempDir()
	return cfg
}

func TestAppStartsOnMemoryBackends(t *testing.T) {
	var (
		d       *navigation.Dispatcher
		store   platform.DocumentStore
		limiter ratelimit.Limiter
		jobs    *scheduler.Scheduler
	)
	app := fxtest.New(t,
		fx.Supply(testConfig(t)),
		fx.Provide(func() logger.Logger { return logger.NewNop() }),
		fx.Provide(NewPlatform),
		Core,
		fx.Populate(&d, &store, &limiter, &jobs),
	)
	app.RequireStart()

	assert.IsType(t, &memory.Store{}, store)
	assert.IsType(t, &ratelimit.InMemoryLimiter{}, limiter)
	assert.GreaterOrEqual(t, jobs.Jobs(), 1, "idle rate limit keys are swept")
	assert.Equal(t, navigation.Unauthenticated, d.State())
	assert.Equal(t, navigation.Welcome, d.Home().Destination())

	app.RequireStop()
}

func TestUnknownBackendFailsStartup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Documents = "cassandra"

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func() logger.Logger { return logger.NewNop() }),
		fx.Provide(NewPlatform),
		Core,
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), `unknown document backend "cassandra"`)
}
