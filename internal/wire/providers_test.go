package wire

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-persona-api/internal/application/persona"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/infrastructure/persistence/memory"
	"astro-persona-api/internal/infrastructure/persistence/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	client, err := redis.NewClient(&config.RedisConfig{Host: mr.Host(), Port: port, DialTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProvideSessionStoreSelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.TTL = time.Hour

	store, cleanup, err := ProvideSessionStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.SessionStore{}, store)
	cleanup()

	cfg.Session.Store = "redis"
	_, _, err = ProvideSessionStore(cfg, nil)
	assert.Error(t, err)

	store, cleanup, err = ProvideSessionStore(cfg, newRedisClient(t))
	require.NoError(t, err)
	assert.IsType(t, &redis.SessionStore{}, store)
	cleanup()

	cfg.Session.Store = "etcd"
	_, _, err = ProvideSessionStore(cfg, nil)
	assert.Error(t, err)
}

func TestSweepIntervalBounds(t *testing.T) {
	assert.Equal(t, 10*time.Minute, sweepInterval(168*time.Hour))
	assert.Equal(t, 15*time.Second, sweepInterval(time.Minute))
	assert.Equal(t, time.Second, sweepInterval(time.Second))
}

func TestProvideSessionLockerRejectsShortTTL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Store = "redis"
	cfg.Orchestration.Timeout = 45 * time.Second
	cfg.Orchestration.Retry = config.RetryConfig{MaxAttempts: 3, Max: 4 * time.Second}
	client := newRedisClient(t)

	cfg.Session.LockTTL = 90 * time.Second
	_, err := ProvideSessionLocker(cfg, client)
	assert.ErrorContains(t, err, "lock_ttl")

	cfg.Session.LockTTL = 150 * time.Second
	locker, err := ProvideSessionLocker(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &redis.Locker{}, locker)

	// 进程内锁不受 lock_ttl 约束
	cfg.Session.Store = "memory"
	cfg.Session.LockTTL = time.Second
	locker, err = ProvideSessionLocker(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &memory.Locker{}, locker)
}

func TestOptionalRedisDependenciesAreNilInterfaces(t *testing.T) {
	assert.Nil(t, ProvideRateLimiter(nil))
	assert.Nil(t, ProvideHealthChecker(nil))
	assert.IsType(t, &memory.Cache{}, ProvidePersonaCache(nil))
	locker, err := ProvideSessionLocker(&config.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Locker{}, locker)
}

func TestProvideCalculatorTimezone(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chart.DefaultTimezone = "Europe/Paris"
	calc, err := ProvideCalculator(cfg, ProvideGeocoder(cfg))
	require.NoError(t, err)
	assert.NotNil(t, calc)

	cfg.Chart.DefaultTimezone = "Mars/Olympus_Mons"
	_, err = ProvideCalculator(cfg, ProvideGeocoder(cfg))
	assert.Error(t, err)
}

func TestProvideCompositorStrategy(t *testing.T) {
	cfg := &config.Config{}
	c, err := ProvideCompositor(cfg)
	require.NoError(t, err)
	assert.Equal(t, persona.StrategyLayered, c.Name())

	cfg.Persona.Strategy = persona.StrategyArchetype
	c, err = ProvideCompositor(cfg)
	require.NoError(t, err)
	assert.Equal(t, persona.StrategyArchetype, c.Name())

	cfg.Persona.Strategy = "freeform"
	_, err = ProvideCompositor(cfg)
	assert.Error(t, err)
}
