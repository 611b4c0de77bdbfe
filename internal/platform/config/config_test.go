package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_PUBLIC_KEY": "-----BEGIN PUBLIC KEY-----\ntest\n-----END PUBLIC KEY-----",
	}
}

func TestLoadFromMap_Defaults(t *testing.T) {
	cfg, err := LoadFromMap(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "kickback:", cfg.Cache.Prefix)
	assert.Equal(t, 5*time.Second, cfg.Threads.UndoGracePeriod)
	assert.Equal(t, 500*time.Millisecond, cfg.Threads.ReconcileDelay)
	assert.Equal(t, 2*time.Second, cfg.Threads.SuppressWindow)
	assert.False(t, cfg.Threads.CommentRollback)
	assert.True(t, cfg.Threads.ReplyRollback)
	assert.False(t, cfg.Threads.ReactionRollback)
	assert.True(t, cfg.RateLimits.CommentCreate.Enabled)
}

func TestLoadFromMap_Overrides(t *testing.T) {
	env := baseEnv()
	env["CACHE_BACKEND"] = "redis"
	env["THREADS_UNDO_GRACE_PERIOD"] = "10s"
	env["THREADS_COMMENT_ROLLBACK"] = "true"
	env["THREADS_PAGE_SIZE"] = "50"
	env["SERVER_PORT"] = "not-a-number"

	cfg, err := LoadFromMap(env)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Second, cfg.Threads.UndoGracePeriod)
	assert.True(t, cfg.Threads.CommentRollback)
	assert.Equal(t, 50, cfg.Threads.PageSize)
	assert.Equal(t, 8080, cfg.Server.Port, "unparsable values fall back to the default")
}

func TestLoadFromMap_ValidationErrors(t *testing.T) {
	t.Run("missing public key", func(t *testing.T) {
		_, err := LoadFromMap(map[string]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_PUBLIC_KEY is required")
	})

	t.Run("invalid backend", func(t *testing.T) {
		env := baseEnv()
		env["CACHE_BACKEND"] = "memcached"
		_, err := LoadFromMap(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_BACKEND")
	})

	t.Run("zero grace period", func(t *testing.T) {
		env := baseEnv()
		env["THREADS_UNDO_GRACE_PERIOD"] = "0s"
		_, err := LoadFromMap(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "THREADS_UNDO_GRACE_PERIOD")
	})
}
