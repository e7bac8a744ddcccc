package service

import (
	"testing"
	"time"

	"recipe-recommender/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	return svc
}

func TestCheckRequestRateDisabled(t *testing.T) {
	svc := newRateTestService(t, &config.Config{
		RateLimit: config.RateLimitConfig{Enabled: false},
	})

	for i := 0; i < 10; i++ {
		assert.NoError(t, svc.checkRequestRate())
	}
}

func TestCheckRequestRateHonorsRequestCount(t *testing.T) {
	svc := newRateTestService(t, &config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Requests: 3,
			Window:   time.Minute,
		},
	})

	// 時間窗內允許 requests 次，不是一次
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.checkRequestRate(), "call %d", i)
	}
	assert.Error(t, svc.checkRequestRate())
}

func TestCheckRequestRateAllowsImmediateRetry(t *testing.T) {
	svc := newRateTestService(t, &config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
	})

	// 一次失敗的外部呼叫不應封鎖緊接著的重試或併發呼叫
	require.NoError(t, svc.checkRequestRate())
	assert.NoError(t, svc.checkRequestRate())
}

func TestCheckRequestRateRefillsOverTime(t *testing.T) {
	svc := newRateTestService(t, &config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Requests: 2,
			Window:   time.Second,
		},
	})

	require.NoError(t, svc.checkRequestRate())
	require.NoError(t, svc.checkRequestRate())
	require.Error(t, svc.checkRequestRate())

	// 倒回補充時間模擬時間流逝，令牌應被補回
	svc.mu.Lock()
	svc.lastRefill = svc.lastRefill.Add(-time.Second)
	svc.mu.Unlock()

	assert.NoError(t, svc.checkRequestRate())
}
