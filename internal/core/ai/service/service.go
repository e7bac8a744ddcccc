package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"recipe-recommender/internal/core/ai/cache"
	openrouter "recipe-recommender/internal/core/service"
	"recipe-recommender/internal/infrastructure/config"
)

// Response AI 回應結構
// CacheHit 為真代表內容來自快取，沒有真正打到外部服務；
// 呼叫端據此決定要不要計費與回寫
type Response struct {
	Content  string
	CacheHit bool
}

// Service AI 服務
type Service struct {
	config       *config.Config
	openRouter   *openrouter.OpenRouterService
	cacheManager *cache.CacheManager

	// 令牌桶限流狀態：容量與補充速率依 rate_limit 設定
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewService 創建 AI 服務
func NewService(cfg *config.Config, cacheManager *cache.CacheManager) (*Service, error) {
	// 創建 OpenRouter 服務
	openRouter := openrouter.NewOpenRouterService(cfg)

	return &Service{
		config:       cfg,
		openRouter:   openRouter,
		cacheManager: cacheManager,
		tokens:       float64(cfg.RateLimit.Requests),
		lastRefill:   time.Now(),
	}, nil
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (*Response, error) {
	if err := s.checkRequestRate(); err != nil {
		return nil, err
	}

	// 統一 prompt 格式，去除多餘空白，確保快取 key 一致
	prompt = strings.Join(strings.Fields(strings.TrimSpace(prompt)), " ")

	// 檢查緩存（用 cacheManager）
	if s.config.Cache.Enabled && s.cacheManager != nil {
		if val, err := s.cacheManager.Get(ctx, prompt); err == nil && val != "" {
			return &Response{Content: val, CacheHit: true}, nil
		}
	}

	content, err := s.openRouter.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	response := &Response{Content: content}

	if s.config.Cache.Enabled && s.cacheManager != nil {
		_ = s.cacheManager.Set(ctx, prompt, content)
	}

	return response, nil
}

// checkRequestRate 檢查請求頻率
// 令牌桶允許時間窗內最多 rate_limit.requests 次呼叫；
// 只在取得令牌時扣除，失敗的外部呼叫不會額外封鎖後續重試
func (s *Service) checkRequestRate() error {
	if !s.config.RateLimit.Enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := float64(s.config.RateLimit.Requests)
	rate := capacity / s.config.RateLimit.Window.Seconds()

	now := time.Now()
	s.tokens += now.Sub(s.lastRefill).Seconds() * rate
	if s.tokens > capacity {
		s.tokens = capacity
	}
	s.lastRefill = now

	if s.tokens < 1 {
		return errors.New("request rate limit exceeded")
	}
	s.tokens--
	return nil
}
