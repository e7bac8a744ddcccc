package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"recipe-recommender/internal/core/ai"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// OpenRouterService OpenRouter 服務
type OpenRouterService struct {
	config *config.Config
	client *resty.Client
}

// NewOpenRouterService 創建 OpenRouter 服務
func NewOpenRouterService(cfg *config.Config) *OpenRouterService {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-recommender.local").
		SetHeader("X-Title", "Recipe Recommender")

	return &OpenRouterService{
		config: cfg,
		client: client,
	}
}

// GenerateResponse 生成回應
func (s *OpenRouterService) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	// 簡化 prompt：去除前後空白、連續空白合併為一格
	simplePrompt := strings.TrimSpace(prompt)
	simplePrompt = strings.Join(strings.Fields(simplePrompt), " ")

	// 構建請求
	req := map[string]interface{}{
		"model": s.config.OpenRouter.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": simplePrompt,
			},
		},
		"max_tokens": s.config.OpenRouter.MaxTokens,
	}

	common.LogDebug("OpenRouter 請求送出",
		zap.String("model", s.config.OpenRouter.Model),
		zap.Int("prompt_length", len(simplePrompt)),
	)

	// 發送請求
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API returned error: %s", resp.String())
	}

	// 解析回應
	var result ai.Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenRouter response")
	}

	common.LogDebug("OpenRouter 回應完成",
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	return result.Choices[0].Message.Content, nil
}
