package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	aiservice "recipe-recommender/internal/core/ai/service"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// ReasoningClient 外部推理服務；以介面注入方便測試替身
type ReasoningClient interface {
	ProcessRequest(ctx context.Context, prompt string) (*aiservice.Response, error)
}

// SmartMatchService 付費推薦路徑
// 以標籤重疊取候選清單，交給外部推理服務選出最佳者並回寫推斷標籤
type SmartMatchService struct {
	store  *storage.Store
	ai     ReasoningClient
	config *config.Config
}

// NewSmartMatchService 創建 Smart Match 服務
func NewSmartMatchService(store *storage.Store, ai ReasoningClient, cfg *config.Config) *SmartMatchService {
	return &SmartMatchService{
		store:  store,
		ai:     ai,
		config: cfg,
	}
}

// selection 外部推理服務的回應格式
type selection struct {
	SelectedIndex int      `json:"selected_index"`
	Reason        string   `json:"reason"`
	NewTags       []string `json:"new_tags"`
}

// Recommend 依正規標籤挑選一道食譜並附上理由
// 空篩選條件回傳 ErrEmptyFilters；外部呼叫失敗整次視為失敗，呼叫端應降級至 Quick Pick。
// 成功時會在回傳前回寫推斷標籤並記錄一筆使用紀錄（兩者皆為盡力而為，失敗只記錄日誌）
func (s *SmartMatchService) Recommend(ctx context.Context, filters []string) (*Recommendation, error) {
	if len(filters) == 0 {
		return nil, common.ErrEmptyFilters
	}

	matches, err := s.store.Recipes.FindByTagOverlap(ctx, filters)
	if err != nil {
		return nil, err
	}

	// 候選清單為空：全庫隨機挑一道，不呼叫外部服務、不計費
	if len(matches) == 0 {
		recipe, err := s.store.Recipes.GetRandom(ctx)
		if err != nil {
			return nil, err
		}
		return &Recommendation{
			Title:   recipe.Name,
			Recipe:  recipe,
			Quality: common.MatchNone,
		}, nil
	}

	// 先打亂再截斷，讓相同篩選條件的重複呼叫能看到不同候選清單
	rand.Shuffle(len(matches), func(i, j int) {
		matches[i], matches[j] = matches[j], matches[i]
	})
	if len(matches) > s.config.Recommend.ShortlistSize {
		matches = matches[:s.config.Recommend.ShortlistSize]
	}

	candidates := make([]common.Recipe, len(matches))
	for i, m := range matches {
		candidates[i] = m.Recipe
	}

	prompt := s.buildPrompt(filters, candidates)

	resp, err := s.ai.ProcessRequest(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("smart match reasoning call failed: %w", err)
	}

	sel, err := s.parseSelection(resp.Content, len(candidates))
	if err != nil {
		return nil, err
	}

	chosen := matches[sel.SelectedIndex]

	// 回傳前完成副作用：回寫推斷標籤、記錄一筆使用紀錄
	// 快取命中沒有真正的外部呼叫，不計費也不重複回寫同一批標籤；
	// 寫入失敗不影響推薦結果本身
	if resp.CacheHit {
		common.LogInfo("Smart Match 命中快取，跳過計費與標籤回寫",
			zap.String("recipe_id", chosen.Recipe.ID),
		)
	} else {
		if err := s.store.Recipes.AppendInferredTags(ctx, chosen.Recipe.ID, sel.NewTags); err != nil {
			common.LogError("推斷標籤回寫失敗",
				zap.String("recipe_id", chosen.Recipe.ID),
				zap.Error(err),
			)
		}
		if err := s.store.Usage.Record(ctx, common.FeatureSmartMatch, s.config.Usage.SmartMatchCostCents); err != nil {
			common.LogError("使用紀錄寫入失敗",
				zap.String("feature", string(common.FeatureSmartMatch)),
				zap.Error(err),
			)
		}
	}

	// 重新讀取讓回應帶到剛寫入的推斷標籤；失敗就用候選副本
	recipe := &chosen.Recipe
	if fresh, err := s.store.Recipes.Get(ctx, chosen.Recipe.ID); err == nil {
		recipe = fresh
	}

	return &Recommendation{
		Title:     recipe.Name,
		Recipe:    recipe,
		Quality:   common.ClassifyMatch(chosen.MatchCount, len(filters)),
		Reasoning: sel.Reason,
	}, nil
}

// buildPrompt 組出候選清單的結構化提示詞
func (s *SmartMatchService) buildPrompt(filters []string, candidates []common.Recipe) string {
	var sb strings.Builder
	sb.WriteString("你是家庭料理推薦助手。使用者的篩選條件：")
	sb.WriteString(strings.Join(filters, "、"))
	sb.WriteString("\n\n以下是候選食譜：\n")
	sb.WriteString(common.FormatCandidates(candidates, s.config.Recommend.IngredientPrefixLen))
	sb.WriteString(fmt.Sprintf(`
請綜合考量條件命中廣度、時間與做法契合度、食材合適度與整體實用性，選出最適合的一道，並為它產生 %d 到 %d 個全新的描述片語（小寫英文、2-4 個字，涵蓋烹調情境、食材特性、餐點特性、風味、實作提示）。

請只回傳 JSON，格式如下：
{"selected_index": <候選編號>, "reason": "<推薦理由>", "new_tags": ["<片語>", ...]}`,
		s.config.Recommend.MinNewTags, s.config.Recommend.MaxNewTags))
	return sb.String()
}

// parseSelection 防禦性解析外部回應
// 任何解析失敗都讓整次 Smart Match 失敗，不做部分解讀
func (s *SmartMatchService) parseSelection(content string, candidateCount int) (*selection, error) {
	raw := common.ExtractJSONObject(content)
	raw = common.QuoteJSONKeys(raw)

	var sel selection
	if err := common.ParseJSON(raw, &sel); err != nil {
		common.LogWarn("AI 回應解析失敗",
			zap.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidAIOutput, err)
	}

	if sel.SelectedIndex < 0 || sel.SelectedIndex >= candidateCount {
		return nil, fmt.Errorf("%w: selected_index %d 超出候選範圍", common.ErrInvalidAIOutput, sel.SelectedIndex)
	}

	tags := make([]string, 0, len(sel.NewTags))
	for _, t := range sel.NewTags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: new_tags 為空", common.ErrInvalidAIOutput)
	}
	if len(tags) > s.config.Recommend.MaxNewTags {
		tags = tags[:s.config.Recommend.MaxNewTags]
	}
	if len(tags) < s.config.Recommend.MinNewTags {
		common.LogWarn("AI 回傳的新標籤數量不足",
			zap.Int("count", len(tags)),
			zap.Int("min", s.config.Recommend.MinNewTags),
		)
	}
	sel.NewTags = tags

	return &sel, nil
}
