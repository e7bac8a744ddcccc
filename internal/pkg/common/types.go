package common

import (
	"fmt"
	"strings"
	"time"
)

// Recipe 家庭食譜
// 注意：tags 為人工維護的分類標籤，ai_tags 為 Smart Match 累積的推斷標籤，
// 兩者語意不同，不能互相覆蓋
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients string   `json:"ingredients,omitempty"`
	Directions  string   `json:"directions,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	PrepTime    string   `json:"prep_time,omitempty"`
	CookTime    string   `json:"cook_time,omitempty"`
	Servings    string   `json:"servings,omitempty"`
	Tags        []string `json:"tags"`
	AITags      []string `json:"ai_tags"`

	// AITagsUpdatedAt 最近一次推斷標籤寫入時間，只增不減
	AITagsUpdatedAt *time.Time `json:"ai_tags_updated_at,omitempty"`
}

// RecipeMatch 帶比對計數的候選食譜
type RecipeMatch struct {
	Recipe        Recipe `json:"recipe"`
	MatchCount    int    `json:"match_count"`    // 人工標籤命中數
	InferredCount int    `json:"inferred_count"` // 推斷標籤命中數
}

// MatchQuality 推薦結果的比對品質
type MatchQuality string

const (
	MatchPerfect  MatchQuality = "perfect"  // 所有篩選條件全數命中
	MatchGreat    MatchQuality = "great"    // 命中數達篩選條件的 2/3
	MatchClose    MatchQuality = "close"    // 有命中但不足 2/3
	MatchInferred MatchQuality = "inferred" // 經由推斷標籤命中
	MatchNone     MatchQuality = "none"     // 無任何命中，隨機挑選
)

// ClassifyMatch 依命中數與篩選條件數分類比對品質
func ClassifyMatch(matchCount, filterCount int) MatchQuality {
	switch {
	case filterCount > 0 && matchCount == filterCount:
		return MatchPerfect
	case float64(matchCount) >= 0.66*float64(filterCount):
		return MatchGreat
	default:
		return MatchClose
	}
}

// Feature AI 計費功能名稱
type Feature string

const (
	FeatureSmartMatch        Feature = "smart_match"
	FeatureReceiptExtraction Feature = "receipt_extraction"
	FeatureTakeoutSuggestion Feature = "takeout_suggestion"
)

// UsageRecord AI 使用紀錄，僅新增不修改
type UsageRecord struct {
	ID        int64     `json:"id"`
	Feature   Feature   `json:"feature"`
	CostCents int64     `json:"cost_cents"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageSummary 依功能彙總的使用統計
type UsageSummary struct {
	Feature        Feature `json:"feature"`
	Calls          int64   `json:"calls"`
	TotalCostCents int64   `json:"total_cost_cents"`
}

// FormatCandidates 格式化候選食譜清單（供提示詞使用）
func FormatCandidates(candidates []Recipe, ingredientPrefixLen int) string {
	var sb strings.Builder
	for i, r := range candidates {
		ingredients := strings.TrimSpace(r.Ingredients)
		if len(ingredients) > ingredientPrefixLen {
			ingredients = truncateRunes(ingredients, ingredientPrefixLen)
		}
		sb.WriteString(fmt.Sprintf("候選 %d：%s\n", i, r.Name))
		sb.WriteString(fmt.Sprintf("  準備時間：%s，烹調時間：%s，份量：%s\n",
			orUnknown(r.PrepTime), orUnknown(r.CookTime), orUnknown(r.Servings)))
		sb.WriteString(fmt.Sprintf("  標籤：%s\n", orUnknown(strings.Join(r.Tags, "、"))))
		sb.WriteString(fmt.Sprintf("  食材：%s\n", orUnknown(ingredients)))
	}
	return sb.String()
}

// truncateRunes 依字元數截斷，避免把多位元組字元切壞
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "未知"
	}
	return s
}
