package recommend

import (
	"strings"
)

// wildcardPrefix 「不限」類篩選條件的保留前綴，一律忽略
const wildcardPrefix = "any"

// canonicalTags 篩選條件識別字 → 正規標籤的固定對照表
var canonicalTags = map[string]string{
	"quick":      "Quick (< 30 min)",
	"healthy":    "Healthy",
	"easy":       "Easy",
	"main-dish":  "Main Dish",
	"side-dish":  "Side Dish",
	"dessert":    "Dessert",
	"breakfast":  "Breakfast",
	"soup":       "Soup",
	"vegetarian": "Vegetarian",
	"comfort":    "Comfort Food",
	"asian":      "Asian",
	"italian":    "Italian",
}

// Normalize 將使用者篩選條件轉為正規標籤
// 「any」前綴的條件代表不設限，直接丟棄；查無對照的條件視為已是標籤原文保留，
// 新標籤不需要改程式碼就能篩選
func Normalize(filterIDs []string) []string {
	tags := make([]string, 0, len(filterIDs))
	for _, id := range filterIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(id), wildcardPrefix) {
			continue
		}
		if canonical, ok := canonicalTags[strings.ToLower(id)]; ok {
			tags = append(tags, canonical)
			continue
		}
		tags = append(tags, id)
	}
	return tags
}

// Expander 同義詞展開策略，Quick Pick 的推斷比對後備路徑使用
// 以介面呈現，之後可替換成 embedding 比對而不動到比對演算法
type Expander interface {
	Expand(tag string) []string
}

// HeuristicExpander 以關鍵字比對展開同義詞的預設實作
// 不求完整，展不出同義詞不算錯誤
type HeuristicExpander struct{}

// synonyms 關鍵字 → 展開片語；關鍵字以子字串比對
var synonyms = map[string][]string{
	"quick":     {"fast", "weeknight", "30 min"},
	"easy":      {"simple", "beginner friendly", "few steps"},
	"healthy":   {"light", "nutritious", "fresh"},
	"comfort":   {"hearty", "cozy", "filling"},
	"dessert":   {"sweet", "baked"},
	"soup":      {"broth", "stew"},
	"breakfast": {"morning", "brunch"},
}

// Expand 回傳標籤本身（小寫）加上零或多個相關片語
func (HeuristicExpander) Expand(tag string) []string {
	lower := strings.ToLower(tag)
	out := []string{lower}
	for keyword, phrases := range synonyms {
		if strings.Contains(lower, keyword) {
			out = append(out, phrases...)
		}
	}
	return out
}
