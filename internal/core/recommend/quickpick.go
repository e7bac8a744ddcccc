package recommend

import (
	"context"
	"math/rand"

	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// QuickPickService 免費推薦路徑
// 純粹以標籤重疊數挑選，弱比對時退回推斷標籤，最後退到隨機挑選
type QuickPickService struct {
	store    *storage.RecipeStore
	expander Expander
}

// NewQuickPickService 創建 Quick Pick 服務
func NewQuickPickService(store *storage.RecipeStore, expander Expander) *QuickPickService {
	if expander == nil {
		expander = HeuristicExpander{}
	}
	return &QuickPickService{
		store:    store,
		expander: expander,
	}
}

// Recommend 依正規標籤挑選一道食譜
// 只有整個食譜庫為空時才會失敗（common.ErrNoRecipes）
func (s *QuickPickService) Recommend(ctx context.Context, filters []string) (*Recommendation, error) {
	// 沒有篩選條件：全庫隨機挑一道
	if len(filters) == 0 {
		return s.randomPick(ctx)
	}

	matches, err := s.store.FindByTagOverlap(ctx, filters)
	if err != nil {
		return nil, err
	}

	var primary *Recommendation
	if len(matches) > 0 {
		best := pickBestMatch(matches)
		primary = &Recommendation{
			Title:   best.Recipe.Name,
			Recipe:  &best.Recipe,
			Quality: common.ClassifyMatch(best.MatchCount, len(filters)),
		}

		// 最佳比對達篩選條件的一半即視為足夠，不再查推斷標籤
		if best.MatchCount*2 >= len(filters) {
			return primary, nil
		}
	}

	// 弱比對：展開同義詞後查推斷標籤
	if rec, err := s.inferredPick(ctx, filters); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	if primary != nil {
		return primary, nil
	}

	// 兩條路都空手而回：隨機挑一道並如實標註
	common.LogInfo("Quick Pick 無任何命中，改為隨機挑選",
		zap.Strings("filters", filters),
	)
	return s.randomPick(ctx)
}

// inferredPick 後備路徑：推斷標籤的同義詞模糊比對
// 找不到任何推斷命中時回傳 nil, nil
func (s *QuickPickService) inferredPick(ctx context.Context, filters []string) (*Recommendation, error) {
	var patterns []string
	for _, f := range filters {
		patterns = append(patterns, s.expander.Expand(f)...)
	}

	matches, err := s.store.FindByInferredTagLike(ctx, patterns, filters)
	if err != nil {
		return nil, err
	}

	// 只接受至少一個推斷標籤命中的結果
	inferred := matches[:0:0]
	for _, m := range matches {
		if m.InferredCount > 0 {
			inferred = append(inferred, m)
		}
	}
	if len(inferred) == 0 {
		return nil, nil
	}

	best := pickBestInferred(inferred)
	return &Recommendation{
		Title:   best.Recipe.Name,
		Recipe:  &best.Recipe,
		Quality: common.MatchInferred,
	}, nil
}

// randomPick 全庫隨機挑一道
func (s *QuickPickService) randomPick(ctx context.Context) (*Recommendation, error) {
	recipe, err := s.store.GetRandom(ctx)
	if err != nil {
		return nil, err
	}
	return &Recommendation{
		Title:   recipe.Name,
		Recipe:  recipe,
		Quality: common.MatchNone,
	}, nil
}

// pickBestMatch 取比對數最高者，同分隨機
// matches 已依 match_count 遞減排序
func pickBestMatch(matches []common.RecipeMatch) common.RecipeMatch {
	n := 1
	for n < len(matches) && matches[n].MatchCount == matches[0].MatchCount {
		n++
	}
	return matches[rand.Intn(n)]
}

// pickBestInferred 取（正規命中數、推斷命中數）最高者，同分隨機
// matches 已依該順序遞減排序
func pickBestInferred(matches []common.RecipeMatch) common.RecipeMatch {
	n := 1
	for n < len(matches) &&
		matches[n].MatchCount == matches[0].MatchCount &&
		matches[n].InferredCount == matches[0].InferredCount {
		n++
	}
	return matches[rand.Intn(n)]
}
