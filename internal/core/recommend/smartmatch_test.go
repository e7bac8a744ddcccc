package recommend

import (
	"context"
	"errors"
	"testing"

	aiservice "recipe-recommender/internal/core/ai/service"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReasoning 外部推理服務的測試替身
type stubReasoning struct {
	content  string
	err      error
	cacheHit bool
	calls    int
	prompts  []string
}

func (s *stubReasoning) ProcessRequest(_ context.Context, prompt string) (*aiservice.Response, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &aiservice.Response{Content: s.content, CacheHit: s.cacheHit}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Recommend: config.RecommendConfig{
			ShortlistSize:       15,
			IngredientPrefixLen: 120,
			MinNewTags:          5,
			MaxNewTags:          10,
		},
		Usage: config.UsageConfig{
			SmartMatchCostCents: 3,
		},
	}
}

const validSelection = "```json\n{\"selected_index\": 0, \"reason\": \"時間與條件最契合\", \"new_tags\": [\"one pot\", \"weeknight friendly\", \"mild spice\", \"kid friendly\", \"quick cleanup\", \"budget friendly\"]}\n```"

func TestSmartMatchRejectsEmptyFilters(t *testing.T) {
	store := newTestStore(t)
	stub := &stubReasoning{content: validSelection}
	svc := NewSmartMatchService(store, stub, testConfig())

	_, err := svc.Recommend(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrEmptyFilters)
	assert.Zero(t, stub.calls)
}

func TestSmartMatchSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish", "Quick (< 30 min)"})
	b := seedRecipe(t, store, "青椒肉絲", []string{"Main Dish"})

	stub := &stubReasoning{content: validSelection}
	svc := NewSmartMatchService(store, stub, testConfig())

	rec, err := svc.Recommend(ctx, []string{"Main Dish"})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)

	// 選出的食譜必定在候選之中，理由原文帶回
	assert.Contains(t, []string{a.ID, b.ID}, rec.Recipe.ID)
	assert.Equal(t, "時間與條件最契合", rec.Reasoning)
	assert.NotEmpty(t, rec.Quality)

	// 回傳前已回寫推斷標籤，立即可查
	got, err := store.Recipes.Get(ctx, rec.Recipe.ID)
	require.NoError(t, err)
	assert.Len(t, got.AITags, 6)
	assert.Contains(t, got.AITags, "one pot")
	assert.Len(t, rec.Recipe.AITags, 6)

	// 每次成功的外部呼叫正好記一筆使用紀錄
	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSmartMatchEmptyCandidatesSkipsReasoning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "甜點", []string{"Dessert"})

	stub := &stubReasoning{content: validSelection}
	svc := NewSmartMatchService(store, stub, testConfig())

	rec, err := svc.Recommend(ctx, []string{"Italian"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchNone, rec.Quality)

	// 不呼叫外部服務、不計費
	assert.Zero(t, stub.calls)
	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSmartMatchTransportFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish"})

	stub := &stubReasoning{err: errors.New("request timeout")}
	svc := NewSmartMatchService(store, stub, testConfig())

	_, err := svc.Recommend(ctx, []string{"Main Dish"})
	require.Error(t, err)

	// 失敗的呼叫不寫任何東西
	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AITags)
}

func TestSmartMatchParseFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json at all", "抱歉，我無法決定。"},
		{"index out of range", `{"selected_index": 99, "reason": "x", "new_tags": ["a","b","c","d","e"]}`},
		{"negative index", `{"selected_index": -1, "reason": "x", "new_tags": ["a","b","c","d","e"]}`},
		{"empty new_tags", `{"selected_index": 0, "reason": "x", "new_tags": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()

			seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish"})

			stub := &stubReasoning{content: tt.content}
			svc := NewSmartMatchService(store, stub, testConfig())

			_, err := svc.Recommend(ctx, []string{"Main Dish"})
			require.Error(t, err)

			n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSmartMatchCachedResponseSkipsBillingAndWriteBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish"})

	stub := &stubReasoning{content: validSelection, cacheHit: true}
	svc := NewSmartMatchService(store, stub, testConfig())

	rec, err := svc.Recommend(ctx, []string{"Main Dish"})
	require.NoError(t, err)

	// 快取命中仍回傳完整推薦結果
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, "時間與條件最契合", rec.Reasoning)

	// 沒有真正的外部呼叫：不計費、不重複回寫標籤
	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AITags)
}

func TestSmartMatchRepeatedCallsGrowInferredTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish"})

	stub := &stubReasoning{content: validSelection}
	svc := NewSmartMatchService(store, stub, testConfig())

	// 重複呼叫不去重，推斷標籤持續累積
	for i := 0; i < 2; i++ {
		_, err := svc.Recommend(ctx, []string{"Main Dish"})
		require.NoError(t, err)
	}

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.AITags, 12)

	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSmartMatchPromptContainsCandidates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedRecipe(t, store, "番茄炒蛋", []string{"Main Dish"})

	stub := &stubReasoning{content: validSelection}
	svc := NewSmartMatchService(store, stub, testConfig())

	_, err := svc.Recommend(ctx, []string{"Main Dish"})
	require.NoError(t, err)

	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "番茄炒蛋")
	assert.Contains(t, stub.prompts[0], "Main Dish")
	assert.Contains(t, stub.prompts[0], "selected_index")
}
