package recommend

import (
	"context"
	"path/filepath"
	"testing"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(&config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecipe(t *testing.T, store *storage.Store, name string, tags []string) *common.Recipe {
	t.Helper()
	r := &common.Recipe{
		Name:        name,
		Ingredients: "食材清單",
		PrepTime:    "10 分鐘",
		CookTime:    "20 分鐘",
		Servings:    "2 人份",
		Tags:        tags,
	}
	require.NoError(t, store.Recipes.Create(context.Background(), r))
	return r
}

func TestQuickPickPerfectMatch(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	r := seedRecipe(t, store, "快手主菜", []string{"Main Dish", "Quick (< 30 min)", "Easy"})

	rec, err := svc.Recommend(context.Background(), Normalize([]string{"main-dish", "quick"}))
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, r.Name, rec.Title)
	assert.Equal(t, common.MatchPerfect, rec.Quality)
}

func TestQuickPickGreatMatch(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	r := seedRecipe(t, store, "家常菜", []string{"Main Dish", "Easy"})

	// 三個條件命中兩個，2/3 達 great 門檻
	rec, err := svc.Recommend(context.Background(), []string{"Main Dish", "Easy", "Vegetarian"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchGreat, rec.Quality)
}

func TestQuickPickInferredFallback(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)
	ctx := context.Background()

	seedRecipe(t, store, "甜點", []string{"Dessert"})
	untagged := seedRecipe(t, store, "週間晚餐", nil)
	require.NoError(t, store.Recipes.AppendInferredTags(ctx, untagged.ID, []string{"weeknight friendly"}))

	// 無任何人工標籤命中，但 quick 的同義詞展開命中推斷標籤
	rec, err := svc.Recommend(ctx, Normalize([]string{"quick"}))
	require.NoError(t, err)
	assert.Equal(t, untagged.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchInferred, rec.Quality)
}

func TestQuickPickWeakMatchKeepsPrimaryWithoutInferredHit(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	r := seedRecipe(t, store, "慢燉主菜", []string{"Main Dish"})

	// 三個條件只命中一個（低於半數），推斷路徑也沒有命中，退回主結果
	rec, err := svc.Recommend(context.Background(),
		[]string{"Main Dish", "Quick (< 30 min)", "Vegetarian"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchClose, rec.Quality)
}

func TestQuickPickRandomFallback(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	r := seedRecipe(t, store, "甜點", []string{"Dessert"})

	// 完全無命中：隨機挑一道並如實標註
	rec, err := svc.Recommend(context.Background(), []string{"Italian"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchNone, rec.Quality)
}

func TestQuickPickEmptyFilters(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	r := seedRecipe(t, store, "隨便吃", []string{"Easy"})

	rec, err := svc.Recommend(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, r.ID, rec.Recipe.ID)
	assert.Equal(t, common.MatchNone, rec.Quality)
}

func TestQuickPickEmptyStore(t *testing.T) {
	store := newTestStore(t)
	svc := NewQuickPickService(store.Recipes, nil)

	_, err := svc.Recommend(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoRecipes)

	_, err = svc.Recommend(context.Background(), []string{"Main Dish"})
	assert.ErrorIs(t, err, common.ErrNoRecipes)
}
