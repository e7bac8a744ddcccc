package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(&config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecipe(t *testing.T, store *Store, name string, tags []string) *common.Recipe {
	t.Helper()
	r := &common.Recipe{
		Name:        name,
		Ingredients: "雞蛋 2 顆、白飯 1 碗",
		PrepTime:    "10 分鐘",
		CookTime:    "15 分鐘",
		Servings:    "2 人份",
		Tags:        tags,
	}
	require.NoError(t, store.Recipes.Create(context.Background(), r))
	return r
}

func TestRecipeStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := seedRecipe(t, store, "蛋炒飯", []string{"Main Dish", "Quick (< 30 min)"})
	require.NotEmpty(t, created.ID)

	got, err := store.Recipes.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "蛋炒飯", got.Name)
	assert.Equal(t, []string{"Main Dish", "Quick (< 30 min)"}, got.Tags)
	assert.Empty(t, got.AITags)
	assert.Nil(t, got.AITagsUpdatedAt)

	_, err = store.Recipes.Get(ctx, "no-such-id")
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestRecipeStoreGetRandomEmptyStore(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Recipes.GetRandom(context.Background())
	assert.ErrorIs(t, err, common.ErrNoRecipes)
}

func TestFindByTagOverlapRanking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	full := seedRecipe(t, store, "快手主菜", []string{"Main Dish", "Quick (< 30 min)", "Easy"})
	partial := seedRecipe(t, store, "慢燉主菜", []string{"Main Dish"})
	seedRecipe(t, store, "甜點", []string{"Dessert"})

	matches, err := store.Recipes.FindByTagOverlap(ctx, []string{"Main Dish", "Quick (< 30 min)"})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// 命中數遞減排序，大小寫不影響比對
	assert.Equal(t, full.ID, matches[0].Recipe.ID)
	assert.Equal(t, 2, matches[0].MatchCount)
	assert.Equal(t, partial.ID, matches[1].Recipe.ID)
	assert.Equal(t, 1, matches[1].MatchCount)
}

func TestFindByTagOverlapCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "家常菜", []string{"Main Dish"})

	matches, err := store.Recipes.FindByTagOverlap(ctx, []string{"MAIN DISH"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, r.ID, matches[0].Recipe.ID)
}

func TestFindByInferredTagLike(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedRecipe(t, store, "甜點", []string{"Dessert"})
	untagged := seedRecipe(t, store, "週間晚餐", nil)
	require.NoError(t, store.Recipes.AppendInferredTags(ctx, untagged.ID, []string{"weeknight friendly"}))

	matches, err := store.Recipes.FindByInferredTagLike(ctx,
		[]string{"weeknight", "fast", "30 min"},
		[]string{"Quick (< 30 min)"})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, untagged.ID, matches[0].Recipe.ID)
	assert.Equal(t, 0, matches[0].MatchCount)
	assert.Equal(t, 1, matches[0].InferredCount)
}

func TestAppendInferredTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "滷肉飯", []string{"Main Dish"})

	require.NoError(t, store.Recipes.AppendInferredTags(ctx, r.ID, []string{"hearty", "family favorite"}))

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hearty", "family favorite"}, got.AITags)
	require.NotNil(t, got.AITagsUpdatedAt)
	first := *got.AITagsUpdatedAt

	// 追加不去重，重複寫入照樣累積
	require.NoError(t, store.Recipes.AppendInferredTags(ctx, r.ID, []string{"hearty"}))
	got, err = store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hearty", "family favorite", "hearty"}, got.AITags)
	require.NotNil(t, got.AITagsUpdatedAt)
	assert.False(t, got.AITagsUpdatedAt.Before(first))

	// 不存在的食譜
	err = store.Recipes.AppendInferredTags(ctx, "no-such-id", []string{"x"})
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestTouchInferredMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "味噌湯", []string{"Soup"})

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AITagsUpdatedAt)

	require.NoError(t, store.Recipes.TouchInferredMetadata(ctx, r.ID))
	got, err = store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AITagsUpdatedAt)
	first := *got.AITagsUpdatedAt

	// 戳記只往後走，不回退
	require.NoError(t, store.Recipes.TouchInferredMetadata(ctx, r.ID))
	got, err = store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AITagsUpdatedAt)
	assert.False(t, got.AITagsUpdatedAt.Before(first))

	// 標籤本身不受影響
	assert.Empty(t, got.AITags)
	assert.Equal(t, []string{"Soup"}, got.Tags)
}

func TestAppendInferredTagsConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "咖哩飯", []string{"Main Dish"})

	batches := [][]string{
		{"mild spice", "one pot", "kid friendly", "make ahead", "freezer friendly", "weeknight"},
		{"comfort food", "rice based", "saucy", "budget friendly", "leftovers", "crowd pleaser"},
	}

	// 兩個併發追加都必須留存，不能互相覆蓋
	var wg sync.WaitGroup
	errs := make([]error, len(batches))
	for i, tags := range batches {
		wg.Add(1)
		go func(i int, tags []string) {
			defer wg.Done()
			errs[i] = store.Recipes.AppendInferredTags(ctx, r.ID, tags)
		}(i, tags)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.AITags, 12)
	for _, batch := range batches {
		for _, tag := range batch {
			assert.Contains(t, got.AITags, tag)
		}
	}
}

func TestReplaceTagsKeepsInferredTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := seedRecipe(t, store, "燉牛肉", []string{"Main Dish"})
	require.NoError(t, store.Recipes.AppendInferredTags(ctx, r.ID, []string{"slow cooked"}))

	require.NoError(t, store.Recipes.ReplaceTags(ctx, r.ID, []string{"Comfort Food", "Main Dish"}))

	got, err := store.Recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Comfort Food", "Main Dish"}, got.Tags)
	assert.Equal(t, []string{"slow cooked"}, got.AITags)

	err = store.Recipes.ReplaceTags(ctx, "no-such-id", []string{"x"})
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedRecipe(t, store, "一號菜", []string{"Easy"})
	seedRecipe(t, store, "二號菜", []string{"Easy"})
	seedRecipe(t, store, "三號菜", []string{"Easy"})

	n, err := store.Recipes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recipes, err := store.Recipes.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, recipes, 2)

	recipes, err = store.Recipes.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}
