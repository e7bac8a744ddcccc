package storage

import (
	"context"
	"testing"

	"recipe-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		input    string
		expected Window
	}{
		{"today", WindowToday},
		{"7d", Window7Days},
		{"30d", Window30Days},
		{"all", WindowAll},
		{"", WindowAll},
		{"nonsense", WindowAll},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseWindow(tt.input))
		})
	}
}

func TestUsageLedgerRecordAndAggregate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Usage.Record(ctx, common.FeatureSmartMatch, 3))
	require.NoError(t, store.Usage.Record(ctx, common.FeatureSmartMatch, 3))
	require.NoError(t, store.Usage.Record(ctx, common.FeatureTakeoutSuggestion, 5))

	summaries, err := store.Usage.Aggregate(ctx, WindowAll)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// GROUP BY feature、依功能名稱排序
	assert.Equal(t, common.FeatureSmartMatch, summaries[0].Feature)
	assert.Equal(t, int64(2), summaries[0].Calls)
	assert.Equal(t, int64(6), summaries[0].TotalCostCents)

	assert.Equal(t, common.FeatureTakeoutSuggestion, summaries[1].Feature)
	assert.Equal(t, int64(1), summaries[1].Calls)
	assert.Equal(t, int64(5), summaries[1].TotalCostCents)
}

func TestUsageLedgerAggregateWindows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Usage.Record(ctx, common.FeatureSmartMatch, 3))

	// 剛寫入的紀錄落在所有時間窗內
	for _, window := range []Window{WindowToday, Window7Days, Window30Days, WindowAll} {
		summaries, err := store.Usage.Aggregate(ctx, window)
		require.NoError(t, err)
		require.Len(t, summaries, 1, "window %s", window)
		assert.Equal(t, int64(1), summaries[0].Calls)
	}
}

func TestUsageLedgerCountByFeature(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Usage.Record(ctx, common.FeatureSmartMatch, 3))

	n, err = store.Usage.CountByFeature(ctx, common.FeatureSmartMatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
