package storage

import (
	"context"
	"database/sql"
	"fmt"

	"recipe-recommender/internal/pkg/common"
)

// UsageLedger AI 使用紀錄帳本，只新增與彙總，不修改不刪除
type UsageLedger struct {
	db *sql.DB
}

// Window 彙總時間窗
type Window string

const (
	WindowToday  Window = "today"
	Window7Days  Window = "7d"
	Window30Days Window = "30d"
	WindowAll    Window = "all"
)

// ParseWindow 解析時間窗字串，未知值一律視為 all
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowToday, Window7Days, Window30Days:
		return Window(s)
	default:
		return WindowAll
	}
}

// modifier 轉成 SQLite datetime 修飾詞；all 回傳空字串
// 和 CURRENT_TIMESTAMP 同用 SQLite 自身的時間表示，避免格式不一致
func (w Window) modifier() string {
	switch w {
	case WindowToday:
		return "start of day"
	case Window7Days:
		return "-7 days"
	case Window30Days:
		return "-30 days"
	default:
		return ""
	}
}

// Record 寫入一筆使用紀錄
func (l *UsageLedger) Record(ctx context.Context, feature common.Feature, costCents int64) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO usage_records (feature, cost_cents) VALUES (?, ?)",
		string(feature), costCents)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Aggregate 依功能彙總指定時間窗內的呼叫數與成本
func (l *UsageLedger) Aggregate(ctx context.Context, window Window) ([]common.UsageSummary, error) {
	query := `
		SELECT feature, COUNT(*), COALESCE(SUM(cost_cents), 0)
		FROM usage_records`
	var args []any
	if modifier := window.modifier(); modifier != "" {
		query += " WHERE created_at >= datetime('now', ?)"
		args = append(args, modifier)
	}
	query += " GROUP BY feature ORDER BY feature"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	var summaries []common.UsageSummary
	for rows.Next() {
		var s common.UsageSummary
		var feature string
		if err := rows.Scan(&feature, &s.Calls, &s.TotalCostCents); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		s.Feature = common.Feature(feature)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CountByFeature 回傳單一功能的紀錄數（測試與健康檢查用）
func (l *UsageLedger) CountByFeature(ctx context.Context, feature common.Feature) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_records WHERE feature = ?", string(feature)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}
	return n, nil
}
