package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// schema 資料表定義
// recipes.tags 與 recipes.ai_tags 皆以 JSON 陣列文字儲存；
// ai_tags 只會被追加，不做去重也不做修剪
const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ingredients TEXT DEFAULT '',
	directions TEXT DEFAULT '',
	notes TEXT DEFAULT '',
	prep_time TEXT DEFAULT '',
	cook_time TEXT DEFAULT '',
	servings TEXT DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	ai_tags TEXT NOT NULL DEFAULT '[]',
	ai_tags_updated_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	feature TEXT NOT NULL,
	cost_cents INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);
CREATE INDEX IF NOT EXISTS idx_usage_records_feature ON usage_records(feature);
CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at DESC);
`

// Store 資料庫連線與子倉儲的持有者
type Store struct {
	db      *sql.DB
	Recipes *RecipeStore
	Usage   *UsageLedger
}

// Open 開啟資料庫並初始化 schema
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// 使用 DSN 參數設定 WAL 模式與忙碌逾時，讓連線池內所有連線生效
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 限制連線數，避免高併發下觸發 SQLite 鎖定
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	common.LogInfo("資料庫初始化成功",
		zap.String("path", cfg.Path),
	)

	return &Store{
		db:      db,
		Recipes: &RecipeStore{db: db},
		Usage:   &UsageLedger{db: db},
	}, nil
}

// Ping 檢查資料庫連線
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉資料庫連線
func (s *Store) Close() error {
	return s.db.Close()
}
