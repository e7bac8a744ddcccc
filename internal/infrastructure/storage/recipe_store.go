package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"recipe-recommender/internal/pkg/common"
)

// RecipeStore 食譜倉儲
type RecipeStore struct {
	db *sql.DB
}

const recipeColumns = `id, name, ingredients, directions, notes, prep_time, cook_time, servings, tags, ai_tags, ai_tags_updated_at`

// scanRecipe 從查詢結果掃描單筆食譜
func scanRecipe(scanner interface{ Scan(...any) error }) (common.Recipe, error) {
	var r common.Recipe
	var tagsJSON, aiTagsJSON string
	var updatedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.Name, &r.Ingredients, &r.Directions, &r.Notes,
		&r.PrepTime, &r.CookTime, &r.Servings, &tagsJSON, &aiTagsJSON, &updatedAt)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return r, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(aiTagsJSON), &r.AITags); err != nil {
		return r, fmt.Errorf("failed to decode ai_tags: %w", err)
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		r.AITagsUpdatedAt = &t
	}
	return r, nil
}

// Create 建立新食譜（匯入用；tags 原樣保存，ai_tags 一律從空陣列開始）
func (s *RecipeStore) Create(ctx context.Context, r *common.Recipe) error {
	if r.ID == "" {
		r.ID = common.GenerateUUID()
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.AITags = []string{}

	tagsJSON, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, name, ingredients, directions, notes, prep_time, cook_time, servings, tags, ai_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '[]')`,
		r.ID, r.Name, r.Ingredients, r.Directions, r.Notes,
		r.PrepTime, r.CookTime, r.Servings, string(tagsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Get 依 ID 取得食譜
func (s *RecipeStore) Get(ctx context.Context, id string) (*common.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM recipes WHERE id = ?", recipeColumns), id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// List 依建立時間列出食譜
func (s *RecipeStore) List(ctx context.Context, limit, offset int) ([]common.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM recipes ORDER BY created_at DESC, id LIMIT ? OFFSET ?", recipeColumns),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()
	return collectRecipes(rows)
}

// Count 回傳食譜總數
func (s *RecipeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recipes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// GetRandom 隨機取得一筆食譜；空庫時回傳 ErrNoRecipes
func (s *RecipeStore) GetRandom(ctx context.Context) (*common.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM recipes ORDER BY RANDOM() LIMIT 1", recipeColumns))
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNoRecipes
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get random recipe: %w", err)
	}
	return &r, nil
}

// FindByTagOverlap 找出人工標籤與篩選條件有交集的食譜，依命中數遞減排序
// 比對不分大小寫；同命中數的順序由呼叫端自行隨機決定
func (s *RecipeStore) FindByTagOverlap(ctx context.Context, tags []string) ([]common.RecipeMatch, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	placeholders, args := lowerInArgs(tags)
	query := fmt.Sprintf(`
		SELECT * FROM (
			SELECT %s, (
				SELECT COUNT(*) FROM json_each(recipes.tags) jt
				WHERE lower(jt.value) IN (%s)
			) AS match_count
			FROM recipes
		)
		WHERE match_count > 0
		ORDER BY match_count DESC, id`, recipeColumns, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag overlap: %w", err)
	}
	defer rows.Close()

	var matches []common.RecipeMatch
	for rows.Next() {
		m, err := scanRecipeMatch(rows, false)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// FindByInferredTagLike 次級查詢：推斷標籤模糊比對任一展開詞，
// 或人工標籤與原始篩選條件有交集；依 (人工命中, 推斷命中) 遞減排序
func (s *RecipeStore) FindByInferredTagLike(ctx context.Context, patterns []string, rawTags []string) ([]common.RecipeMatch, error) {
	if len(patterns) == 0 && len(rawTags) == 0 {
		return nil, nil
	}

	// 參數順序需跟著語句中的出現順序：先 match_count 的 IN，再 inferred_count 的 LIKE
	var args []any
	matchExpr := "0"
	if len(rawTags) > 0 {
		placeholders, inArgs := lowerInArgs(rawTags)
		matchExpr = fmt.Sprintf(
			"(SELECT COUNT(*) FROM json_each(recipes.tags) jt WHERE lower(jt.value) IN (%s))",
			placeholders)
		args = append(args, inArgs...)
	}

	inferredExpr := "0"
	if len(patterns) > 0 {
		likeClauses := make([]string, 0, len(patterns))
		for _, p := range patterns {
			likeClauses = append(likeClauses, "lower(ja.value) LIKE ?")
			args = append(args, "%"+strings.ToLower(p)+"%")
		}
		inferredExpr = fmt.Sprintf(
			"(SELECT COUNT(*) FROM json_each(recipes.ai_tags) ja WHERE %s)",
			strings.Join(likeClauses, " OR "))
	}

	query := fmt.Sprintf(`
		SELECT * FROM (
			SELECT %s, %s AS match_count, %s AS inferred_count
			FROM recipes
		)
		WHERE match_count > 0 OR inferred_count > 0
		ORDER BY match_count DESC, inferred_count DESC, id`,
		recipeColumns, matchExpr, inferredExpr)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inferred tags: %w", err)
	}
	defer rows.Close()

	var matches []common.RecipeMatch
	for rows.Next() {
		m, err := scanRecipeMatch(rows, true)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// AppendInferredTags 以單一語句在資料庫端串接 ai_tags，
// 避免讀後寫競爭造成併發追加互相覆蓋；同時戳記更新時間
func (s *RecipeStore) AppendInferredTags(ctx context.Context, id string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	newTags, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode new tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE recipes
		SET ai_tags = (
			SELECT json_group_array(value) FROM (
				SELECT value FROM json_each(recipes.ai_tags)
				UNION ALL
				SELECT value FROM json_each(?)
			)
		),
		ai_tags_updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(newTags), id)
	if err != nil {
		return fmt.Errorf("failed to append inferred tags: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check append result: %w", err)
	}
	if affected == 0 {
		return common.ErrRecipeNotFound
	}
	return nil
}

// TouchInferredMetadata 單獨戳記推斷標籤的更新時間
func (s *RecipeStore) TouchInferredMetadata(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE recipes SET ai_tags_updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to touch inferred metadata: %w", err)
	}
	return nil
}

// ReplaceTags 整批覆蓋人工標籤（批次重標作業用；不碰 ai_tags）
func (s *RecipeStore) ReplaceTags(ctx context.Context, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE recipes SET tags = ? WHERE id = ?", string(tagsJSON), id)
	if err != nil {
		return fmt.Errorf("failed to replace tags: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check replace result: %w", err)
	}
	if affected == 0 {
		return common.ErrRecipeNotFound
	}
	return nil
}

// collectRecipes 收集查詢結果
func collectRecipes(rows *sql.Rows) ([]common.Recipe, error) {
	var recipes []common.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// scanRecipeMatch 掃描帶命中數的食譜
func scanRecipeMatch(rows *sql.Rows, withInferred bool) (common.RecipeMatch, error) {
	var m common.RecipeMatch
	var tagsJSON, aiTagsJSON string
	var updatedAt sql.NullTime

	dest := []any{&m.Recipe.ID, &m.Recipe.Name, &m.Recipe.Ingredients, &m.Recipe.Directions,
		&m.Recipe.Notes, &m.Recipe.PrepTime, &m.Recipe.CookTime, &m.Recipe.Servings,
		&tagsJSON, &aiTagsJSON, &updatedAt, &m.MatchCount}
	if withInferred {
		dest = append(dest, &m.InferredCount)
	}
	if err := rows.Scan(dest...); err != nil {
		return m, fmt.Errorf("failed to scan recipe match: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &m.Recipe.Tags); err != nil {
		return m, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(aiTagsJSON), &m.Recipe.AITags); err != nil {
		return m, fmt.Errorf("failed to decode ai_tags: %w", err)
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		m.Recipe.AITagsUpdatedAt = &t
	}
	return m, nil
}

// lowerInArgs 產生 lower() IN 子句的佔位符與參數
func lowerInArgs(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return strings.Join(placeholders, ", "), args
}
