package recipe

import (
	"errors"
	"net/http"
	"strconv"

	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImportRequest 批次匯入食譜
type ImportRequest struct {
	Recipes []ImportRecipe `json:"recipes" binding:"required"`
}

// ImportRecipe 匯入的單筆食譜；正規標籤照原樣儲存
type ImportRecipe struct {
	Name        string   `json:"name" binding:"required"`
	Ingredients string   `json:"ingredients"`
	Directions  string   `json:"directions"`
	Notes       string   `json:"notes"`
	PrepTime    string   `json:"prep_time"`
	CookTime    string   `json:"cook_time"`
	Servings    string   `json:"servings"`
	Tags        []string `json:"tags"`
}

// ReplaceTagsRequest 批次重建正規標籤（不動推斷標籤）
type ReplaceTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// Handler 食譜處理程序
type Handler struct {
	store *storage.RecipeStore
}

// NewHandler 創建食譜處理程序
func NewHandler(store *storage.RecipeStore) *Handler {
	return &Handler{store: store}
}

// HandleList 列出食譜
func (h *Handler) HandleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	recipes, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		common.LogError("食譜列表查詢失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"limit":   limit,
		"offset":  offset,
	})
}

// HandleGet 取得單筆食譜
func (h *Handler) HandleGet(c *gin.Context) {
	recipe, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrRecipeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "找不到指定的食譜",
				"code":  "RECIPE_NOT_FOUND",
			})
			return
		}
		common.LogError("食譜查詢失敗",
			zap.String("id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// HandleImport 批次匯入食譜
func (h *Handler) HandleImport(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	created := make([]string, 0, len(req.Recipes))
	for _, in := range req.Recipes {
		r := common.Recipe{
			Name:        in.Name,
			Ingredients: in.Ingredients,
			Directions:  in.Directions,
			Notes:       in.Notes,
			PrepTime:    in.PrepTime,
			CookTime:    in.CookTime,
			Servings:    in.Servings,
			Tags:        in.Tags,
		}
		if err := h.store.Create(c.Request.Context(), &r); err != nil {
			common.LogError("食譜匯入失敗",
				zap.String("name", in.Name),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "Import failed",
				"imported": created,
			})
			return
		}
		created = append(created, r.ID)
	}

	common.LogInfo("食譜匯入完成",
		zap.Int("count", len(created)),
	)
	c.JSON(http.StatusCreated, gin.H{"imported": created})
}

// HandleReplaceTags 重建單筆食譜的正規標籤
func (h *Handler) HandleReplaceTags(c *gin.Context) {
	var req ReplaceTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.store.ReplaceTags(c.Request.Context(), c.Param("id"), req.Tags); err != nil {
		if errors.Is(err, common.ErrRecipeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "找不到指定的食譜",
				"code":  "RECIPE_NOT_FOUND",
			})
			return
		}
		common.LogError("標籤重建失敗",
			zap.String("id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
