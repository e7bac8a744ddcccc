package recommend

import (
	"errors"
	"net/http"

	"recipe-recommender/internal/core/recommend"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request 推薦請求
type Request struct {
	Mode       string   `json:"mode"`        // 目前只處理 "cooking"
	Filters    []string `json:"filters"`     // 篩選條件識別字，可為空
	SmartMatch bool     `json:"smart_match"` // 是否使用付費的 Smart Match 路徑
}

// Handler 推薦處理程序
type Handler struct {
	quickPick  *recommend.QuickPickService
	smartMatch *recommend.SmartMatchService
}

// NewHandler 創建推薦處理程序
func NewHandler(quickPick *recommend.QuickPickService, smartMatch *recommend.SmartMatchService) *Handler {
	return &Handler{
		quickPick:  quickPick,
		smartMatch: smartMatch,
	}
}

// HandleRecommend 處理推薦請求
// Smart Match 失敗時靜默降級至 Quick Pick，只以 degraded 欄位告知；
// 只有食譜庫為空才回傳使用者可見的失敗
func (h *Handler) HandleRecommend(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Mode != "" && req.Mode != "cooking" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported mode"})
		return
	}

	filters := recommend.Normalize(req.Filters)
	ctx := c.Request.Context()

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestID),
		zap.Strings("filters", filters),
		zap.Bool("smart_match", req.SmartMatch),
	)

	degraded := false
	var rec *recommend.Recommendation
	var err error

	if req.SmartMatch && len(filters) > 0 {
		rec, err = h.smartMatch.Recommend(ctx, filters)
		if err != nil && !errors.Is(err, common.ErrNoRecipes) {
			common.LogWarn("Smart Match 失敗，降級至 Quick Pick",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			degraded = true
			rec, err = h.quickPick.Recommend(ctx, filters)
		}
	} else {
		rec, err = h.quickPick.Recommend(ctx, filters)
	}

	if err != nil {
		if errors.Is(err, common.ErrNoRecipes) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "沒有可推薦的食譜",
				"code":  "NO_RECIPES",
			})
			return
		}
		common.LogError("推薦流程失敗",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rec.Degraded = degraded
	c.JSON(http.StatusOK, rec)
}
