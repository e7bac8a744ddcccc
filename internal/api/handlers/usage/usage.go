package usage

import (
	"net/http"

	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 使用紀錄處理程序
type Handler struct {
	ledger *storage.UsageLedger
}

// NewHandler 創建使用紀錄處理程序
func NewHandler(ledger *storage.UsageLedger) *Handler {
	return &Handler{ledger: ledger}
}

// HandleSummary 依時間窗彙總各功能的呼叫次數與費用
func (h *Handler) HandleSummary(c *gin.Context) {
	window := storage.ParseWindow(c.DefaultQuery("window", "all"))

	summaries, err := h.ledger.Aggregate(c.Request.Context(), window)
	if err != nil {
		common.LogError("使用紀錄彙總失敗",
			zap.String("window", string(window)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window":    window,
		"summaries": summaries,
	})
}
