package api

import (
	"fmt"
	"net/http"
	"time"

	"recipe-recommender/internal/api/handlers/health"
	recipeHandler "recipe-recommender/internal/api/handlers/recipe"
	recommendHandler "recipe-recommender/internal/api/handlers/recommend"
	usageHandler "recipe-recommender/internal/api/handlers/usage"
	"recipe-recommender/internal/api/middleware"
	"recipe-recommender/internal/core/ai/cache"
	"recipe-recommender/internal/core/ai/service"
	"recipe-recommender/internal/core/recommend"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/infrastructure/storage"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小限制 (1MB)；本服務沒有上傳圖片的需求
const maxBodySize = 1 << 20

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, store *storage.Store, cacheManager *cache.CacheManager) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 重複請求過濾
	router.Use(middleware.Deduplication(cfg))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("model", cfg.OpenRouter.Model),
		zap.Int("shortlist_size", cfg.Recommend.ShortlistSize),
	)

	// 初始化服務
	aiService, err := service.NewService(cfg, cacheManager)
	if err != nil || aiService == nil {
		common.LogError("Failed to initialize AI service", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	quickPick := recommend.NewQuickPickService(store.Recipes, nil)
	smartMatch := recommend.NewSmartMatchService(store, aiService, cfg)

	// 全局中間件：注入配置
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck(store))
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		recommendInstance := recommendHandler.NewHandler(quickPick, smartMatch)
		recipeInstance := recipeHandler.NewHandler(store.Recipes)
		usageInstance := usageHandler.NewHandler(store.Usage)

		// 推薦
		api.POST("/recommend", recommendInstance.HandleRecommend)

		// 食譜瀏覽與匯入
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.GET("", recipeInstance.HandleList)
			recipeGroup.GET("/:id", recipeInstance.HandleGet)
			recipeGroup.POST("/import", recipeInstance.HandleImport)
			recipeGroup.PUT("/:id/tags", recipeInstance.HandleReplaceTags)
		}

		// 使用紀錄彙總
		api.GET("/usage/summary", usageInstance.HandleSummary)
	}

	// 快取統計（除錯用）
	if cacheManager != nil {
		router.GET("/debug/cache", func(c *gin.Context) {
			c.JSON(http.StatusOK, cacheManager.GetStats())
		})
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
