package handler

import (
	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")
	{
		// 红心账本
		hearts := api.Group("/hearts")
		{
			hearts.GET("/balance", h.GetBalance)
			hearts.GET("/history", h.GetHistory)
			hearts.POST("/credit", h.CreditHearts)
			hearts.POST("/debit", h.DebitHearts)
			hearts.POST("/adjust", h.AdjustHearts)
		}

		// 目录（只读）
		api.GET("/packages", h.ListPackages)
		api.GET("/payment-methods", h.ListMethods)

		// 支付
		payments := api.Group("/payments")
		{
			payments.POST("/execute", h.ExecutePayment)
			payments.GET("/detail", h.GetPayment)
			payments.GET("/list", h.ListPayments)
		}

		// 退款
		refunds := api.Group("/refunds")
		{
			refunds.POST("/execute", h.ExecuteRefund)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
