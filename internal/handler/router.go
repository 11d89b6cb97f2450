package handler

import (
	"net/http"

	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// NewRouter 組出完整的 HTTP 路由。protected 依序套用在所有寫入路由上，
// 通常是驗證後接限流，限流時才拿得到呼叫者身分
func NewRouter(svc service.LedgerService, clk clock.Clock, protected ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	NewEventHandler(svc).RegisterRoutes(router, protected...)
	NewTicketHandler(svc).RegisterRoutes(router, protected...)
	NewAuctionHandler(svc, clk).RegisterRoutes(router, protected...)
	NewAccountHandler(svc).RegisterRoutes(router, protected...)
	return router
}
