package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seatpool_backend/internal/handlers"
	"seatpool_backend/internal/logger"
)

// RegisterRoutes регистрирует все HTTP маршруты.
// metricsPath == "" - эндпоинт метрик не публикуется.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	metricsPath string,
) {
	appHandlers.HealthHandler.RegisterRoutes(ginRouter)

	if metricsPath != "" {
		ginRouter.GET(metricsPath, gin.WrapH(promhttp.Handler()))
		logger.Info("Metrics route registered", "path", metricsPath)
	}

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.PoolHandler.RegisterRoutes(api)
		appHandlers.SeatHandler.RegisterRoutes(api)
		appHandlers.SubscriptionHandler.RegisterRoutes(api)
		appHandlers.SyncHandler.RegisterRoutes(api)
	}
}
