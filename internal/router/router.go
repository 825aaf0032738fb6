package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ranlab/bizdir-backend/config"
	"github.com/ranlab/bizdir-backend/internal/app/controller"
	"github.com/ranlab/bizdir-backend/internal/middleware"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
)

type Router struct {
	editRequestController *controller.EditRequestController
	regionController      *controller.RegionController
	businessController    *controller.BusinessController
	userController        *controller.UserController
	cacheController       *controller.CacheController
	streamController      *controller.StreamController
	authMiddleware        *middleware.AuthMiddleware
	metrics               *metrics.Metrics
	gatherer              prometheus.Gatherer
	config                *config.Config
}

func NewRouter(
	editRequestController *controller.EditRequestController,
	regionController *controller.RegionController,
	businessController *controller.BusinessController,
	userController *controller.UserController,
	cacheController *controller.CacheController,
	streamController *controller.StreamController,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		editRequestController: editRequestController,
		regionController:      regionController,
		businessController:    businessController,
		userController:        userController,
		cacheController:       cacheController,
		streamController:      streamController,
		authMiddleware:        authMiddleware,
		metrics:               m,
		gatherer:              gatherer,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(r.metrics))
	router.Use(middleware.CORS(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Business directory API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	requireUser := r.authMiddleware.RequireAuthenticated()
	requireAdmin := r.authMiddleware.RequireAdmin()

	v1 := router.Group("/api/v1")
	v1.Use(r.authMiddleware.Identify())
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "pong"})
		})

		v1.POST("/region/:regionId/edits", requireUser, r.editRequestController.Submit)
		v1.GET("/region/:regionId/edits", requireUser, r.editRequestController.ListForRegion)

		edits := v1.Group("/edits")
		edits.Use(requireUser)
		{
			edits.GET("", r.editRequestController.ListMine)
			edits.GET("/all", requireAdmin, r.editRequestController.ListAll)
			edits.GET("/stream", r.streamController.Stream)
			edits.GET("/:id", r.editRequestController.Get)
			edits.POST("/:id", r.editRequestController.Update)
			edits.GET("/:id/preview", requireAdmin, r.editRequestController.Preview)
		}

		regions := v1.Group("/regions")
		{
			regions.GET("", r.regionController.List)
			regions.POST("", requireAdmin, r.regionController.Save)
			regions.DELETE("/:regionId", requireAdmin, r.regionController.Delete)
			regions.GET("/:regionId/filters", requireUser, r.regionController.Filters)
			regions.GET("/:regionId/businesses", requireUser, r.businessController.ListByRegion)
			regions.POST("/:regionId/businesses", requireUser, r.businessController.Create)
		}

		businesses := v1.Group("/businesses")
		{
			businesses.GET("/export", requireAdmin, r.businessController.Export)
			businesses.POST("/export/snapshot", requireAdmin, r.businessController.Snapshot)
			businesses.POST("/:businessId", requireUser, r.businessController.Update)
			businesses.DELETE("/:businessId", requireUser, r.businessController.Delete)
		}

		v1.GET("/filters/industries", requireAdmin, r.businessController.Industries)

		users := v1.Group("/users")
		users.Use(requireUser)
		{
			users.GET("", r.userController.List)
			users.GET("/:userId", r.userController.Get)
			users.POST("/:userId", requireAdmin, r.userController.Update)
			users.GET("/:userId/regions", r.regionController.ManagedBy)
		}

		v1.POST("/cache/empty", requireUser, r.cacheController.Empty)
	}

	return router
}
