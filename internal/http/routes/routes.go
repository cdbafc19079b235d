package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/http/handlers"
	"github.com/phambaophuc/vision-gateway/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	analysisHandler *handlers.AnalysisHandler
	config          *config.Config
	logger          *zap.Logger
}

func NewRouter(
	analysisHandler *handlers.AnalysisHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		analysisHandler: analysisHandler,
		config:          cfg,
		logger:          logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS(r.config.Server.AllowOrigins))
	router.Use(middleware.SecurityHeaders())

	api := router.Group("/api")
	{
		api.GET("/health", r.analysisHandler.HealthCheck)
		api.GET("/usage", r.analysisHandler.Usage)

		analysis := api.Group("")
		analysis.Use(
			middleware.RequireMultipart(),
			middleware.LimitBody(r.config.Storage.MaxUploadSize),
		)
		{
			analysis.POST("/analyze", r.analysisHandler.Analyze)
			analysis.POST("/analyze_batch", r.analysisHandler.AnalyzeBatch)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Vision gateway is running",
		})
	})

	return router
}
