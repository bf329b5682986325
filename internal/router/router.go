package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/controller"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/middleware"
)

type Router struct {
	authController     *controller.AuthController
	clientController   *controller.ClientController
	reportController   *controller.ReportController
	workflowController *controller.WorkflowController
	seasonController   *controller.SeasonController
	boardController    *controller.BoardController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	clientController *controller.ClientController,
	reportController *controller.ReportController,
	workflowController *controller.WorkflowController,
	seasonController *controller.SeasonController,
	boardController *controller.BoardController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		clientController:   clientController,
		reportController:   reportController,
		workflowController: workflowController,
		seasonController:   seasonController,
		boardController:    boardController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Annual report API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.Me)
		}

		v1.POST("/users",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleAdmin),
			r.authController.CreateStaff,
		)

		clients := v1.Group("/clients")
		clients.Use(r.authMiddleware.Authenticate())
		{
			clients.POST("", r.clientController.CreateClient)
			clients.GET("", r.clientController.ListClients)
			clients.GET("/:id", r.clientController.GetClient)
		}

		reports := v1.Group("/reports")
		reports.Use(r.authMiddleware.Authenticate())
		{
			reports.POST("", r.reportController.CreateReport)
			reports.GET("", r.reportController.ListReports)
			reports.GET("/:id", r.reportController.GetReport)
			reports.PATCH("/:id", r.reportController.UpdateReport)

			reports.POST("/:id/status", r.workflowController.TransitionStatus)
			reports.POST("/:id/stage", r.workflowController.TransitionStage)
			reports.GET("/:id/schedules", r.workflowController.ListSchedules)
			reports.POST("/:id/schedules/:key/complete", r.workflowController.CompleteSchedule)
			reports.GET("/:id/history", r.workflowController.GetHistory)
			reports.GET("/:id/stage-history", r.workflowController.GetStageHistory)
		}

		seasons := v1.Group("/seasons")
		seasons.Use(r.authMiddleware.Authenticate())
		{
			seasons.GET("/:tax_year/summary", r.seasonController.GetSummary)
			seasons.GET("/:tax_year/export", r.seasonController.Export)
		}

		v1.GET("/kanban", r.authMiddleware.Authenticate(), r.seasonController.GetKanban)

		// browsers cannot set headers on a websocket handshake, so the token may come as ?token=
		v1.GET("/board/ws", r.authMiddleware.Authenticate(), r.boardController.Connect)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
