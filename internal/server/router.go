package server

import (
	"time"

	"todo-list/backend/internal/handlers"
	"todo-list/backend/internal/middleware"
	"todo-list/backend/internal/monitoring"
	"todo-list/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	AllowedOrigins []string
	Auth           services.AuthService
	Tokens         middleware.TokenValidator
	Tasks          services.TaskService
	Metrics        *monitoring.Metrics
	Health         *monitoring.HealthChecker
	Stats          map[string]monitoring.StatsFunc
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		middleware.RecoveryWithLog(),
		corsMiddleware(deps.AllowedOrigins),
		monitoring.TracingMiddleware(nil),
		deps.Metrics.Middleware(),
	)

	router.GET("/health", monitoring.HealthHandler(deps.Health, deps.Metrics))
	router.GET("/health/ready", monitoring.ReadinessHandler(deps.Health))
	router.GET("/health/live", monitoring.LivenessHandler(deps.Metrics))
	router.GET("/metrics", monitoring.MetricsHandler(deps.Metrics, deps.Stats))

	authHandler := handlers.NewAuthHandler(deps.Auth)
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	taskHandler := handlers.NewTaskHandler(deps.Tasks)
	tasks := router.Group("/tasks",
		middleware.Authenticate(deps.Tokens),
		middleware.RequireUser(deps.Auth),
	)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("", taskHandler.GetTasks)
	tasks.GET("/filter", taskHandler.FilterTasks)
	tasks.GET("/sort", taskHandler.SortTasks)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}
