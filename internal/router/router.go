package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/handler"
	"github.com/satforge/exam-engine/internal/middleware"
	"github.com/satforge/exam-engine/internal/recovery"
	"github.com/satforge/exam-engine/internal/response"
	"github.com/satforge/exam-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam  *handler.ExamHandler
	Clock *handler.ClockHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	guard *recovery.Guard,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Exam Group (Student JWT + Fault Guard) ─────────────────────
	// The fault guard sits inside the auth middleware so a panic during
	// request handling can snapshot the authenticated student's session.
	examAPI := router.Group("/api/v1/exam")
	examAPI.Use(
		middleware.RequireStudentJWT(authService),
		guard.Middleware(),
	)
	{
		examAPI.POST("/attempts/recover", handlers.Exam.Recover)
		examAPI.PUT("/preferences/zoom", handlers.Exam.SetZoom)

		attempts := examAPI.Group("/attempts/:attempt_id")
		{
			attempts.POST("/module", handlers.Exam.StartModule)
			attempts.DELETE("/module", handlers.Exam.ClearModule)
			attempts.GET("/state", handlers.Exam.GetState)
			attempts.PUT("/answers/:question_id", handlers.Exam.SetAnswer)
			attempts.POST("/flags/:question_id", handlers.Exam.ToggleFlag)
			attempts.PUT("/cursor", handlers.Exam.SetCursor)
			attempts.PUT("/review", handlers.Exam.SetReview)
			attempts.POST("/submit-module", handlers.Exam.SubmitModule)
			attempts.DELETE("", handlers.Exam.Abandon)
		}
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/exam/clock", handlers.Clock.Stream)
	}

	return router
}
