package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/storeline/backend/internal/config"
	"github.com/storeline/backend/internal/handlers"
	"github.com/storeline/backend/internal/middleware"
)

// SetupRouter builds the gin engine with all loyalty routes
func SetupRouter(cfg *config.Config, loyaltyHandler *handlers.LoyaltyHandler, programHandler *handlers.ProgramHandler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimiter := middleware.NewRateLimiter(50, 5, 100, 10)

	RegisterLoyaltyRoutes(router, loyaltyHandler, programHandler, rateLimiter)

	return router
}

// RegisterLoyaltyRoutes registers membership, points and program routes
func RegisterLoyaltyRoutes(router *gin.Engine, loyaltyHandler *handlers.LoyaltyHandler, programHandler *handlers.ProgramHandler, rateLimiter *middleware.RateLimiter) {
	api := router.Group("/api/loyalty")
	api.Use(rateLimiter.IPRateLimiterMiddleware())
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/enroll", loyaltyHandler.Enroll)
		api.GET("/members", loyaltyHandler.GetMemberByCustomer)
		api.GET("/members/:id", loyaltyHandler.GetMember)
		api.GET("/members/code/:code", loyaltyHandler.GetMemberByCode)
		api.GET("/members/:id/transactions", loyaltyHandler.GetTransactions)

		// balance mutations carry the per-member limiter to keep a
		// misbehaving till from queueing on one member's row lock
		mutations := api.Group("")
		mutations.Use(rateLimiter.MemberRateLimiterMiddleware())
		{
			mutations.POST("/members/:id/earn", loyaltyHandler.EarnPoints)
			mutations.POST("/members/:id/redeem", loyaltyHandler.RedeemReward)
		}

		api.GET("/programs/:id", programHandler.GetProgram)
		api.GET("/programs/:id/tiers", programHandler.ListTiers)
		api.GET("/programs/:id/rewards", programHandler.ListRewards)
	}

	admin := router.Group("/api/loyalty")
	admin.Use(rateLimiter.IPRateLimiterMiddleware())
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/programs", programHandler.CreateProgram)
		admin.PUT("/programs/:id", programHandler.UpdateProgram)
		admin.POST("/programs/:id/tiers", programHandler.CreateTier)
		admin.POST("/programs/:id/rewards", programHandler.CreateReward)
		admin.POST("/members/:id/adjust", loyaltyHandler.AdjustPoints)
		admin.POST("/expiry/run", loyaltyHandler.RunExpiry)
	}
}
