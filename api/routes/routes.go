package routes

import (
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/handlers"
	"github.com/ArowuTest/rifa-backend/internal/middleware"
	"github.com/ArowuTest/rifa-backend/internal/ws"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Dependencies carries everything the router wires.
type Dependencies struct {
	Tokens         *jwt.TokenService
	Hub            *ws.Hub
	Auth           *handlers.AuthHandler
	Raffles        *handlers.RaffleHandler
	Tickets        *handlers.TicketHandler
	Payments       *handlers.PaymentHandler
	Notifications  *handlers.NotificationHandler
	AllowedOrigins []string
	// UploadsDir is served under /uploads when proofs are kept on disk.
	UploadsDir string
}

// SetupRouter sets up the router
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.MaxMultipartMemory = handlers.MaxProofSize + 1<<20

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"wsClients": deps.Hub.ClientCount(),
		})
	})
	router.GET("/ws", ws.ServeWS(deps.Tokens, deps.Hub))
	if deps.UploadsDir != "" {
		router.Static("/uploads", deps.UploadsDir)
	}

	authed := middleware.JWTAuthMiddleware(deps.Tokens)
	admin := []gin.HandlerFunc{authed, middleware.AdminRequired()}

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/register-admin", deps.Auth.RegisterAdmin)
	}

	raffles := api.Group("/raffles")
	{
		raffles.GET("/active", deps.Raffles.Active)
		raffles.GET("/:id", deps.Raffles.Get)

		adminRaffles := raffles.Group("", admin...)
		adminRaffles.GET("", deps.Raffles.List)
		adminRaffles.POST("", deps.Raffles.Create)
		adminRaffles.GET("/:id/stats", deps.Raffles.Stats)
		adminRaffles.PUT("/:id", deps.Raffles.Update)
		adminRaffles.PATCH("/:id/pause", deps.Raffles.TogglePause)
		adminRaffles.PATCH("/:id/activate", deps.Raffles.Activate)
		adminRaffles.DELETE("/:id", deps.Raffles.Delete)
		adminRaffles.POST("/:id/draw", deps.Raffles.Draw)
		adminRaffles.POST("/:id/reconcile", deps.Raffles.Reconcile)
	}

	tickets := api.Group("/tickets")
	{
		tickets.GET("/raffle/:id", deps.Tickets.ListByRaffle)
		tickets.POST("/check", deps.Tickets.Check)
		tickets.GET("/my", authed, deps.Tickets.My)
		tickets.GET("/raffle/:id/stats", append(admin, deps.Tickets.Stats)...)
		tickets.POST("/release", append(admin, deps.Tickets.Release)...)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/create-and-pay", middleware.OptionalAuth(deps.Tokens), deps.Payments.CreateAndPay)
		payments.GET("/my", authed, deps.Payments.My)
		payments.GET("/:id", authed, deps.Payments.Get)

		adminPayments := payments.Group("", admin...)
		adminPayments.GET("", deps.Payments.List)
		adminPayments.GET("/pending", deps.Payments.Pending)
		adminPayments.GET("/confirmed", deps.Payments.Confirmed)
		adminPayments.GET("/stats", deps.Payments.Stats)
		adminPayments.PUT("/:id/confirm", deps.Payments.Confirm)
		adminPayments.PUT("/:id/reject", deps.Payments.Reject)
	}

	api.GET("/notifications/my", authed, deps.Notifications.My)

	return router
}
