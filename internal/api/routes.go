package api

import (
	"github.com/gin-gonic/gin"

	"ridehail/internal/api/handlers"
	"ridehail/internal/api/middleware"
)

type Router struct {
	rideHandler   *handlers.RideHandler
	driverHandler *handlers.DriverHandler
	adminHandler  *handlers.AdminHandler
	authHandler   *handlers.AuthHandler // nil disables POST /auth/token
	verifier      middleware.TokenVerifier
}

func NewRouter(
	rideHandler *handlers.RideHandler,
	driverHandler *handlers.DriverHandler,
	adminHandler *handlers.AdminHandler,
	authHandler *handlers.AuthHandler,
	verifier middleware.TokenVerifier,
) *Router {
	return &Router{
		rideHandler:   rideHandler,
		driverHandler: driverHandler,
		adminHandler:  adminHandler,
		authHandler:   authHandler,
		verifier:      verifier,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if r.authHandler != nil {
		engine.POST("/auth/token", r.authHandler.IssueToken)
	}

	// Protected routes
	api := engine.Group("/")
	api.Use(middleware.JWTAuth(r.verifier))
	{
		rides := api.Group("/rides")
		{
			rides.POST("", middleware.RequireRole(middleware.UserTypeRider), r.rideHandler.CreateRide)
			rides.GET("", middleware.RequireRole(middleware.UserTypeRider, middleware.UserTypeDriver), r.rideHandler.ListRides)

			// Shared endpoints (rider, driver and admin)
			rides.GET("/:id", r.rideHandler.GetRide)
			rides.GET("/:id/events", r.rideHandler.Events)
			rides.POST("/:id/cancel", r.rideHandler.CancelRide)

			// Driver endpoints
			driverOnly := middleware.RequireRole(middleware.UserTypeDriver)
			rides.POST("/:id/accept", driverOnly, r.driverHandler.AcceptRide)
			rides.POST("/:id/reject", driverOnly, r.driverHandler.RejectRide)

			driverOrAdmin := middleware.RequireRole(middleware.UserTypeDriver, middleware.UserTypeAdmin)
			rides.POST("/:id/start", driverOrAdmin, r.driverHandler.StartRide)
			rides.POST("/:id/complete", driverOrAdmin, r.driverHandler.CompleteRide)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.UserTypeAdmin))
		{
			admin.POST("/riders", r.adminHandler.RegisterRider)
			admin.POST("/drivers", r.adminHandler.RegisterDriver)
		}
	}
}
