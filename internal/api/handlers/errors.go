package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/api/middleware"
	"ridehail/internal/domain/entities"
	"ridehail/internal/lifecycle"
	"ridehail/internal/repository"
	"ridehail/internal/services"
)

// respondError maps service and lifecycle errors to HTTP status codes.
//
// Go Learning Note — errors.Is vs ==:
// Lifecycle errors arrive wrapped (a *TransitionError unwraps to both
// ErrActionNotAllowed and its cause), so comparing with == would miss them.
// errors.Is walks the whole chain. Order matters here: the authorization
// check has to come before the generic "not allowed" one.
func respondError(c *gin.Context, err error) {
	var te *lifecycle.TransitionError
	errors.As(err, &te)

	switch {
	case errors.Is(err, entities.ErrInvalidRideRequest),
		errors.Is(err, services.ErrInvalidParty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrRideNotFound),
		errors.Is(err, repository.ErrRiderNotFound),
		errors.Is(err, repository.ErrDriverNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidState):
		log.Printf("[API] data integrity error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ride has an unrecognised status"})
	case errors.Is(err, lifecycle.ErrNotAuthorized),
		errors.Is(err, services.ErrUnsupportedRole):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case te != nil:
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"action": te.Action,
			"status": te.Status,
		})
	case errors.Is(err, services.ErrActiveRideExists),
		errors.Is(err, repository.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorFrom builds the service-level actor from the authenticated context.
func actorFrom(c *gin.Context) services.Actor {
	role, _ := services.ParseRole(middleware.GetUserType(c))
	return services.Actor{ID: middleware.GetUserID(c), Role: role}
}

// canView reports whether actor may see ride: its rider, its driver or an
// admin.
func canView(actor services.Actor, ride *entities.Ride) bool {
	switch actor.Role {
	case services.RoleAdmin:
		return true
	case services.RoleRider:
		return ride.RiderID == actor.ID
	case services.RoleDriver:
		return ride.DriverID == actor.ID
	}
	return false
}
