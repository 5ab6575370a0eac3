package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/api/middleware"
	"ridehail/internal/domain/entities"
	"ridehail/internal/services"
)

// DriverHandler groups the endpoints that move a ride forward: the assigned
// driver accepts or rejects it, then starts and completes the trip. Admins
// may also start and complete on a driver's behalf.
type DriverHandler struct {
	rideService *services.RideService
}

// NewDriverHandler creates a DriverHandler with its required service dependencies.
func NewDriverHandler(rideService *services.RideService) *DriverHandler {
	return &DriverHandler{rideService: rideService}
}

// AcceptRide handles POST /rides/:id/accept.
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	h.respond(c, func() (*entities.Ride, error) {
		return h.rideService.AcceptRide(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	})
}

// RejectRide handles POST /rides/:id/reject. A rejected ride is cancelled.
func (h *DriverHandler) RejectRide(c *gin.Context) {
	h.respond(c, func() (*entities.Ride, error) {
		return h.rideService.RejectRide(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	})
}

// StartRide handles POST /rides/:id/start.
func (h *DriverHandler) StartRide(c *gin.Context) {
	h.respond(c, func() (*entities.Ride, error) {
		return h.rideService.StartRide(c.Request.Context(), c.Param("id"), actorFrom(c))
	})
}

// CompleteRide handles POST /rides/:id/complete.
func (h *DriverHandler) CompleteRide(c *gin.Context) {
	h.respond(c, func() (*entities.Ride, error) {
		return h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), actorFrom(c))
	})
}

func (h *DriverHandler) respond(c *gin.Context, transition func() (*entities.Ride, error)) {
	ride, err := transition()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ride)
}
