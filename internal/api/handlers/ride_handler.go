package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain/entities"
	"ridehail/internal/events/ws"
	"ridehail/internal/services"
)

// RideHandler serves the rider-facing endpoints plus the ones every party
// shares: reading a ride, cancelling it and watching its events.
type RideHandler struct {
	rideService *services.RideService
	hub         *ws.Hub
}

func NewRideHandler(rideService *services.RideService, hub *ws.Hub) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		hub:         hub,
	}
}

// CreateRideRequest is the body of POST /rides. The rider comes from the
// token, never from the body.
type CreateRideRequest struct {
	DriverID          string `json:"driver_id" binding:"required"`
	VehicleID         string `json:"vehicle_id" binding:"required"`
	PickupLocationID  string `json:"pickup_location_id" binding:"required"`
	DropoffLocationID string `json:"dropoff_location_id" binding:"required"`
}

// CreateRide handles POST /rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorFrom(c)
	ride, err := h.rideService.CreateRide(c.Request.Context(), entities.NewRideRequest{
		RiderID:           actor.ID,
		DriverID:          req.DriverID,
		VehicleID:         req.VehicleID,
		PickupLocationID:  req.PickupLocationID,
		DropoffLocationID: req.DropoffLocationID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ride)
}

// ListRides handles GET /rides
func (h *RideHandler) ListRides(c *gin.Context) {
	rides, err := h.rideService.ListRidesForActor(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if rides == nil {
		rides = []*entities.Ride{}
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

// GetRide handles GET /rides/:id. Rides the caller is not party to are
// reported as not found.
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, ok := h.visibleRide(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ride)
}

// CancelRide handles POST /rides/:id/cancel. Any party may cancel; only
// admins may cancel a ride that is already active.
func (h *RideHandler) CancelRide(c *gin.Context) {
	if _, ok := h.visibleRide(c); !ok {
		return
	}
	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

// Events handles GET /rides/:id/events by upgrading to a WebSocket that
// receives every committed transition of the ride.
func (h *RideHandler) Events(c *gin.Context) {
	ride, ok := h.visibleRide(c)
	if !ok {
		return
	}
	h.hub.Serve(c.Writer, c.Request, ride.ID)
}

func (h *RideHandler) visibleRide(c *gin.Context) (*entities.Ride, bool) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canView(actorFrom(c), ride) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ride not found"})
		return nil, false
	}
	return ride, true
}
