package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/auth"
	"ridehail/internal/domain/entities"
	"ridehail/internal/services"
)

// AdminHandler registers the parties a ride refers to.
type AdminHandler struct {
	rideService *services.RideService
}

func NewAdminHandler(rideService *services.RideService) *AdminHandler {
	return &AdminHandler{rideService: rideService}
}

type RegisterRiderRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// RegisterRider handles POST /admin/riders
func (h *AdminHandler) RegisterRider(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rider, err := h.rideService.RegisterRider(c.Request.Context(), &entities.Rider{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rider)
}

type RegisterDriverRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	VehicleID string `json:"vehicle_id" binding:"required"`
}

// RegisterDriver handles POST /admin/drivers
func (h *AdminHandler) RegisterDriver(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver, err := h.rideService.RegisterDriver(c.Request.Context(), &entities.Driver{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

// AuthHandler hands out tokens without checking credentials. It is mounted
// only when token issuing is enabled in the config.
type AuthHandler struct {
	tokens *auth.Manager
	ttl    time.Duration
}

func NewAuthHandler(tokens *auth.Manager, ttl time.Duration) *AuthHandler {
	return &AuthHandler{tokens: tokens, ttl: ttl}
}

type IssueTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// IssueToken handles POST /auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, ok := services.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be rider, driver or admin"})
		return
	}

	token, err := h.tokens.Issue(req.UserID, string(role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.ttl.Seconds()),
	})
}
