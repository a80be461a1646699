package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"vapi/internal/api/middleware"
	"vapi/internal/domain/entities"
	"vapi/internal/services"
)

type ParkingHandler struct {
	parkingService *services.ParkingService
}

func NewParkingHandler(parkingService *services.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: parkingService}
}

type StartParkingRequest struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Note string   `json:"note"`
}

type SessionResponse struct {
	SessionID string      `json:"sessionId"`
	StartTs   time.Time   `json:"start_ts"`
	CarLat    float64     `json:"car_lat"`
	CarLng    float64     `json:"car_lng"`
	Note      null.String `json:"note"`
}

func newSessionResponse(s *entities.ParkingSession) SessionResponse {
	return SessionResponse{
		SessionID: s.ID(),
		StartTs:   s.StartTs,
		CarLat:    s.CarLat,
		CarLng:    s.CarLng,
		Note:      s.Note,
	}
}

// Start handles POST /park/start
func (h *ParkingHandler) Start(c *gin.Context) {
	var req StartParkingRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.parkingService.Start(c.Request.Context(), middleware.GetUserID(c), req.Lat, req.Lng, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// End handles POST /park/end
func (h *ParkingHandler) End(c *gin.Context) {
	session, err := h.parkingService.End(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Parking session ended",
		"sessionId": session.ID(),
		"end_ts":    session.EndTs,
	})
}

// Current handles GET /me/park
func (h *ParkingHandler) Current(c *gin.Context) {
	session, err := h.parkingService.Current(c.Request.Context(), middleware.GetUserID(c))
	if errors.Is(err, services.ErrNoActiveSession) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No active parking session found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}
