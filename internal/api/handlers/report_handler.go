package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vapi/internal/api/middleware"
	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
	"vapi/internal/services"
)

type ReportHandler struct {
	reportService       *services.ReportService
	aggregationService  *services.AggregationService
	confirmationService *services.ConfirmationService
}

func NewReportHandler(
	reportService *services.ReportService,
	aggregationService *services.AggregationService,
	confirmationService *services.ConfirmationService,
) *ReportHandler {
	return &ReportHandler{
		reportService:       reportService,
		aggregationService:  aggregationService,
		confirmationService: confirmationService,
	}
}

// CreateReportRequest uses pointers for the numeric fields so a missing
// value can be told apart from 0.
type CreateReportRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	CountBucket string   `json:"count_bucket"`
	Side        string   `json:"side"`
	Bearing     *float64 `json:"bearing"`
}

type CreateReportResponse struct {
	ReportID    string               `json:"reportId"`
	Cell        string               `json:"geoHash6"`
	Side        entities.Side        `json:"side"`
	CountBucket entities.CountBucket `json:"count_bucket"`
	Confidence  float64              `json:"confidence"`
	Timestamp   time.Time            `json:"ts"`
}

// CreateReport handles POST /report
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.reportService.Submit(c.Request.Context(), services.SubmitReportInput{
		Lat:         req.Lat,
		Lng:         req.Lng,
		CountBucket: req.CountBucket,
		Side:        req.Side,
		Bearing:     req.Bearing,
		UserID:      middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateReportResponse{
		ReportID:    report.ID(),
		Cell:        report.Cell,
		Side:        report.Side,
		CountBucket: report.CountBucket,
		Confidence:  report.Confidence,
		Timestamp:   report.CreatedAt,
	})
}

type NearbyResponse struct {
	Clusters []entities.Cluster `json:"clusters"`
	Total    int                `json:"total"`
}

// Nearby handles GET /nearby?lat=&lng=&radius=
func (h *ReportHandler) Nearby(c *gin.Context) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		respondError(c, apperr.New(apperr.MissingField, "Missing required parameters: lat, lng"))
		return
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		respondError(c, apperr.New(apperr.InvalidCoordinate, "Invalid lat/lng values"))
		return
	}

	radius := h.aggregationService.DefaultRadius()
	if radiusStr := c.Query("radius"); radiusStr != "" {
		r, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			respondError(c, apperr.New(apperr.InvalidCoordinate, "Invalid radius value"))
			return
		}
		radius = r
	}

	clusters, err := h.aggregationService.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NearbyResponse{Clusters: clusters, Total: len(clusters)})
}

type ConfirmRequest struct {
	ReportID string `json:"reportId"`
	Status   string `json:"status"`
}

// Confirm handles POST /confirm
func (h *ReportHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	confirmation, err := h.confirmationService.Confirm(c.Request.Context(), middleware.GetUserID(c), req.ReportID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reportId": confirmation.ReportID,
		"status":   confirmation.Status,
		"ts":       confirmation.CreatedAt,
	})
}
