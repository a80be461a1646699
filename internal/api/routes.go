package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vapi/internal/api/handlers"
	"vapi/internal/api/middleware"
)

type Router struct {
	reportHandler  *handlers.ReportHandler
	parkingHandler *handlers.ParkingHandler
	liveUpdates    http.Handler
	auth           middleware.Authenticator
	logger         *zap.Logger
}

// NewRouter wires the HTTP surface. liveUpdates serves GET /ws (the realtime
// hub); auth may be nil, in which case every request is anonymous and the
// user-scoped routes answer 401.
func NewRouter(
	reportHandler *handlers.ReportHandler,
	parkingHandler *handlers.ParkingHandler,
	liveUpdates http.Handler,
	auth middleware.Authenticator,
	logger *zap.Logger,
) *Router {
	return &Router{
		reportHandler:  reportHandler,
		parkingHandler: parkingHandler,
		liveUpdates:    liveUpdates,
		auth:           auth,
		logger:         logger,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.CORS(), middleware.RequestLogger(r.logger))

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/ws", gin.WrapH(r.liveUpdates))

	api := engine.Group("/")
	api.Use(middleware.OptionalAuth(r.auth))
	{
		// Anonymous reports are accepted; authenticated ones are rate limited.
		api.POST("/report", r.reportHandler.CreateReport)
		api.GET("/nearby", r.reportHandler.Nearby)

		user := api.Group("/")
		user.Use(middleware.RequireUser())
		{
			user.POST("/confirm", r.reportHandler.Confirm)
			user.POST("/park/start", r.parkingHandler.Start)
			user.POST("/park/end", r.parkingHandler.End)
			user.GET("/me/park", r.parkingHandler.Current)
		}
	}
}
