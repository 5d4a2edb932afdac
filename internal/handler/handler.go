package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/maxviazov/gameday-service/internal/realtime"
	"github.com/maxviazov/gameday-service/internal/service"
)

// Deps groups what the routes need. Hub may be nil, which leaves the
// websocket route unregistered.
type Deps struct {
	Storage       Pinger
	StorageDriver string
	Matches       service.MatchService
	Hub           *realtime.Hub
}

// Register mounts all public routes on the given engine.
func Register(r *gin.Engine, d Deps) {
	h := NewHealthHandler(d.Storage, d.StorageDriver)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	api := r.Group(APIV1Prefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		if d.Matches != nil {
			NewMatchHandler(d.Matches).Register(api)
			NewLineupHandler(d.Matches).Register(api)
			if d.Hub != nil {
				NewWebSocketHandler(d.Matches, d.Hub).Register(api)
			}
		}
	}
}
