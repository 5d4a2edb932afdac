package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/service"
	"github.com/maxviazov/gameday-service/pkg/response"
)

type MatchHandler struct {
	svc service.MatchService
}

func NewMatchHandler(svc service.MatchService) *MatchHandler { return &MatchHandler{svc: svc} }

func (h *MatchHandler) Register(r *gin.RouterGroup) {
	r.GET("/teams/:"+paramTeamID+"/matches", h.listByTeam)

	m := r.Group("/matches")
	{
		m.POST("", h.create)
		m.GET(":id", h.get)
		m.PATCH(":id/opponent", h.updateOpponent)
		m.POST(":id/end", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.EndMatch(ctx)
		}))
		m.POST(":id/cancel", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.CancelMatch(ctx)
		}))

		m.GET(":id/timer", h.timer)
		m.POST(":id/timer/start", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.StartTimer(ctx)
		}))
		m.POST(":id/timer/pause", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.PauseTimer(ctx)
		}))
		m.POST(":id/timer/resume", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.ResumeTimer(ctx)
		}))
		m.POST(":id/periods/end", h.command(func(ctx context.Context, mc *service.MatchController) (model.Match, error) {
			return mc.EndPeriod(ctx)
		}))

		m.POST(":id/events", h.recordEvent)
		m.GET(":id/events", h.events)
		m.GET(":id/score", h.score)

		m.POST(":id/stats/possession", h.teamCommand((*service.MatchController).TogglePossession))
		m.POST(":id/stats/territory", h.teamCommand((*service.MatchController).ToggleTerritory))
		m.POST(":id/stats/errors", h.teamCommand((*service.MatchController).IncrementError))
		m.POST(":id/stats/penalties", h.teamCommand((*service.MatchController).IncrementPenalty))
		m.POST(":id/stats/turnovers", h.teamCommand((*service.MatchController).IncrementTurnover))
	}
}

// loadController resolves the :id parameter; on failure the error response is already written.
func loadController(c *gin.Context, svc service.MatchService) (*service.MatchController, bool) {
	mc, err := svc.Controller(c.Request.Context(), c.Param(paramMatchID))
	if err != nil {
		response.WriteError(c, err)
		return nil, false
	}
	return mc, true
}

// command adapts a body-less controller command to a handler returning the snapshot.
func (h *MatchHandler) command(run func(context.Context, *service.MatchController) (model.Match, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		mc, ok := loadController(c, h.svc)
		if !ok {
			return
		}
		m, err := run(c.Request.Context(), mc)
		if err != nil {
			response.WriteError(c, err)
			return
		}
		response.WriteData(c, http.StatusOK, m)
	}
}

type teamRequest struct {
	Team model.Team `json:"team"`
}

func (h *MatchHandler) teamCommand(run func(*service.MatchController, context.Context, model.Team) (model.Match, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req teamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.WriteError(c, service.ErrInvalidInput)
			return
		}
		mc, ok := loadController(c, h.svc)
		if !ok {
			return
		}
		m, err := run(mc, c.Request.Context(), req.Team)
		if err != nil {
			response.WriteError(c, err)
			return
		}
		response.WriteData(c, http.StatusOK, m)
	}
}

func (h *MatchHandler) create(c *gin.Context) {
	var req service.CreateMatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	m, err := h.svc.CreateMatch(c.Request.Context(), req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, m)
}

func (h *MatchHandler) get(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	response.WriteData(c, http.StatusOK, mc.Snapshot())
}

func (h *MatchHandler) listByTeam(c *gin.Context) {
	matches, err := h.svc.ListByTeam(c.Request.Context(), c.Param(paramTeamID))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"items": matches, "total": len(matches)})
}

type opponentRequest struct {
	OpponentName string `json:"opponent_name"`
}

func (h *MatchHandler) updateOpponent(c *gin.Context) {
	var req opponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	m, err := mc.UpdateOpponent(c.Request.Context(), req.OpponentName)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, m)
}

type timerResponse struct {
	State         model.ClockState `json:"state"`
	Period        model.Period     `json:"period"`
	ElapsedMillis int64            `json:"elapsed_ms"`
}

// timer is what the UI polls roughly once a second; it never mutates the clock.
func (h *MatchHandler) timer(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	snap := mc.Snapshot()
	response.WriteData(c, http.StatusOK, timerResponse{
		State:         snap.Timer.State,
		Period:        snap.CurrentPeriod,
		ElapsedMillis: mc.ElapsedTime().Milliseconds(),
	})
}

type eventRequest struct {
	Type       model.EventType `json:"type"`
	Team       model.Team      `json:"team"`
	PlayerID   string          `json:"player_id"`
	PlayerName string          `json:"player_name"`
	Detail     string          `json:"detail"`
}

func (h *MatchHandler) recordEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	_, rec, err := mc.RecordEvent(c.Request.Context(), gameday.EventInput{
		Type:       req.Type,
		Team:       req.Team,
		PlayerID:   strings.TrimSpace(req.PlayerID),
		PlayerName: strings.TrimSpace(req.PlayerName),
		Detail:     strings.TrimSpace(req.Detail),
	})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, rec)
}

// events lists the log, optionally narrowed with ?period=1|2|half-time.
func (h *MatchHandler) events(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	raw, filtered := c.GetQuery("period")
	if !filtered {
		response.WriteData(c, http.StatusOK, mc.Snapshot().Events)
		return
	}
	p, err := parsePeriod(raw)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, mc.EventsForPeriod(p))
}

func parsePeriod(raw string) (model.Period, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, model.HalfTime.String()) {
		return model.HalfTime, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, service.ErrInvalidInput
	}
	return model.Period(n), nil
}

func (h *MatchHandler) score(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	self, err := mc.TotalPoints(model.TeamSelf)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	opp, err := mc.TotalPoints(model.TeamOpponent)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"self": self, "opponent": opp})
}
