package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/service"
	"github.com/maxviazov/gameday-service/pkg/response"
)

// LineupHandler serves squad selection: the starting XV and the roster it is picked from.
type LineupHandler struct {
	svc service.MatchService
}

func NewLineupHandler(svc service.MatchService) *LineupHandler { return &LineupHandler{svc: svc} }

func (h *LineupHandler) Register(r *gin.RouterGroup) {
	m := r.Group("/matches/:" + paramMatchID)
	{
		m.GET("/lineup/next", h.next)
		m.GET("/lineup/candidates", h.candidates)
		m.POST("/lineup/quick-assign", h.quickAssign)
		m.PUT("/lineup/:"+paramPosition, h.assign)
		m.DELETE("/lineup/:"+paramPosition, h.remove)

		m.POST("/roster", h.addPlayer)
		m.PUT("/roster/:"+paramPlayerID+"/status", h.setStatus)
	}
}

func (h *LineupHandler) next(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	pos, err := mc.NextUnfilledPosition()
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, pos)
}

type candidatesResponse struct {
	Position   model.Position      `json:"position"`
	Candidates []gameday.Candidate `json:"candidates"`
}

// candidates ranks the bench for ?position=, or for the next open slot when omitted.
// ?available_only=true hides injured and absent players.
func (h *LineupHandler) candidates(c *gin.Context) {
	availableOnly := false
	if raw, set := c.GetQuery("available_only"); set {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.WriteError(c, service.ErrInvalidInput)
			return
		}
		availableOnly = v
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	pos, ranked, err := mc.RankedCandidates(c.Query("position"))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if availableOnly {
		filtered := make([]gameday.Candidate, 0, len(ranked))
		for _, cand := range ranked {
			if cand.Player.Status == model.PlayerAvailable {
				filtered = append(filtered, cand)
			}
		}
		ranked = filtered
	}
	response.WriteData(c, http.StatusOK, candidatesResponse{Position: pos, Candidates: ranked})
}

type assignRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

func (h *LineupHandler) assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	m, err := mc.AssignPlayer(c.Request.Context(), c.Param(paramPosition), req.PlayerID)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, m)
}

func (h *LineupHandler) remove(c *gin.Context) {
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	m, err := mc.RemovePlayer(c.Request.Context(), c.Param(paramPosition))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, m)
}

type quickAssignResponse struct {
	Position model.Position `json:"position"`
	Match    model.Match    `json:"match"`
}

func (h *LineupHandler) quickAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	m, pos, err := mc.QuickAssignNextPosition(c.Request.Context(), req.PlayerID)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, quickAssignResponse{Position: pos, Match: m})
}

func (h *LineupHandler) addPlayer(c *gin.Context) {
	var req service.PlayerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	_, p, err := mc.AddRosterPlayer(c.Request.Context(), req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, p)
}

type statusRequest struct {
	Status model.PlayerStatus `json:"status" binding:"required"`
}

func (h *LineupHandler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	m, err := mc.SetPlayerStatus(c.Request.Context(), c.Param(paramPlayerID), req.Status)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, m)
}
