package handlers

import (
	"errors"
	"net/http"

	"daily-flip/internal/models"
	"daily-flip/internal/services"

	"github.com/gin-gonic/gin"
)

type SweepstakesHandler struct {
	sweepstakesService *services.SweepstakesService
}

func NewSweepstakesHandler(sweepstakesService *services.SweepstakesService) *SweepstakesHandler {
	return &SweepstakesHandler{
		sweepstakesService: sweepstakesService,
	}
}

// GetStats returns participant and entry totals for a month
// GET /api/sweepstakes/stats?month=2025-07-01
func (h *SweepstakesHandler) GetStats(c *gin.Context) {
	stats, err := h.sweepstakesService.MonthStats(c.Request.Context(), c.Query("month"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidMonth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Draw selects the month's winner, weighted by entry counts. A repeat call
// returns the original result with already_drawn set.
// POST /api/sweepstakes/draw
func (h *SweepstakesHandler) Draw(c *gin.Context) {
	var req models.DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sweepstakesService.Draw(c.Request.Context(), req.Month)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyDrawn) && result != nil:
			c.JSON(http.StatusOK, result)
		case errors.Is(err, services.ErrInvalidMonth):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoEntries), errors.Is(err, services.ErrNoPrize):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to draw winner"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreatePrize registers the prize for a month
// POST /api/sweepstakes/prize
func (h *SweepstakesHandler) CreatePrize(c *gin.Context) {
	var req models.CreatePrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prize, err := h.sweepstakesService.CreatePrize(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMonth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create prize"})
		return
	}

	c.JSON(http.StatusCreated, prize)
}

// GetWinner returns a month's recorded winner, if drawn
// GET /api/sweepstakes/winner?month=2025-07-01
func (h *SweepstakesHandler) GetWinner(c *gin.Context) {
	result, err := h.sweepstakesService.Winner(c.Request.Context(), c.Query("month"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMonth):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotDrawn):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get winner"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
