package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"daily-flip/internal/fairness"
	"daily-flip/internal/models"
	"daily-flip/internal/services"

	"github.com/gin-gonic/gin"
)

type FlipHandler struct {
	flipService *services.FlipService
}

func NewFlipHandler(flipService *services.FlipService) *FlipHandler {
	return &FlipHandler{
		flipService: flipService,
	}
}

// Claim performs one daily flip
// POST /api/flip/claim
func (h *FlipHandler) Claim(c *gin.Context) {
	var req models.FlipClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meta := services.ClientMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	resp, err := h.flipService.Claim(c.Request.Context(), &req, meta)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingIdentity), errors.Is(err, services.ErrInvalidChoice):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoFlipsRemaining):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":           err.Error(),
				"flips_remaining": 0,
				"resets_at":       services.NextQuotaReset(time.Now()).Format(time.RFC3339),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process flip"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status returns the caller's quota and bonus snapshot
// GET /api/flip/status?wallet=...&fid=...
func (h *FlipHandler) Status(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrMissingIdentity.Error()})
		return
	}

	status, err := h.flipService.Status(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// Verify recomputes a flip's commit-reveal chain from revealed seeds
// GET /api/flip/verify
func (h *FlipHandler) Verify(c *gin.Context) {
	outcome, err := fairness.ParseSide(c.Query("outcome"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
		return
	}

	result := fairness.Verify(
		c.Query("client_seed"),
		c.Query("client_hash"),
		c.Query("server_seed"),
		c.Query("server_hash"),
		c.Query("combined_hash"),
		outcome,
	)

	c.JSON(http.StatusOK, result)
}

// identityFromQuery parses wallet/fid query parameters into an identity.
func identityFromQuery(c *gin.Context) (models.Identity, bool) {
	var identity models.Identity

	if wallet := c.Query("wallet"); wallet != "" {
		identity.WalletAddress = &wallet
	}
	if fidStr := c.Query("fid"); fidStr != "" {
		fid, err := strconv.ParseInt(fidStr, 10, 64)
		if err != nil {
			return identity, false
		}
		identity.FID = &fid
	}

	return identity, identity.Valid()
}
