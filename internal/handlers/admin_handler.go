package handlers

import (
	"net/http"
	"time"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	repo *repository.Repository
}

func NewAdminHandler(repo *repository.Repository) *AdminHandler {
	return &AdminHandler{
		repo: repo,
	}
}

type grantBonusRequest struct {
	Wallet    string `json:"wallet"`
	FID       *int64 `json:"fid"`
	Spins     int    `json:"spins" binding:"required,min=1"`
	ExpiresIn string `json:"expires_in"`
}

type assignTierRequest struct {
	Wallet string `json:"wallet"`
	FID    *int64 `json:"fid"`
	Tier   string `json:"tier" binding:"required"`
}

// GrantBonus credits bonus spins to an identity
// POST /api/admin/bonus
func (h *AdminHandler) GrantBonus(c *gin.Context) {
	var req grantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := identityFromRequest(req.Wallet, req.FID)
	if !identity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet or fid required"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expires_in duration"})
			return
		}
		t := time.Now().UTC().Add(d)
		expiresAt = &t
	}

	if err := h.repo.GrantBonusSpins(c.Request.Context(), identity.Key(), req.Spins, expiresAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant bonus spins"})
		return
	}

	grant, err := h.repo.GetBonusGrant(c.Request.Context(), identity.Key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load grant"})
		return
	}

	c.JSON(http.StatusOK, grant)
}

// AssignTier sets an identity's holder tier
// POST /api/admin/tier
func (h *AdminHandler) AssignTier(c *gin.Context) {
	var req assignTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := identityFromRequest(req.Wallet, req.FID)
	if !identity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet or fid required"})
		return
	}

	if err := h.repo.SetTierAssignment(c.Request.Context(), identity.Key(), req.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign tier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity_key": identity.Key(),
		"tier":         req.Tier,
	})
}

func identityFromRequest(wallet string, fid *int64) models.Identity {
	var identity models.Identity
	if wallet != "" {
		identity.WalletAddress = &wallet
	}
	identity.FID = fid
	return identity
}
