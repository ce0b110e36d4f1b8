package handlers

import (
	"net/http"
	"strconv"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/gin-gonic/gin"
)

type BalanceHandler struct {
	repo *repository.Repository
}

func NewBalanceHandler(repo *repository.Repository) *BalanceHandler {
	return &BalanceHandler{
		repo: repo,
	}
}

// GetBalance returns a wallet's won and pending token balances
// GET /api/balance/:wallet
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	balance, err := h.repo.GetBalance(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":    balance.WalletAddress,
		"total_won": balance.TotalWon.String(),
		"pending":   balance.Pending.String(),
	})
}

// GetHistory returns a wallet's recent flips
// GET /api/balance/:wallet/history?limit=20
func (h *BalanceHandler) GetHistory(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	limit := 20
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	identity := models.Identity{WalletAddress: &wallet}
	flips, err := h.repo.GetRecentFlips(c.Request.Context(), identity.Key(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get flip history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flips": flips})
}
