package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"
	"daily-flip/internal/services"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	withdrawalService *services.WithdrawalService
	repo              *repository.Repository
	processorSecret   string
}

func NewWithdrawalHandler(withdrawalService *services.WithdrawalService, repo *repository.Repository, processorSecret string) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
		repo:              repo,
		processorSecret:   processorSecret,
	}
}

// Request queues a withdrawal against the wallet's pending balance
// POST /api/withdrawals/request
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req models.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), req.WalletAddress, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientPending):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request withdrawal"})
		}
		return
	}

	c.JSON(http.StatusCreated, withdrawal)
}

// History returns a wallet's withdrawal records
// GET /api/withdrawals/:wallet?limit=20
func (h *WithdrawalHandler) History(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	limit := 20
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	withdrawals, err := h.repo.GetWalletWithdrawals(c.Request.Context(), wallet, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get withdrawals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

// Process drains the pending withdrawal queue. Guarded by a shared
// processor secret instead of user auth; it is meant to be invoked by a
// scheduler, not end users.
// POST /api/withdrawals/process
func (h *WithdrawalHandler) Process(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid processor credentials"})
		return
	}

	result, err := h.withdrawalService.ProcessPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing run failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WithdrawalHandler) authorized(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || h.processorSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.processorSecret)) == 1
}
