package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storeline/backend/internal/loyalty"
	"github.com/storeline/backend/internal/models"
)

// LoyaltyHandler handles membership and points requests
type LoyaltyHandler struct {
	members *loyalty.MembershipManager
	ledger  *loyalty.LedgerEngine
	redeem  *loyalty.RedemptionService
	expiry  *loyalty.ExpiryProcessor
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(members *loyalty.MembershipManager, ledger *loyalty.LedgerEngine, redeem *loyalty.RedemptionService, expiry *loyalty.ExpiryProcessor) *LoyaltyHandler {
	return &LoyaltyHandler{
		members: members,
		ledger:  ledger,
		redeem:  redeem,
		expiry:  expiry,
	}
}

// EnrollRequest is the payload for enrolling a customer
type EnrollRequest struct {
	CustomerID     uuid.UUID `json:"customer_id" binding:"required"`
	ProgramID      uuid.UUID `json:"program_id" binding:"required"`
	StartingPoints int64     `json:"starting_points"`
}

// Enroll creates a loyalty membership for a customer
func (h *LoyaltyHandler) Enroll(c *gin.Context) {
	actingUserID, ok := actingUser(c)
	if !ok {
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	member, err := h.members.Enroll(c.Request.Context(), req.CustomerID, req.ProgramID, actingUserID, req.StartingPoints)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// GetMember gets a member by id
func (h *LoyaltyHandler) GetMember(c *gin.Context) {
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	member, err := h.members.GetByID(c.Request.Context(), memberID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetMemberByCustomer gets a customer's membership in a program
func (h *LoyaltyHandler) GetMemberByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
		return
	}
	programID, err := uuid.Parse(c.Query("program_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program_id"})
		return
	}

	member, err := h.members.GetByCustomer(c.Request.Context(), customerID, programID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetMemberByCode gets a member by loyalty code
func (h *LoyaltyHandler) GetMemberByCode(c *gin.Context) {
	member, err := h.members.GetByLoyaltyCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// PointsRequest is the payload for earn and adjust operations. Amount
// is a positive magnitude for earn; for adjust it is signed.
type PointsRequest struct {
	Amount    int64  `json:"amount" binding:"required"`
	Source    string `json:"source"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

// EarnPoints credits points to a member
func (h *LoyaltyHandler) EarnPoints(c *gin.Context) {
	h.applyPoints(c, models.TransactionTypeEarn)
}

// AdjustPoints applies a signed manual correction to a member's balance
func (h *LoyaltyHandler) AdjustPoints(c *gin.Context) {
	h.applyPoints(c, models.TransactionTypeAdjust)
}

func (h *LoyaltyHandler) applyPoints(c *gin.Context, txType models.TransactionType) {
	actingUserID, ok := actingUser(c)
	if !ok {
		return
	}
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	txn, err := h.ledger.ApplyTransaction(c.Request.Context(), memberID, txType, req.Amount, loyalty.TransactionOptions{
		Source:       req.Source,
		Reference:    req.Reference,
		Notes:        req.Notes,
		ActingUserID: actingUserID,
	})
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// RedeemRequest is the payload for redeeming a reward
type RedeemRequest struct {
	RewardID uuid.UUID `json:"reward_id" binding:"required"`
	Notes    string    `json:"notes"`
}

// RedeemReward spends a member's points on a reward
func (h *LoyaltyHandler) RedeemReward(c *gin.Context) {
	actingUserID, ok := actingUser(c)
	if !ok {
		return
	}
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	txn, err := h.redeem.Redeem(c.Request.Context(), memberID, req.RewardID, actingUserID, req.Notes)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// GetTransactions returns a member's ledger history, newest first
func (h *LoyaltyHandler) GetTransactions(c *gin.Context) {
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	transactions, total, err := h.ledger.History(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

// ExpireRequest is the payload for a manual expiry sweep
type ExpireRequest struct {
	CutoffMonths int `json:"cutoff_months"`
}

// RunExpiry triggers a points expiry sweep (admin)
func (h *LoyaltyHandler) RunExpiry(c *gin.Context) {
	actingUserID, ok := actingUser(c)
	if !ok {
		return
	}

	var req ExpireRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	total, err := h.expiry.ProcessExpiredPoints(c.Request.Context(), req.CutoffMonths, actingUserID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points_expired": total})
}
