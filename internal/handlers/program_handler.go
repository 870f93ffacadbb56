package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storeline/backend/internal/loyalty"
	"github.com/storeline/backend/internal/models"
)

// ProgramHandler handles program, tier and reward administration
type ProgramHandler struct {
	programs *loyalty.ProgramRegistry
}

// NewProgramHandler creates a new program handler
func NewProgramHandler(programs *loyalty.ProgramRegistry) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// ProgramRequest is the payload for creating or updating a program
type ProgramRequest struct {
	StoreID               uuid.UUID            `json:"store_id"`
	Name                  string               `json:"name" binding:"required"`
	Status                models.ProgramStatus `json:"status"`
	PointsPerCurrencyUnit float64              `json:"points_per_currency_unit"`
	MinimumPurchase       float64              `json:"minimum_purchase"`
	TierPolicy            models.TierPolicy    `json:"tier_policy"`
}

func (r *ProgramRequest) toInput() loyalty.ProgramInput {
	return loyalty.ProgramInput{
		StoreID:               r.StoreID,
		Name:                  r.Name,
		Status:                r.Status,
		PointsPerCurrencyUnit: r.PointsPerCurrencyUnit,
		MinimumPurchase:       r.MinimumPurchase,
		TierPolicy:            r.TierPolicy,
	}
}

// CreateProgram creates (or updates in place) the store's program
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.StoreID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	program, err := h.programs.CreateProgram(c.Request.Context(), req.toInput())
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

// UpdateProgram updates an existing program
func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	program, err := h.programs.UpdateProgram(c.Request.Context(), programID, req.toInput())
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// GetProgram gets a program by id
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	program, err := h.programs.GetProgram(c.Request.Context(), programID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// ListTiers lists a program's tiers by threshold ascending
func (h *ProgramHandler) ListTiers(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	tiers, err := h.programs.ListTiers(c.Request.Context(), programID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, tiers)
}

// TierRequest is the payload for creating a tier
type TierRequest struct {
	Name           string  `json:"name" binding:"required"`
	PointThreshold int64   `json:"point_threshold"`
	Multiplier     float64 `json:"multiplier"`
}

// CreateTier adds a tier to a program
func (h *ProgramHandler) CreateTier(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tier, err := h.programs.CreateTier(c.Request.Context(), programID, req.Name, req.PointThreshold, req.Multiplier)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tier)
}

// RewardRequest is the payload for creating a reward
type RewardRequest struct {
	Name           string            `json:"name" binding:"required"`
	PointsRequired int64             `json:"points_required" binding:"required"`
	Type           models.RewardType `json:"type"`
	Metadata       models.JSON       `json:"metadata"`
}

// CreateReward adds a redeemable reward to a program
func (h *ProgramHandler) CreateReward(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	reward, err := h.programs.CreateReward(c.Request.Context(), programID, req.Name, req.PointsRequired, req.Type, req.Metadata)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}

// ListRewards lists a program's rewards cheapest first
func (h *ProgramHandler) ListRewards(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	rewards, err := h.programs.ListRewards(c.Request.Context(), programID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, rewards)
}
