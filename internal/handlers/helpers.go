package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storeline/backend/internal/loyalty"
)

// actingUser extracts the authenticated user id for audit attribution,
// writing the error response itself when absent
func actingUser(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}

// paramUUID parses a uuid route parameter, writing the error response
// itself on failure
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// respondLoyaltyError maps the loyalty error taxonomy onto HTTP
// responses with enough context to render a user message
func respondLoyaltyError(c *gin.Context, err error) {
	var already *loyalty.AlreadyEnrolledError
	if errors.As(err, &already) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "customer already enrolled",
			"member": already.Member,
		})
		return
	}

	var insufficient *loyalty.InsufficientPointsError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "insufficient points",
			"required":  insufficient.Required,
			"available": insufficient.Available,
			"shortfall": insufficient.Required - insufficient.Available,
		})
		return
	}

	var validation *loyalty.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
		return
	}

	switch {
	case errors.Is(err, loyalty.ErrProgramNotFound),
		errors.Is(err, loyalty.ErrMemberNotFound),
		errors.Is(err, loyalty.ErrRewardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case loyalty.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary storage failure, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
