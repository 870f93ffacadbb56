package loyalty

import (
	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
)

// EvaluateTier selects the highest active tier whose threshold the
// measure meets, or nil when none qualifies. Tiers must be sorted by
// threshold ascending, which is how the store returns them. The result
// depends only on the inputs, so re-evaluating an unchanged member is
// always a no-op.
func EvaluateTier(measure int64, tiers []models.LoyaltyTier) *uuid.UUID {
	var tierID *uuid.UUID
	for i := range tiers {
		if !tiers[i].Active {
			continue
		}
		if tiers[i].PointThreshold > measure {
			break
		}
		tierID = &tiers[i].ID
	}
	return tierID
}

// tierMeasure picks the measure the program's tier policy keys off
func tierMeasure(program *models.LoyaltyProgram, points, lifetimePoints int64) int64 {
	if program != nil && program.TierPolicy == models.TierPolicyBalance {
		return points
	}
	return lifetimePoints
}
