package loyalty

import (
	"testing"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func tierFixture(name string, threshold int64, active bool) models.LoyaltyTier {
	return models.LoyaltyTier{
		ID:             uuid.New(),
		Name:           name,
		PointThreshold: threshold,
		Active:         active,
	}
}

func TestEvaluateTier(t *testing.T) {
	bronze := tierFixture("Bronze", 0, true)
	silver := tierFixture("Silver", 500, true)
	gold := tierFixture("Gold", 2000, true)
	retired := tierFixture("Platinum", 1000, false)

	tiers := []models.LoyaltyTier{bronze, silver, retired, gold}

	tests := []struct {
		name    string
		measure int64
		tiers   []models.LoyaltyTier
		want    *uuid.UUID
	}{
		{"no tiers configured", 1000, nil, nil},
		{"below lowest threshold", 100, []models.LoyaltyTier{silver, gold}, nil},
		{"zero measure meets zero threshold", 0, tiers, &bronze.ID},
		{"exactly at threshold", 500, tiers, &silver.ID},
		{"between thresholds", 1500, tiers, &silver.ID},
		{"inactive tier skipped", 1200, tiers, &silver.ID},
		{"highest qualifying wins", 5000, tiers, &gold.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateTier(tt.measure, tt.tiers)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestEvaluateTierIdempotent(t *testing.T) {
	tiers := []models.LoyaltyTier{
		tierFixture("Bronze", 0, true),
		tierFixture("Silver", 500, true),
	}
	first := EvaluateTier(750, tiers)
	second := EvaluateTier(750, tiers)
	assert.Equal(t, first, second)
}

func TestTierMeasure(t *testing.T) {
	balanceProgram := &models.LoyaltyProgram{TierPolicy: models.TierPolicyBalance}
	lifetimeProgram := &models.LoyaltyProgram{TierPolicy: models.TierPolicyLifetime}

	assert.Equal(t, int64(40), tierMeasure(balanceProgram, 40, 900))
	assert.Equal(t, int64(900), tierMeasure(lifetimeProgram, 40, 900))
	// lifetime is the default when the policy is unset
	assert.Equal(t, int64(900), tierMeasure(&models.LoyaltyProgram{}, 40, 900))
}
