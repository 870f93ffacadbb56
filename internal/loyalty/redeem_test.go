package loyalty

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemReward(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	reward := env.seedReward(t, program.ID, 600, true)
	member := env.seedMember(t, program.ID)

	_, err := env.ledger.ApplyTransaction(context.Background(), member.ID, models.TransactionTypeEarn, 600, TransactionOptions{})
	require.NoError(t, err)

	actingUserID := uuid.New()
	txn, err := env.redeem.Redeem(context.Background(), member.ID, reward.ID, actingUserID, "")
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeRedeem, txn.Type)
	assert.Equal(t, int64(600), txn.PointsRedeemed)
	assert.Equal(t, int64(0), txn.PointsBalance)
	assert.Equal(t, actingUserID, txn.CreatedBy)
	require.NotNil(t, txn.RewardID)
	assert.Equal(t, reward.ID, *txn.RewardID)
	assert.Contains(t, txn.Description, reward.Name)

	updated := env.mustGetMember(t, member.ID)
	assert.Equal(t, int64(0), updated.Points)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	reward := env.seedReward(t, program.ID, 700, true)
	member := env.seedMember(t, program.ID)

	_, err := env.ledger.ApplyTransaction(context.Background(), member.ID, models.TransactionTypeEarn, 600, TransactionOptions{})
	require.NoError(t, err)

	_, err = env.redeem.Redeem(context.Background(), member.ID, reward.ID, uuid.New(), "")

	var insufficient *InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(700), insufficient.Required)
	assert.Equal(t, int64(600), insufficient.Available)

	updated := env.mustGetMember(t, member.ID)
	assert.Equal(t, int64(600), updated.Points)
}

func TestRedeemRewardNotFound(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	_, err := env.redeem.Redeem(context.Background(), member.ID, uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestRedeemInactiveReward(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	reward := env.seedReward(t, program.ID, 100, false)
	member := env.seedMember(t, program.ID)

	_, err := env.redeem.Redeem(context.Background(), member.ID, reward.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestRedeemRewardFromOtherProgram(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	other := env.seedProgram(t, models.TierPolicyLifetime)
	reward := env.seedReward(t, other.ID, 100, true)
	member := env.seedMember(t, program.ID)

	_, err := env.ledger.ApplyTransaction(context.Background(), member.ID, models.TransactionTypeEarn, 500, TransactionOptions{})
	require.NoError(t, err)

	_, err = env.redeem.Redeem(context.Background(), member.ID, reward.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestRedeemMemberNotFound(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	reward := env.seedReward(t, program.ID, 100, true)

	_, err := env.redeem.Redeem(context.Background(), uuid.New(), reward.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
