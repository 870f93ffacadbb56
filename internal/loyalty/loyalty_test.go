package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/storeline/backend/internal/store"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *store.Memory
	ledger   *LedgerEngine
	members  *MembershipManager
	programs *ProgramRegistry
	redeem   *RedemptionService
	expiry   *ExpiryProcessor
}

func newTestEnv() *testEnv {
	st := store.NewMemory()
	ledger := NewLedgerEngine(st, nil)
	return &testEnv{
		store:    st,
		ledger:   ledger,
		members:  NewMembershipManager(st, nil),
		programs: NewProgramRegistry(st, nil),
		redeem:   NewRedemptionService(st, ledger),
		expiry:   NewExpiryProcessor(st, ledger),
	}
}

func (e *testEnv) seedProgram(t *testing.T, policy models.TierPolicy) *models.LoyaltyProgram {
	t.Helper()
	program := &models.LoyaltyProgram{
		ID:                    uuid.New(),
		StoreID:               uuid.New(),
		Name:                  "Storeline Rewards",
		Status:                models.ProgramStatusActive,
		PointsPerCurrencyUnit: 1,
		TierPolicy:            policy,
	}
	require.NoError(t, e.store.SaveProgram(context.Background(), program))
	return program
}

func (e *testEnv) seedTier(t *testing.T, programID uuid.UUID, name string, threshold int64) *models.LoyaltyTier {
	t.Helper()
	tier := &models.LoyaltyTier{
		ID:             uuid.New(),
		ProgramID:      programID,
		Name:           name,
		PointThreshold: threshold,
		Multiplier:     1,
		Active:         true,
	}
	require.NoError(t, e.store.InsertTier(context.Background(), tier))
	return tier
}

func (e *testEnv) seedMember(t *testing.T, programID uuid.UUID) *models.LoyaltyMember {
	t.Helper()
	member := &models.LoyaltyMember{
		ID:          uuid.New(),
		ProgramID:   programID,
		CustomerID:  uuid.New(),
		LoyaltyCode: "LYL-" + uuid.NewString()[:8],
		Status:      models.MemberStatusActive,
		EnrolledAt:  time.Now(),
	}
	require.NoError(t, e.store.Transact(context.Background(), func(tx store.Tx) error {
		return tx.InsertMember(member)
	}))
	return member
}

func (e *testEnv) seedReward(t *testing.T, programID uuid.UUID, pointsRequired int64, active bool) *models.LoyaltyReward {
	t.Helper()
	reward := &models.LoyaltyReward{
		ID:             uuid.New(),
		ProgramID:      programID,
		Name:           "Free Coffee",
		PointsRequired: pointsRequired,
		Type:           models.RewardTypeFreeItem,
		Active:         active,
	}
	require.NoError(t, e.store.InsertReward(context.Background(), reward))
	return reward
}

// seedLedgerEntry writes a raw ledger row with an explicit timestamp
// and syncs the member's materialized balance, bypassing the engine so
// tests can construct historical state
func (e *testEnv) seedLedgerEntry(t *testing.T, member *models.LoyaltyMember, txType models.TransactionType, earned, redeemed, balance int64, at time.Time) {
	t.Helper()
	err := e.store.WithMemberLock(context.Background(), member.ID, func(tx store.Tx, m *models.LoyaltyMember) error {
		lifetime := m.LifetimePoints
		if txType == models.TransactionTypeEarn || txType == models.TransactionTypeEnroll {
			lifetime += earned
		}
		if err := tx.InsertTransaction(&models.LoyaltyTransaction{
			MemberID:       member.ID,
			ProgramID:      member.ProgramID,
			Type:           txType,
			PointsEarned:   earned,
			PointsRedeemed: redeemed,
			PointsBalance:  balance,
			CreatedAt:      at,
		}); err != nil {
			return err
		}
		return tx.UpdateMemberBalance(member.ID, balance, lifetime, m.TierID)
	})
	require.NoError(t, err)
}

// latestBalanceSnapshot returns the PointsBalance of the member's most
// recent ledger entry
func (e *testEnv) latestBalanceSnapshot(t *testing.T, memberID uuid.UUID) int64 {
	t.Helper()
	transactions, total, err := e.store.FindTransactions(context.Background(), memberID, 1, 1)
	require.NoError(t, err)
	require.Positive(t, total)
	return transactions[0].PointsBalance
}

func (e *testEnv) mustGetMember(t *testing.T, id uuid.UUID) *models.LoyaltyMember {
	t.Helper()
	member, err := e.store.FindMember(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, member)
	return member
}
