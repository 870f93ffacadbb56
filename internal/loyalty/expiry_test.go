package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/storeline/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessExpiredPoints(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	// earned 200 thirteen months ago, spent 150 since: 50 still
	// outstanding and stale
	thirteenMonthsAgo := time.Now().AddDate(0, -13, 0)
	env.seedLedgerEntry(t, member, models.TransactionTypeEarn, 200, 0, 200, thirteenMonthsAgo)
	env.seedLedgerEntry(t, member, models.TransactionTypeRedeem, 0, 150, 50, time.Now().AddDate(0, -1, 0))

	total, err := env.expiry.ProcessExpiredPoints(context.Background(), 12, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)

	updated := env.mustGetMember(t, member.ID)
	assert.Equal(t, int64(0), updated.Points)

	transactions, _, err := env.store.FindTransactions(context.Background(), member.ID, 1, 10)
	require.NoError(t, err)
	var expireTxn *models.LoyaltyTransaction
	for i := range transactions {
		if transactions[i].Type == models.TransactionTypeExpire {
			expireTxn = &transactions[i]
		}
	}
	require.NotNil(t, expireTxn)
	assert.Equal(t, int64(50), expireTxn.PointsRedeemed)
	assert.Equal(t, int64(0), expireTxn.PointsBalance)
	assert.Equal(t, "points_expiry", expireTxn.Source)
}

func TestProcessExpiredPointsNothingOutstanding(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	// fully spent: nothing left to expire
	thirteenMonthsAgo := time.Now().AddDate(0, -13, 0)
	env.seedLedgerEntry(t, member, models.TransactionTypeEarn, 200, 0, 200, thirteenMonthsAgo)
	env.seedLedgerEntry(t, member, models.TransactionTypeRedeem, 0, 200, 0, time.Now().AddDate(0, -1, 0))

	total, err := env.expiry.ProcessExpiredPoints(context.Background(), 12, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, count, err := env.store.FindTransactions(context.Background(), member.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestProcessExpiredPointsRecentEarnsUntouched(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	_, err := env.ledger.ApplyTransaction(context.Background(), member.ID, models.TransactionTypeEarn, 300, TransactionOptions{})
	require.NoError(t, err)

	total, err := env.expiry.ProcessExpiredPoints(context.Background(), 12, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	updated := env.mustGetMember(t, member.ID)
	assert.Equal(t, int64(300), updated.Points)
}

func TestProcessExpiredPointsCountsAdjustDebits(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	// a support deduction consumes stale earnings just like a redeem
	thirteenMonthsAgo := time.Now().AddDate(0, -13, 0)
	env.seedLedgerEntry(t, member, models.TransactionTypeEarn, 200, 0, 200, thirteenMonthsAgo)
	env.seedLedgerEntry(t, member, models.TransactionTypeAdjust, 0, 120, 80, time.Now().AddDate(0, -2, 0))

	total, err := env.expiry.ProcessExpiredPoints(context.Background(), 12, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(80), total)

	updated := env.mustGetMember(t, member.ID)
	assert.Equal(t, int64(0), updated.Points)
}

// flakyStore fails lock acquisition for one member to exercise the
// sweep's partial-failure semantics
type flakyStore struct {
	store.Store
	failID uuid.UUID
}

func (s *flakyStore) WithMemberLock(ctx context.Context, memberID uuid.UUID, fn func(tx store.Tx, member *models.LoyaltyMember) error) error {
	if memberID == s.failID {
		return errors.New("lock timeout")
	}
	return s.Store.WithMemberLock(ctx, memberID, fn)
}

func TestProcessExpiredPointsSkipsFailingMembers(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	good := env.seedMember(t, program.ID)
	bad := env.seedMember(t, program.ID)

	thirteenMonthsAgo := time.Now().AddDate(0, -13, 0)
	env.seedLedgerEntry(t, good, models.TransactionTypeEarn, 100, 0, 100, thirteenMonthsAgo)
	env.seedLedgerEntry(t, bad, models.TransactionTypeEarn, 100, 0, 100, thirteenMonthsAgo)

	flaky := &flakyStore{Store: env.store, failID: bad.ID}
	ledger := NewLedgerEngine(flaky, nil)
	processor := NewExpiryProcessor(flaky, ledger)

	total, err := processor.ProcessExpiredPoints(context.Background(), 12, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)

	// the failing member's balance is untouched
	updated := env.mustGetMember(t, bad.ID)
	assert.Equal(t, int64(100), updated.Points)
}
