package loyalty

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	customerID := uuid.New()
	staffID := uuid.New()

	member, err := env.members.Enroll(context.Background(), customerID, program.ID, staffID, 0)
	require.NoError(t, err)

	assert.Equal(t, customerID, member.CustomerID)
	assert.Equal(t, program.ID, member.ProgramID)
	assert.Equal(t, models.MemberStatusActive, member.Status)
	assert.Equal(t, staffID, member.EnrolledBy)
	assert.True(t, strings.HasPrefix(member.LoyaltyCode, "LYL-"))
	assert.Equal(t, int64(0), member.Points)
	assert.Nil(t, member.TierID)

	// no starting points, no ledger entry
	_, total, err := env.store.FindTransactions(context.Background(), member.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestEnrollWithStartingPoints(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	bronze := env.seedTier(t, program.ID, "Bronze", 0)

	member, err := env.members.Enroll(context.Background(), uuid.New(), program.ID, uuid.New(), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), member.Points)
	assert.Equal(t, int64(100), member.LifetimePoints)
	require.NotNil(t, member.TierID)
	assert.Equal(t, bronze.ID, *member.TierID)

	transactions, total, err := env.store.FindTransactions(context.Background(), member.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, models.TransactionTypeEnroll, transactions[0].Type)
	assert.Equal(t, int64(100), transactions[0].PointsEarned)
	assert.Equal(t, int64(100), transactions[0].PointsBalance)
}

func TestEnrollProgramNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.members.Enroll(context.Background(), uuid.New(), uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestEnrollInactiveProgram(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	program.Status = models.ProgramStatusInactive
	require.NoError(t, env.store.SaveProgram(context.Background(), program))

	_, err := env.members.Enroll(context.Background(), uuid.New(), program.ID, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestEnrollDuplicate(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	customerID := uuid.New()

	first, err := env.members.Enroll(context.Background(), customerID, program.ID, uuid.New(), 0)
	require.NoError(t, err)

	_, err = env.members.Enroll(context.Background(), customerID, program.ID, uuid.New(), 0)
	var already *AlreadyEnrolledError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, first.ID, already.Member.ID)
}

func TestEnrollConcurrentRace(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	customerID := uuid.New()

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes, conflicts int
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.members.Enroll(context.Background(), customerID, program.ID, uuid.New(), 0)
			mu.Lock()
			defer mu.Unlock()
			var already *AlreadyEnrolledError
			switch {
			case err == nil:
				successes++
			case assert.ErrorAs(t, err, &already):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestGetByID(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	found, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, found.ID)

	_, err = env.members.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestGetByCustomer(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	found, err := env.members.GetByCustomer(context.Background(), member.CustomerID, program.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, found.ID)

	_, err = env.members.GetByCustomer(context.Background(), uuid.New(), program.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestGetByLoyaltyCode(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)
	member := env.seedMember(t, program.ID)

	found, err := env.members.GetByLoyaltyCode(context.Background(), member.LoyaltyCode)
	require.NoError(t, err)
	assert.Equal(t, member.ID, found.ID)

	_, err = env.members.GetByLoyaltyCode(context.Background(), "LYL-UNKNOWN")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestEnrollNegativeStartingPoints(t *testing.T) {
	env := newTestEnv()
	program := env.seedProgram(t, models.TierPolicyLifetime)

	_, err := env.members.Enroll(context.Background(), uuid.New(), program.ID, uuid.New(), -10)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}
