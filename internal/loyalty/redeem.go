package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"github.com/storeline/backend/internal/store"
)

// RedemptionService spends points on rewards. It owns reward
// validation only; the balance mutation is the ledger engine's.
type RedemptionService struct {
	store  store.Store
	ledger *LedgerEngine
}

// NewRedemptionService creates a redemption service
func NewRedemptionService(st store.Store, ledger *LedgerEngine) *RedemptionService {
	return &RedemptionService{store: st, ledger: ledger}
}

// Redeem debits the member by the reward's point cost. Fails with
// ErrRewardNotFound when the reward is missing, inactive, or belongs
// to a different program than the member; InsufficientPointsError
// propagates unchanged from the ledger. The returned entry's RewardID
// links back to the reward for reporting.
func (s *RedemptionService) Redeem(ctx context.Context, memberID, rewardID, actingUserID uuid.UUID, notes string) (*models.LoyaltyTransaction, error) {
	member, err := s.store.FindMember(ctx, memberID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	reward, err := s.store.FindReward(ctx, rewardID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if reward == nil || !reward.Active || reward.ProgramID != member.ProgramID {
		return nil, ErrRewardNotFound
	}

	if notes == "" {
		notes = fmt.Sprintf("redeemed reward: %s", reward.Name)
	}
	return s.ledger.ApplyTransaction(ctx, memberID, models.TransactionTypeRedeem, reward.PointsRequired, TransactionOptions{
		Source:       "reward_redemption",
		RewardID:     &reward.ID,
		Notes:        notes,
		ActingUserID: actingUserID,
	})
}
