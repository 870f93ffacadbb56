package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/cache"
	"github.com/storeline/backend/internal/models"
	"github.com/storeline/backend/internal/store"
	"github.com/storeline/backend/internal/utils"
)

// enrollMaxAttempts bounds the loyalty-code collision retry loop
const enrollMaxAttempts = 5

// MembershipManager creates and looks up loyalty memberships. A
// customer holds at most one membership per program; the duplicate
// check and the insert share one transaction so concurrent signups
// cannot both succeed.
type MembershipManager struct {
	store store.Store
	cache *cache.Cache
}

// NewMembershipManager creates a membership manager. cache may be nil.
func NewMembershipManager(st store.Store, c *cache.Cache) *MembershipManager {
	return &MembershipManager{store: st, cache: c}
}

// Enroll creates a membership for the customer in the program. When
// startingPoints is positive the member starts with that balance and
// an enroll-type ledger entry is written in the same transaction as
// the member row. A customer already enrolled gets an
// AlreadyEnrolledError carrying the existing membership.
func (m *MembershipManager) Enroll(ctx context.Context, customerID, programID, enrolledBy uuid.UUID, startingPoints int64) (*models.LoyaltyMember, error) {
	if startingPoints < 0 {
		return nil, &ValidationError{Field: "startingPoints", Reason: "must not be negative"}
	}

	program, err := m.store.FindProgram(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if program == nil || program.Status != models.ProgramStatusActive {
		return nil, ErrProgramNotFound
	}

	var lastErr error
	for attempt := 0; attempt < enrollMaxAttempts; attempt++ {
		now := time.Now()
		member := &models.LoyaltyMember{
			ID:             uuid.New(),
			ProgramID:      programID,
			CustomerID:     customerID,
			LoyaltyCode:    utils.GenerateLoyaltyCode(),
			Status:         models.MemberStatusActive,
			EnrolledBy:     enrolledBy,
			EnrolledAt:     now,
			LastActivityAt: now,
		}

		err := m.store.Transact(ctx, func(tx store.Tx) error {
			existing, err := tx.FindMemberByCustomer(customerID, programID)
			if err != nil {
				return err
			}
			if existing != nil {
				return &AlreadyEnrolledError{Member: existing}
			}

			if startingPoints > 0 {
				member.Points = startingPoints
				member.LifetimePoints = startingPoints
				tiers, err := tx.FindTiers(programID)
				if err != nil {
					return err
				}
				member.TierID = EvaluateTier(tierMeasure(program, startingPoints, startingPoints), tiers)
			}

			if err := tx.InsertMember(member); err != nil {
				return err
			}

			if startingPoints > 0 {
				return tx.InsertTransaction(&models.LoyaltyTransaction{
					MemberID:      member.ID,
					ProgramID:     programID,
					Type:          models.TransactionTypeEnroll,
					PointsEarned:  startingPoints,
					PointsBalance: startingPoints,
					Source:        "enrollment",
					Description:   "enrollment bonus",
					CreatedBy:     enrolledBy,
				})
			}
			return nil
		})
		if err == nil {
			return member, nil
		}
		if errors.Is(err, store.ErrDuplicate) {
			// either a loyalty-code collision or a concurrent signup
			// won the race; the next attempt re-checks membership
			// under a fresh code
			lastErr = err
			continue
		}
		return nil, classify(err)
	}

	return nil, &DatabaseError{Err: fmt.Errorf("could not allocate a unique loyalty code after %d attempts: %w", enrollMaxAttempts, lastErr)}
}

// GetByID returns the member with the given id
func (m *MembershipManager) GetByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyMember, error) {
	key := cache.MemberKey(id)
	var cached models.LoyaltyMember
	if found, err := m.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	member, err := m.store.FindMember(ctx, id)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	m.cacheMember(ctx, key, member)
	return member, nil
}

// GetByCustomer returns the customer's membership in the program
func (m *MembershipManager) GetByCustomer(ctx context.Context, customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	key := cache.MemberByCustomerKey(customerID, programID)
	var cached models.LoyaltyMember
	if found, err := m.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	member, err := m.store.FindMemberByCustomer(ctx, customerID, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	m.cacheMember(ctx, key, member)
	return member, nil
}

// GetByLoyaltyCode returns the member holding the human-readable code
func (m *MembershipManager) GetByLoyaltyCode(ctx context.Context, code string) (*models.LoyaltyMember, error) {
	key := cache.MemberByCodeKey(code)
	var cached models.LoyaltyMember
	if found, err := m.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	member, err := m.store.FindMemberByCode(ctx, code)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	m.cacheMember(ctx, key, member)
	return member, nil
}

func (m *MembershipManager) cacheMember(ctx context.Context, key string, member *models.LoyaltyMember) {
	if err := m.cache.Set(ctx, key, member); err != nil {
		log.Printf("Failed to cache member %s: %v", member.ID, err)
	}
}
