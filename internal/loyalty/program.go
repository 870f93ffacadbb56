package loyalty

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/storeline/backend/internal/cache"
	"github.com/storeline/backend/internal/models"
	"github.com/storeline/backend/internal/store"
)

// ProgramRegistry owns program, tier and reward definitions. These are
// admin-mutated lookup data; during normal point flow the registry is
// read-only.
type ProgramRegistry struct {
	store store.Store
	cache *cache.Cache
}

// NewProgramRegistry creates a program registry. cache may be nil.
func NewProgramRegistry(st store.Store, c *cache.Cache) *ProgramRegistry {
	return &ProgramRegistry{store: st, cache: c}
}

// ProgramInput is the admin-supplied definition of a program
type ProgramInput struct {
	StoreID               uuid.UUID
	Name                  string
	Status                models.ProgramStatus
	PointsPerCurrencyUnit float64
	MinimumPurchase       float64
	TierPolicy            models.TierPolicy
}

func (in *ProgramInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.PointsPerCurrencyUnit < 0 {
		return &ValidationError{Field: "pointsPerCurrencyUnit", Reason: "must not be negative"}
	}
	if in.MinimumPurchase < 0 {
		return &ValidationError{Field: "minimumPurchase", Reason: "must not be negative"}
	}
	switch in.Status {
	case "", models.ProgramStatusActive, models.ProgramStatusInactive, models.ProgramStatusDraft, models.ProgramStatusArchived:
	default:
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	switch in.TierPolicy {
	case "", models.TierPolicyBalance, models.TierPolicyLifetime:
	default:
		return &ValidationError{Field: "tierPolicy", Reason: "must be balance or lifetime"}
	}
	return nil
}

// CreateProgram creates the store's loyalty program. A store has at
// most one active program: when one already exists it is updated in
// place instead of duplicated.
func (r *ProgramRegistry) CreateProgram(ctx context.Context, in ProgramInput) (*models.LoyaltyProgram, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.ProgramStatusActive
	}
	if in.TierPolicy == "" {
		in.TierPolicy = models.TierPolicyLifetime
	}

	existing, err := r.store.FindActiveProgramByStore(ctx, in.StoreID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}

	program := existing
	if program == nil {
		program = &models.LoyaltyProgram{ID: uuid.New(), StoreID: in.StoreID}
	}
	program.Name = in.Name
	program.Slug = slug.Make(in.Name)
	program.Status = in.Status
	program.PointsPerCurrencyUnit = in.PointsPerCurrencyUnit
	program.MinimumPurchase = in.MinimumPurchase
	program.TierPolicy = in.TierPolicy

	if err := r.store.SaveProgram(ctx, program); err != nil {
		return nil, &DatabaseError{Err: err}
	}
	r.invalidateProgram(ctx, program.ID)
	return program, nil
}

// UpdateProgram applies the input to an existing program
func (r *ProgramRegistry) UpdateProgram(ctx context.Context, id uuid.UUID, in ProgramInput) (*models.LoyaltyProgram, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	program, err := r.store.FindProgram(ctx, id)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if program == nil {
		return nil, ErrProgramNotFound
	}

	program.Name = in.Name
	program.Slug = slug.Make(in.Name)
	if in.Status != "" {
		program.Status = in.Status
	}
	if in.TierPolicy != "" {
		program.TierPolicy = in.TierPolicy
	}
	program.PointsPerCurrencyUnit = in.PointsPerCurrencyUnit
	program.MinimumPurchase = in.MinimumPurchase

	if err := r.store.SaveProgram(ctx, program); err != nil {
		return nil, &DatabaseError{Err: err}
	}
	r.invalidateProgram(ctx, id)
	return program, nil
}

// GetProgram returns the program with the given id
func (r *ProgramRegistry) GetProgram(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	key := cache.ProgramKey(id)
	var cached models.LoyaltyProgram
	if found, err := r.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	program, err := r.store.FindProgram(ctx, id)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if program == nil {
		return nil, ErrProgramNotFound
	}
	if err := r.cache.Set(ctx, key, program); err != nil {
		log.Printf("Failed to cache program %s: %v", id, err)
	}
	return program, nil
}

// ListTiers returns the program's tiers ordered by threshold ascending
func (r *ProgramRegistry) ListTiers(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyTier, error) {
	tiers, err := r.store.FindTiers(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return tiers, nil
}

// CreateTier adds a tier to the program. Active tiers form a total
// order by threshold, so no two active tiers may share one.
func (r *ProgramRegistry) CreateTier(ctx context.Context, programID uuid.UUID, name string, pointThreshold int64, multiplier float64) (*models.LoyaltyTier, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if pointThreshold < 0 {
		return nil, &ValidationError{Field: "pointThreshold", Reason: "must not be negative"}
	}
	if multiplier <= 0 {
		multiplier = 1
	}

	program, err := r.store.FindProgram(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if program == nil {
		return nil, ErrProgramNotFound
	}

	tiers, err := r.store.FindTiers(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	for i := range tiers {
		if tiers[i].Active && tiers[i].PointThreshold == pointThreshold {
			return nil, &ValidationError{Field: "pointThreshold", Reason: "an active tier with this threshold already exists"}
		}
	}

	tier := &models.LoyaltyTier{
		ID:             uuid.New(),
		ProgramID:      programID,
		Name:           name,
		PointThreshold: pointThreshold,
		Multiplier:     multiplier,
		Active:         true,
	}
	if err := r.store.InsertTier(ctx, tier); err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return tier, nil
}

// CreateReward adds a redeemable reward to the program
func (r *ProgramRegistry) CreateReward(ctx context.Context, programID uuid.UUID, name string, pointsRequired int64, rewardType models.RewardType, metadata models.JSON) (*models.LoyaltyReward, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if pointsRequired <= 0 {
		return nil, &ValidationError{Field: "pointsRequired", Reason: "must be positive"}
	}
	if rewardType == "" {
		rewardType = models.RewardTypeOther
	}

	program, err := r.store.FindProgram(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if program == nil {
		return nil, ErrProgramNotFound
	}

	reward := &models.LoyaltyReward{
		ID:             uuid.New(),
		ProgramID:      programID,
		Name:           name,
		PointsRequired: pointsRequired,
		Type:           rewardType,
		Active:         true,
		MetaData:       metadata,
	}
	if err := r.store.InsertReward(ctx, reward); err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return reward, nil
}

// ListRewards returns the program's rewards cheapest first
func (r *ProgramRegistry) ListRewards(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyReward, error) {
	rewards, err := r.store.FindRewards(ctx, programID)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return rewards, nil
}

// GetReward returns the reward with the given id
func (r *ProgramRegistry) GetReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	reward, err := r.store.FindReward(ctx, id)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

func (r *ProgramRegistry) invalidateProgram(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Del(ctx, cache.ProgramKey(id)); err != nil {
		log.Printf("Failed to invalidate program cache for %s: %v", id, err)
	}
}
