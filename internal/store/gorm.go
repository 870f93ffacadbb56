package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store over a gorm-managed Postgres connection.
// All mutations run through parameterized queries; no SQL is built from
// string concatenation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type gormTx struct {
	tx *gorm.DB
}

func (s *GormStore) WithMemberLock(ctx context.Context, memberID uuid.UUID, fn func(tx Tx, member *models.LoyaltyMember) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.LoyaltyMember
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&member, "id = ?", memberID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("error locking member row: %w", err)
		}
		return fn(&gormTx{tx: tx}, &member)
	})
}

func (s *GormStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}

func (t *gormTx) FindProgram(id uuid.UUID) (*models.LoyaltyProgram, error) {
	return findProgram(t.tx, id)
}

func (t *gormTx) FindTiers(programID uuid.UUID) ([]models.LoyaltyTier, error) {
	return findTiers(t.tx, programID)
}

func (t *gormTx) FindMemberByCustomer(customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	return findMemberByCustomer(t.tx, customerID, programID)
}

func (t *gormTx) InsertMember(m *models.LoyaltyMember) error {
	if err := t.tx.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateMemberBalance(memberID uuid.UUID, points, lifetimePoints int64, tierID *uuid.UUID) error {
	now := time.Now()
	err := t.tx.Model(&models.LoyaltyMember{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"points":           points,
			"lifetime_points":  lifetimePoints,
			"tier_id":          tierID,
			"last_activity_at": now,
			"updated_at":       now,
		}).Error
	if err != nil {
		return fmt.Errorf("error updating member balance: %w", err)
	}
	return nil
}

func (t *gormTx) InsertTransaction(txn *models.LoyaltyTransaction) error {
	if err := t.tx.Create(txn).Error; err != nil {
		return fmt.Errorf("error creating transaction record: %w", err)
	}
	return nil
}

func (t *gormTx) FindTransactionByReference(memberID uuid.UUID, reference string, txType models.TransactionType) (*models.LoyaltyTransaction, error) {
	var txn models.LoyaltyTransaction
	err := t.tx.Where("member_id = ? AND reference = ? AND type = ?", memberID, reference, txType).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding transaction by reference: %w", err)
	}
	return &txn, nil
}

func (t *gormTx) SumEarnedBefore(memberID uuid.UUID, cutoff time.Time) (int64, error) {
	var total int64
	err := t.tx.Model(&models.LoyaltyTransaction{}).
		Where("member_id = ? AND type IN ? AND created_at < ?",
			memberID,
			[]models.TransactionType{models.TransactionTypeEarn, models.TransactionTypeEnroll},
			cutoff).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error summing earned points: %w", err)
	}
	return total, nil
}

func (t *gormTx) SumConsumed(memberID uuid.UUID) (int64, error) {
	var total int64
	err := t.tx.Model(&models.LoyaltyTransaction{}).
		Where("member_id = ?", memberID).
		Select("COALESCE(SUM(points_redeemed), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error summing consumed points: %w", err)
	}
	return total, nil
}

func (s *GormStore) FindProgram(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	return findProgram(s.db.WithContext(ctx), id)
}

func (s *GormStore) FindActiveProgramByStore(ctx context.Context, storeID uuid.UUID) (*models.LoyaltyProgram, error) {
	var program models.LoyaltyProgram
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, models.ProgramStatusActive).
		First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding active program: %w", err)
	}
	return &program, nil
}

func (s *GormStore) SaveProgram(ctx context.Context, p *models.LoyaltyProgram) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("error saving program: %w", err)
	}
	return nil
}

func (s *GormStore) FindTiers(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyTier, error) {
	return findTiers(s.db.WithContext(ctx), programID)
}

func (s *GormStore) InsertTier(ctx context.Context, tier *models.LoyaltyTier) error {
	if err := s.db.WithContext(ctx).Create(tier).Error; err != nil {
		return fmt.Errorf("error creating tier: %w", err)
	}
	return nil
}

func (s *GormStore) FindReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	var reward models.LoyaltyReward
	err := s.db.WithContext(ctx).First(&reward, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding reward: %w", err)
	}
	return &reward, nil
}

func (s *GormStore) FindRewards(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyReward, error) {
	var rewards []models.LoyaltyReward
	err := s.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("points_required ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("error finding rewards: %w", err)
	}
	return rewards, nil
}

func (s *GormStore) InsertReward(ctx context.Context, reward *models.LoyaltyReward) error {
	if err := s.db.WithContext(ctx).Create(reward).Error; err != nil {
		return fmt.Errorf("error creating reward: %w", err)
	}
	return nil
}

func (s *GormStore) FindMember(ctx context.Context, id uuid.UUID) (*models.LoyaltyMember, error) {
	var member models.LoyaltyMember
	err := s.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding member: %w", err)
	}
	return &member, nil
}

func (s *GormStore) FindMemberByCustomer(ctx context.Context, customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	return findMemberByCustomer(s.db.WithContext(ctx), customerID, programID)
}

func (s *GormStore) FindMemberByCode(ctx context.Context, code string) (*models.LoyaltyMember, error) {
	var member models.LoyaltyMember
	err := s.db.WithContext(ctx).Where("loyalty_code = ?", code).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding member by code: %w", err)
	}
	return &member, nil
}

func (s *GormStore) FindTransactions(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]models.LoyaltyTransaction, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.LoyaltyTransaction{}).Where("member_id = ?", memberID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	var transactions []models.LoyaltyTransaction
	offset := (page - 1) * pageSize
	err := db.Where("member_id = ?", memberID).
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error finding transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *GormStore) FindStaleEarnMembers(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("type IN ? AND created_at < ?",
			[]models.TransactionType{models.TransactionTypeEarn, models.TransactionTypeEnroll},
			cutoff).
		Distinct("member_id").
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("error finding members with stale earnings: %w", err)
	}
	return ids, nil
}

func findProgram(db *gorm.DB, id uuid.UUID) (*models.LoyaltyProgram, error) {
	var program models.LoyaltyProgram
	err := db.First(&program, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding program: %w", err)
	}
	return &program, nil
}

func findTiers(db *gorm.DB, programID uuid.UUID) ([]models.LoyaltyTier, error) {
	var tiers []models.LoyaltyTier
	err := db.Where("program_id = ?", programID).
		Order("point_threshold ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("error finding tiers: %w", err)
	}
	return tiers, nil
}

func findMemberByCustomer(db *gorm.DB, customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	var member models.LoyaltyMember
	err := db.Where("customer_id = ? AND program_id = ?", customerID, programID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding member by customer: %w", err)
	}
	return &member, nil
}
