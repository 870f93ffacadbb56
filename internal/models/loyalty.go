package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgramStatus represents the lifecycle state of a loyalty program
type ProgramStatus string

const (
	ProgramStatusActive   ProgramStatus = "active"
	ProgramStatusInactive ProgramStatus = "inactive"
	ProgramStatusDraft    ProgramStatus = "draft"
	ProgramStatusArchived ProgramStatus = "archived"
)

// TierPolicy selects which measure a program's tier evaluation keys off
type TierPolicy string

const (
	TierPolicyBalance  TierPolicy = "balance"  // current spendable points
	TierPolicyLifetime TierPolicy = "lifetime" // cumulative points ever earned
)

// MemberStatus represents the state of a loyalty membership
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// RewardType categorizes what a reward grants when redeemed
type RewardType string

const (
	RewardTypeDiscount RewardType = "discount"
	RewardTypeFreeItem RewardType = "free_item"
	RewardTypeService  RewardType = "service"
	RewardTypeGift     RewardType = "gift"
	RewardTypeOther    RewardType = "other"
)

// TransactionType is the kind of ledger entry
type TransactionType string

const (
	TransactionTypeEnroll TransactionType = "enroll"
	TransactionTypeEarn   TransactionType = "earn"
	TransactionTypeRedeem TransactionType = "redeem"
	TransactionTypeAdjust TransactionType = "adjust"
	TransactionTypeExpire TransactionType = "expire"
)

// LoyaltyProgram defines a store's loyalty program. A store has at most
// one active program at a time; creation logic updates an existing
// active program rather than inserting a duplicate.
type LoyaltyProgram struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StoreID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"store_id"`
	Name                  string         `gorm:"type:varchar(100);not null" json:"name"`
	Slug                  string         `gorm:"type:varchar(120);index" json:"slug"`
	Status                ProgramStatus  `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	PointsPerCurrencyUnit float64        `gorm:"type:decimal(10,4);default:1" json:"points_per_currency_unit"`
	MinimumPurchase       float64        `gorm:"type:decimal(20,2);default:0" json:"minimum_purchase"`
	TierPolicy            TierPolicy     `gorm:"type:varchar(20);not null;default:'lifetime'" json:"tier_policy"`
	CreatedAt             time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// LoyaltyTier is a qualification level within a program, unlocked at a
// point threshold. Active tiers of a program never share a threshold.
type LoyaltyTier struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProgramID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"program_id"`
	Program        LoyaltyProgram `gorm:"foreignKey:ProgramID" json:"-"`
	Name           string         `gorm:"type:varchar(50);not null" json:"name"`
	PointThreshold int64          `gorm:"not null" json:"point_threshold"`
	Multiplier     float64        `gorm:"type:decimal(5,2);default:1" json:"multiplier"`
	Active         bool           `gorm:"default:true" json:"active"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// LoyaltyMember is a customer's membership in a program. Points and
// LifetimePoints are materialized from the transaction ledger and are
// only ever written through the ledger engine.
type LoyaltyMember struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProgramID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_member_customer_program" json:"program_id"`
	Program        LoyaltyProgram `gorm:"foreignKey:ProgramID" json:"-"`
	CustomerID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_member_customer_program" json:"customer_id"`
	TierID         *uuid.UUID     `gorm:"type:uuid" json:"tier_id"`
	LoyaltyCode    string         `gorm:"type:varchar(30);uniqueIndex;not null" json:"loyalty_code"`
	Points         int64          `gorm:"not null;default:0" json:"points"`
	LifetimePoints int64          `gorm:"not null;default:0" json:"lifetime_points"`
	Status         MemberStatus   `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	EnrolledBy     uuid.UUID      `gorm:"type:uuid" json:"enrolled_by"`
	EnrolledAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"enrolled_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// LoyaltyReward is something members can spend points on
type LoyaltyReward struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProgramID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"program_id"`
	Program        LoyaltyProgram `gorm:"foreignKey:ProgramID" json:"-"`
	Name           string         `gorm:"type:varchar(100);not null" json:"name"`
	PointsRequired int64          `gorm:"not null" json:"points_required"`
	Type           RewardType     `gorm:"type:varchar(20);not null;default:'other'" json:"type"`
	Active         bool           `gorm:"default:true" json:"active"`
	MetaData       JSON           `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// LoyaltyTransaction is an immutable, append-only ledger entry. The
// PointsBalance snapshot is the member's balance immediately after this
// entry; the latest entry's snapshot must always match the member row.
// Corrections are new adjust/expire entries, never edits.
type LoyaltyTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MemberID       uuid.UUID       `gorm:"type:uuid;not null;index;index:idx_txn_member_reference" json:"member_id"`
	Member         LoyaltyMember   `gorm:"foreignKey:MemberID" json:"-"`
	ProgramID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"program_id"`
	Type           TransactionType `gorm:"type:varchar(20);not null;index:idx_txn_member_reference" json:"type"`
	PointsEarned   int64           `gorm:"not null;default:0" json:"points_earned"`
	PointsRedeemed int64           `gorm:"not null;default:0" json:"points_redeemed"`
	PointsBalance  int64           `gorm:"not null" json:"points_balance"`
	Source         string          `gorm:"type:varchar(50)" json:"source"`
	Description    string          `gorm:"type:text" json:"description"`
	Reference      string          `gorm:"type:varchar(100);index:idx_txn_member_reference" json:"reference"`
	RewardID       *uuid.UUID      `gorm:"type:uuid" json:"reward_id"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// BeforeCreate assigns ids client-side so ledger rows can reference
// each other before the insert round-trips
func (t *LoyaltyTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
