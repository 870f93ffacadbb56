package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
)

// ErrNotFound is returned by lock acquisition when the target row does
// not exist. Plain finders return (nil, nil) for missing rows.
var ErrNotFound = errors.New("store: record not found")

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("store: duplicate record")

// Tx is the transactional view handed to callbacks. Every write through
// a Tx commits or rolls back atomically with the rest of the callback.
type Tx interface {
	FindProgram(id uuid.UUID) (*models.LoyaltyProgram, error)
	FindTiers(programID uuid.UUID) ([]models.LoyaltyTier, error)
	FindMemberByCustomer(customerID, programID uuid.UUID) (*models.LoyaltyMember, error)
	InsertMember(m *models.LoyaltyMember) error
	UpdateMemberBalance(memberID uuid.UUID, points, lifetimePoints int64, tierID *uuid.UUID) error
	InsertTransaction(t *models.LoyaltyTransaction) error
	FindTransactionByReference(memberID uuid.UUID, reference string, txType models.TransactionType) (*models.LoyaltyTransaction, error)

	// Ledger aggregates used by the expiry sweep. Earned counts
	// enroll and earn entries; consumed counts every debit ever
	// drawn against the member (redeem, expire, negative adjust).
	SumEarnedBefore(memberID uuid.UUID, cutoff time.Time) (int64, error)
	SumConsumed(memberID uuid.UUID) (int64, error)
}

// Store is the data-access surface the loyalty services consume. The
// member row is the single serialization point: WithMemberLock holds a
// row lock on the member for the duration of the callback, so two
// concurrent mutations of the same member always see each other's
// committed state.
type Store interface {
	// WithMemberLock locks and reads the member row inside a new
	// transaction, then runs fn. Returns ErrNotFound when the member
	// does not exist. The member passed to fn reflects committed
	// state at lock acquisition.
	WithMemberLock(ctx context.Context, memberID uuid.UUID, fn func(tx Tx, member *models.LoyaltyMember) error) error

	// Transact runs fn inside a transaction with no row pre-locked,
	// used for enrollment where the member row does not exist yet.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	FindProgram(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error)
	FindActiveProgramByStore(ctx context.Context, storeID uuid.UUID) (*models.LoyaltyProgram, error)
	SaveProgram(ctx context.Context, p *models.LoyaltyProgram) error
	FindTiers(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyTier, error)
	InsertTier(ctx context.Context, t *models.LoyaltyTier) error
	FindReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error)
	FindRewards(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyReward, error)
	InsertReward(ctx context.Context, r *models.LoyaltyReward) error
	FindMember(ctx context.Context, id uuid.UUID) (*models.LoyaltyMember, error)
	FindMemberByCustomer(ctx context.Context, customerID, programID uuid.UUID) (*models.LoyaltyMember, error)
	FindMemberByCode(ctx context.Context, code string) (*models.LoyaltyMember, error)
	FindTransactions(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]models.LoyaltyTransaction, int64, error)

	// FindStaleEarnMembers returns ids of members holding at least
	// one earn or enroll entry older than cutoff.
	FindStaleEarnMembers(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}
