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
)

// LedgerEngine owns every balance mutation. All writes go through one
// locked transaction per call: the member row lock serializes
// concurrent mutations of the same member, and the ledger row, balance
// update and tier change commit or roll back together. The member's
// cached points column is a materialization of the ledger; after any
// committed call it equals the latest entry's balance snapshot.
type LedgerEngine struct {
	store store.Store
	cache *cache.Cache
}

// NewLedgerEngine creates a ledger engine. cache may be nil.
func NewLedgerEngine(st store.Store, c *cache.Cache) *LedgerEngine {
	return &LedgerEngine{store: st, cache: c}
}

// TransactionOptions carries the audit and linkage fields of a ledger
// entry. Reference is an external order reference; when set, applying
// the same (member, reference, type) twice credits exactly once and
// returns the prior entry.
type TransactionOptions struct {
	Source       string
	Reference    string
	RewardID     *uuid.UUID
	Notes        string
	ActingUserID uuid.UUID
}

// ApplyTransaction appends a ledger entry and updates the member's
// materialized balance atomically.
//
// amount is a non-negative magnitude for every type except adjust,
// whose sign is caller-determined: a positive adjustment credits, a
// negative one debits but never drives the balance below zero (the
// recorded deduction is clamped to the available balance). earn and
// enroll also grow lifetime points; redeem and expire fail with
// InsufficientPointsError rather than overdraw.
func (e *LedgerEngine) ApplyTransaction(ctx context.Context, memberID uuid.UUID, txType models.TransactionType, amount int64, opts TransactionOptions) (*models.LoyaltyTransaction, error) {
	switch txType {
	case models.TransactionTypeEarn, models.TransactionTypeEnroll,
		models.TransactionTypeRedeem, models.TransactionTypeExpire:
		if amount <= 0 {
			return nil, &ValidationError{Field: "amount", Reason: "must be a positive magnitude"}
		}
	case models.TransactionTypeAdjust:
		if amount == 0 {
			return nil, &ValidationError{Field: "amount", Reason: "adjustment must be non-zero"}
		}
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown transaction type %q", txType)}
	}

	var result *models.LoyaltyTransaction
	var member models.LoyaltyMember
	err := e.store.WithMemberLock(ctx, memberID, func(tx store.Tx, m *models.LoyaltyMember) error {
		var err error
		result, err = e.applyLocked(tx, m, txType, amount, opts)
		member = *m
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	e.invalidateMember(ctx, &member)
	return result, nil
}

// applyLocked runs inside the member-locked transaction. member holds
// committed state at lock acquisition and is updated in place so
// callers sharing the lock see the post-entry state.
func (e *LedgerEngine) applyLocked(tx store.Tx, member *models.LoyaltyMember, txType models.TransactionType, amount int64, opts TransactionOptions) (*models.LoyaltyTransaction, error) {
	if opts.Reference != "" {
		existing, err := tx.FindTransactionByReference(member.ID, opts.Reference, txType)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			// idempotent no-op: same external reference already applied
			return existing, nil
		}
	}

	newBalance := member.Points
	newLifetime := member.LifetimePoints
	var earned, redeemed int64

	switch txType {
	case models.TransactionTypeEarn, models.TransactionTypeEnroll:
		earned = amount
		newBalance += amount
		newLifetime += amount
	case models.TransactionTypeRedeem, models.TransactionTypeExpire:
		if member.Points < amount {
			return nil, &InsufficientPointsError{Required: amount, Available: member.Points}
		}
		redeemed = amount
		newBalance -= amount
	case models.TransactionTypeAdjust:
		if amount > 0 {
			earned = amount
			newBalance += amount
		} else {
			// adjustments never overdraw; the recorded deduction
			// is what the balance could actually cover
			redeemed = -amount
			if redeemed > member.Points {
				redeemed = member.Points
			}
			newBalance -= redeemed
		}
	}

	program, err := tx.FindProgram(member.ProgramID)
	if err != nil {
		return nil, err
	}
	tiers, err := tx.FindTiers(member.ProgramID)
	if err != nil {
		return nil, err
	}
	tierID := EvaluateTier(tierMeasure(program, newBalance, newLifetime), tiers)

	txn := &models.LoyaltyTransaction{
		MemberID:       member.ID,
		ProgramID:      member.ProgramID,
		Type:           txType,
		PointsEarned:   earned,
		PointsRedeemed: redeemed,
		PointsBalance:  newBalance,
		Source:         opts.Source,
		Description:    opts.Notes,
		Reference:      opts.Reference,
		RewardID:       opts.RewardID,
		CreatedBy:      opts.ActingUserID,
	}
	if err := tx.InsertTransaction(txn); err != nil {
		return nil, err
	}
	if err := tx.UpdateMemberBalance(member.ID, newBalance, newLifetime, tierID); err != nil {
		return nil, err
	}

	member.Points = newBalance
	member.LifetimePoints = newLifetime
	member.TierID = tierID
	return txn, nil
}

// ExpireStale debits the member's stale outstanding points inside one
// locked transaction. Outstanding follows FIFO consumption: every
// debit ever recorded is assumed to have drawn on the oldest earnings
// first, so what remains expirable is stale earnings minus total
// consumption, capped by the current balance. Returns the amount
// expired, zero when nothing qualified.
func (e *LedgerEngine) ExpireStale(ctx context.Context, memberID uuid.UUID, cutoff time.Time, actingUserID uuid.UUID) (int64, error) {
	var expired int64
	var member models.LoyaltyMember
	err := e.store.WithMemberLock(ctx, memberID, func(tx store.Tx, m *models.LoyaltyMember) error {
		member = *m
		staleEarned, err := tx.SumEarnedBefore(m.ID, cutoff)
		if err != nil {
			return err
		}
		consumed, err := tx.SumConsumed(m.ID)
		if err != nil {
			return err
		}

		amount := staleEarned - consumed
		if amount > m.Points {
			amount = m.Points
		}
		if amount <= 0 {
			return nil
		}

		_, err = e.applyLocked(tx, m, models.TransactionTypeExpire, amount, TransactionOptions{
			Source:       "points_expiry",
			Notes:        fmt.Sprintf("expired %d points earned before %s", amount, cutoff.Format("2006-01-02")),
			ActingUserID: actingUserID,
		})
		if err != nil {
			return err
		}
		expired = amount
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}

	if expired > 0 {
		e.invalidateMember(ctx, &member)
	}
	return expired, nil
}

// History returns the member's ledger entries newest first
func (e *LedgerEngine) History(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]models.LoyaltyTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	key := cache.TransactionsKey(memberID, page, pageSize)
	var cached transactionPage
	if found, err := e.cache.Get(ctx, key, &cached); err == nil && found {
		return cached.Transactions, cached.Total, nil
	}

	transactions, total, err := e.store.FindTransactions(ctx, memberID, page, pageSize)
	if err != nil {
		return nil, 0, &DatabaseError{Err: err}
	}

	if err := e.cache.Set(ctx, key, transactionPage{Transactions: transactions, Total: total}); err != nil {
		log.Printf("Failed to cache transaction history for member %s: %v", memberID, err)
	}
	return transactions, total, nil
}

type transactionPage struct {
	Transactions []models.LoyaltyTransaction `json:"transactions"`
	Total        int64                       `json:"total"`
}

// invalidateMember drops every cache entry keyed by this member. Runs
// after commit only; a failed invalidation is logged and tolerated
// because entries carry a TTL.
func (e *LedgerEngine) invalidateMember(ctx context.Context, member *models.LoyaltyMember) {
	keys := []string{
		cache.MemberKey(member.ID),
		cache.MemberByCodeKey(member.LoyaltyCode),
		cache.MemberByCustomerKey(member.CustomerID, member.ProgramID),
	}
	if err := e.cache.Del(ctx, keys...); err != nil {
		log.Printf("Failed to invalidate member cache for %s: %v", member.ID, err)
	}
	if err := e.cache.InvalidatePattern(ctx, cache.TransactionsPattern(member.ID)); err != nil {
		log.Printf("Failed to invalidate transaction cache for %s: %v", member.ID, err)
	}
}

// classify maps storage-level failures onto the loyalty error
// taxonomy, passing business errors through untouched
func classify(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrMemberNotFound
	}
	var insufficient *InsufficientPointsError
	if errors.As(err, &insufficient) {
		return err
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return err
	}
	var already *AlreadyEnrolledError
	if errors.As(err, &already) {
		return err
	}
	return &DatabaseError{Err: err}
}
