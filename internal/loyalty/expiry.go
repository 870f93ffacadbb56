package loyalty

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/store"
)

// DefaultExpiryCutoffMonths is the retention window for earned points
const DefaultExpiryCutoffMonths = 12

// ExpiryProcessor is the batch sweep that debits stale unused points.
// It runs one locked transaction per affected member rather than one
// sweep-wide transaction, so lock duration stays bounded and a single
// bad member cannot abort the rest of the run.
type ExpiryProcessor struct {
	store  store.Store
	ledger *LedgerEngine
}

// NewExpiryProcessor creates an expiry processor
func NewExpiryProcessor(st store.Store, ledger *LedgerEngine) *ExpiryProcessor {
	return &ExpiryProcessor{store: st, ledger: ledger}
}

// ProcessExpiredPoints expires outstanding points earned more than
// cutoffMonths ago, returning the grand total expired across all
// members. Individual member failures are logged and skipped.
func (p *ExpiryProcessor) ProcessExpiredPoints(ctx context.Context, cutoffMonths int, actingUserID uuid.UUID) (int64, error) {
	if cutoffMonths <= 0 {
		cutoffMonths = DefaultExpiryCutoffMonths
	}
	cutoff := time.Now().AddDate(0, -cutoffMonths, 0)

	memberIDs, err := p.store.FindStaleEarnMembers(ctx, cutoff)
	if err != nil {
		return 0, &DatabaseError{Err: err}
	}
	if len(memberIDs) == 0 {
		return 0, nil
	}

	log.Printf("Points expiry sweep: %d members with earnings before %s", len(memberIDs), cutoff.Format("2006-01-02"))

	var total int64
	var failed int
	for _, memberID := range memberIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		expired, err := p.ledger.ExpireStale(ctx, memberID, cutoff, actingUserID)
		if err != nil {
			failed++
			log.Printf("Failed to expire points for member %s: %v", memberID, err)
			continue
		}
		total += expired
	}

	log.Printf("Points expiry sweep complete: %d points expired, %d members failed", total, failed)
	return total, nil
}
