package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storeline/backend/internal/models"
)

// Memory is an in-memory Store used by tests and local development. It
// emulates the row-lock semantics of the Postgres store: a per-member
// mutex serializes mutations of the same member, writes inside a
// callback are buffered and only become visible when the callback
// returns nil.
type Memory struct {
	mu           sync.Mutex
	memberMus    map[uuid.UUID]*sync.Mutex
	programs     map[uuid.UUID]*models.LoyaltyProgram
	tiers        map[uuid.UUID][]models.LoyaltyTier
	rewards      map[uuid.UUID]*models.LoyaltyReward
	members      map[uuid.UUID]*models.LoyaltyMember
	transactions []*models.LoyaltyTransaction
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		memberMus: make(map[uuid.UUID]*sync.Mutex),
		programs:  make(map[uuid.UUID]*models.LoyaltyProgram),
		tiers:     make(map[uuid.UUID][]models.LoyaltyTier),
		rewards:   make(map[uuid.UUID]*models.LoyaltyReward),
		members:   make(map[uuid.UUID]*models.LoyaltyMember),
	}
}

type balanceUpdate struct {
	memberID       uuid.UUID
	points         int64
	lifetimePoints int64
	tierID         *uuid.UUID
}

type memTx struct {
	m       *Memory
	holdsMu bool

	insertedMembers []*models.LoyaltyMember
	insertedTxns    []*models.LoyaltyTransaction
	balanceUpdates  []balanceUpdate
}

func (t *memTx) locked(fn func()) {
	if t.holdsMu {
		fn()
		return
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	fn()
}

func (t *memTx) commit() {
	for _, m := range t.insertedMembers {
		cp := *m
		t.m.members[m.ID] = &cp
	}
	for _, txn := range t.insertedTxns {
		cp := *txn
		t.m.transactions = append(t.m.transactions, &cp)
	}
	for _, u := range t.balanceUpdates {
		if member, ok := t.m.members[u.memberID]; ok {
			member.Points = u.points
			member.LifetimePoints = u.lifetimePoints
			member.TierID = u.tierID
			member.LastActivityAt = time.Now()
			member.UpdatedAt = time.Now()
		}
	}
}

func (m *Memory) memberMutex(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.memberMus[id]
	if !ok {
		mu = &sync.Mutex{}
		m.memberMus[id] = mu
	}
	return mu
}

func (m *Memory) WithMemberLock(ctx context.Context, memberID uuid.UUID, fn func(tx Tx, member *models.LoyaltyMember) error) error {
	rowMu := m.memberMutex(memberID)
	rowMu.Lock()
	defer rowMu.Unlock()

	m.mu.Lock()
	stored, ok := m.members[memberID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	member := *stored
	m.mu.Unlock()

	tx := &memTx{m: m}
	if err := fn(tx, &member); err != nil {
		return err
	}

	m.mu.Lock()
	tx.commit()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Transact(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m, holdsMu: true}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (t *memTx) FindProgram(id uuid.UUID) (*models.LoyaltyProgram, error) {
	var out *models.LoyaltyProgram
	t.locked(func() {
		if p, ok := t.m.programs[id]; ok {
			cp := *p
			out = &cp
		}
	})
	return out, nil
}

func (t *memTx) FindTiers(programID uuid.UUID) ([]models.LoyaltyTier, error) {
	var out []models.LoyaltyTier
	t.locked(func() {
		out = append(out, t.m.tiers[programID]...)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PointThreshold < out[j].PointThreshold })
	return out, nil
}

func (t *memTx) FindMemberByCustomer(customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	var out *models.LoyaltyMember
	t.locked(func() {
		out = t.findMemberByCustomerLocked(customerID, programID)
	})
	return out, nil
}

func (t *memTx) findMemberByCustomerLocked(customerID, programID uuid.UUID) *models.LoyaltyMember {
	for _, member := range t.m.members {
		if member.CustomerID == customerID && member.ProgramID == programID {
			cp := *member
			return &cp
		}
	}
	for _, member := range t.insertedMembers {
		if member.CustomerID == customerID && member.ProgramID == programID {
			cp := *member
			return &cp
		}
	}
	return nil
}

func (t *memTx) InsertMember(m *models.LoyaltyMember) error {
	var err error
	t.locked(func() {
		if t.findMemberByCustomerLocked(m.CustomerID, m.ProgramID) != nil {
			err = ErrDuplicate
			return
		}
		for _, existing := range t.m.members {
			if existing.LoyaltyCode == m.LoyaltyCode {
				err = ErrDuplicate
				return
			}
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		t.insertedMembers = append(t.insertedMembers, m)
	})
	return err
}

func (t *memTx) UpdateMemberBalance(memberID uuid.UUID, points, lifetimePoints int64, tierID *uuid.UUID) error {
	t.balanceUpdates = append(t.balanceUpdates, balanceUpdate{
		memberID:       memberID,
		points:         points,
		lifetimePoints: lifetimePoints,
		tierID:         tierID,
	})
	return nil
}

func (t *memTx) InsertTransaction(txn *models.LoyaltyTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	t.insertedTxns = append(t.insertedTxns, txn)
	return nil
}

func (t *memTx) FindTransactionByReference(memberID uuid.UUID, reference string, txType models.TransactionType) (*models.LoyaltyTransaction, error) {
	var out *models.LoyaltyTransaction
	t.locked(func() {
		for _, txn := range t.m.transactions {
			if txn.MemberID == memberID && txn.Reference == reference && txn.Type == txType {
				cp := *txn
				out = &cp
				return
			}
		}
	})
	return out, nil
}

func (t *memTx) SumEarnedBefore(memberID uuid.UUID, cutoff time.Time) (int64, error) {
	var total int64
	t.locked(func() {
		for _, txn := range t.m.transactions {
			if txn.MemberID != memberID || !txn.CreatedAt.Before(cutoff) {
				continue
			}
			if txn.Type == models.TransactionTypeEarn || txn.Type == models.TransactionTypeEnroll {
				total += txn.PointsEarned
			}
		}
	})
	return total, nil
}

func (t *memTx) SumConsumed(memberID uuid.UUID) (int64, error) {
	var total int64
	t.locked(func() {
		for _, txn := range t.m.transactions {
			if txn.MemberID == memberID {
				total += txn.PointsRedeemed
			}
		}
	})
	return total, nil
}

func (m *Memory) FindProgram(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.programs[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) FindActiveProgramByStore(ctx context.Context, storeID uuid.UUID) (*models.LoyaltyProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.programs {
		if p.StoreID == storeID && p.Status == models.ProgramStatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaveProgram(ctx context.Context, p *models.LoyaltyProgram) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.programs[p.ID] = &cp
	return nil
}

func (m *Memory) FindTiers(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.LoyaltyTier(nil), m.tiers[programID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].PointThreshold < out[j].PointThreshold })
	return out, nil
}

func (m *Memory) InsertTier(ctx context.Context, tier *models.LoyaltyTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	m.tiers[tier.ProgramID] = append(m.tiers[tier.ProgramID], *tier)
	return nil
}

func (m *Memory) FindReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rewards[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) FindRewards(ctx context.Context, programID uuid.UUID) ([]models.LoyaltyReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LoyaltyReward
	for _, r := range m.rewards {
		if r.ProgramID == programID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointsRequired < out[j].PointsRequired })
	return out, nil
}

func (m *Memory) InsertReward(ctx context.Context, reward *models.LoyaltyReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	cp := *reward
	m.rewards[reward.ID] = &cp
	return nil
}

func (m *Memory) FindMember(ctx context.Context, id uuid.UUID) (*models.LoyaltyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.members[id]; ok {
		cp := *member
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) FindMemberByCustomer(ctx context.Context, customerID, programID uuid.UUID) (*models.LoyaltyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.CustomerID == customerID && member.ProgramID == programID {
			cp := *member
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindMemberByCode(ctx context.Context, code string) (*models.LoyaltyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.LoyaltyCode == code {
			cp := *member
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindTransactions(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]models.LoyaltyTransaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// walk backwards so equal timestamps keep reverse insertion order
	// through the stable sort
	var all []models.LoyaltyTransaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].MemberID == memberID {
			all = append(all, *m.transactions[i])
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *Memory) FindStaleEarnMembers(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, txn := range m.transactions {
		if txn.Type != models.TransactionTypeEarn && txn.Type != models.TransactionTypeEnroll {
			continue
		}
		if !txn.CreatedAt.Before(cutoff) || seen[txn.MemberID] {
			continue
		}
		seen[txn.MemberID] = true
		ids = append(ids, txn.MemberID)
	}
	return ids, nil
}
