package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory repos return copies and apply writes under their own locks,
// so together with the serializing transactor they behave like the real
// storage layer under row locking.

// --- In-Memory Vendor Repo ---

type inMemoryVendorRepo struct {
	mu      sync.RWMutex
	vendors map[uuid.UUID]*domain.Vendor
}

func newInMemoryVendorRepo() *inMemoryVendorRepo {
	return &inMemoryVendorRepo{vendors: make(map[uuid.UUID]*domain.Vendor)}
}

func (r *inMemoryVendorRepo) add(v *domain.Vendor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.vendors[v.ID] = &cp
}

func (r *inMemoryVendorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vendors[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *inMemoryVendorRepo) GetByPhone(ctx context.Context, phone string) (*domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.vendors {
		if v.Phone == phone {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryVendorRepo) Suspend(ctx context.Context, id uuid.UUID, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendors[id]
	if !ok {
		return fmt.Errorf("vendor not found")
	}
	v.Status = domain.VendorStatusSuspended
	v.SuspendedUntil = &until
	return nil
}

func (r *inMemoryVendorRepo) IncrementFraudFlags(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendors[id]
	if !ok {
		return 0, fmt.Errorf("vendor not found")
	}
	v.FraudFlags++
	return v.FraudFlags, nil
}

func (r *inMemoryVendorRepo) ListFlagged(ctx context.Context, threshold int) ([]domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Vendor
	for _, v := range r.vendors {
		if v.Status == domain.VendorStatusActive && v.FraudFlags >= threshold {
			result = append(result, *v)
		}
	}
	return result, nil
}

// --- In-Memory Auction Repo ---

type inMemoryAuctionRepo struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*domain.Auction
}

func newInMemoryAuctionRepo() *inMemoryAuctionRepo {
	return &inMemoryAuctionRepo{auctions: make(map[uuid.UUID]*domain.Auction)}
}

func (r *inMemoryAuctionRepo) Create(ctx context.Context, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.auctions[a.ID] = &cp
	return nil
}

func (r *inMemoryAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAuctionRepo) ListActive(ctx context.Context) ([]domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionStatusActive {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EndTime.Before(result[j].EndTime) })
	return result, nil
}

func (r *inMemoryAuctionRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionStatusActive && !a.EndTime.After(now) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *inMemoryAuctionRepo) ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionStatusActive && a.EndTime.After(from) && !a.EndTime.After(to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

// CompareAndSwapBid mirrors the SQL version-guarded UPDATE: the swap only
// lands when the stored version still matches, atomically under the lock.
func (r *inMemoryAuctionRepo) CompareAndSwapBid(ctx context.Context, id uuid.UUID, vendorID uuid.UUID, amount int64, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return false, fmt.Errorf("auction not found")
	}
	if a.Status != domain.AuctionStatusActive || a.Version != expectedVersion {
		return false, nil
	}
	a.CurrentBid = &amount
	a.CurrentBidder = &vendorID
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *inMemoryAuctionRepo) ExtendEndTime(ctx context.Context, id uuid.UUID, newEnd time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return false, fmt.Errorf("auction not found")
	}
	if !newEnd.After(a.EndTime) {
		return false, nil
	}
	a.EndTime = newEnd
	a.ExtensionCount++
	return true, nil
}

func (r *inMemoryAuctionRepo) Close(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return false, fmt.Errorf("auction not found")
	}
	if a.Status != domain.AuctionStatusActive {
		return false, nil
	}
	a.Status = domain.AuctionStatusClosed
	return true, nil
}

// --- In-Memory Bid Repo ---

type inMemoryBidRepo struct {
	mu   sync.RWMutex
	bids map[uuid.UUID][]domain.Bid // keyed by auction
}

func newInMemoryBidRepo() *inMemoryBidRepo {
	return &inMemoryBidRepo{bids: make(map[uuid.UUID][]domain.Bid)}
}

func (r *inMemoryBidRepo) Append(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], *bid)
	return nil
}

func (r *inMemoryBidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Bid, len(r.bids[auctionID]))
	copy(result, r.bids[auctionID])
	return result, nil
}

func (r *inMemoryBidRepo) ListBidders(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	var result []uuid.UUID
	for _, b := range r.bids[auctionID] {
		if _, ok := seen[b.VendorID]; ok {
			continue
		}
		seen[b.VendorID] = struct{}{}
		result = append(result, b.VendorID)
	}
	return result, nil
}

func (r *inMemoryBidRepo) count(auctionID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bids[auctionID])
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.PaymentObligation
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.PaymentObligation)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PaymentObligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.AuctionID == p.AuctionID && existing.Status != domain.PaymentStatusForfeited {
			return fmt.Errorf("open obligation exists for auction")
		}
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetOpenByAuction(ctx context.Context, auctionID uuid.UUID) (*domain.PaymentObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.AuctionID == auctionID && p.Status != domain.PaymentStatusForfeited {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus, deadlineBefore time.Time) ([]domain.PaymentObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PaymentObligation
	for _, p := range r.payments {
		if p.Status == status && !p.Deadline.After(deadlineBefore) {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *inMemoryPaymentRepo) ListPendingReminders(ctx context.Context, from, to time.Time) ([]domain.PaymentObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PaymentObligation
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && !p.ReminderSent && p.Deadline.After(from) && !p.Deadline.After(to) {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *inMemoryPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, fmt.Errorf("payment not found")
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *inMemoryPaymentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, fmt.Errorf("payment not found")
	}
	if p.ReminderSent {
		return false, nil
	}
	p.ReminderSent = true
	return true, nil
}

func (r *inMemoryPaymentRepo) MarkFundsFrozen(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	p.FundsFrozen = true
	return nil
}

func (r *inMemoryPaymentRepo) ClearFundsFrozen(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, fmt.Errorf("payment not found")
	}
	if !p.FundsFrozen {
		return false, nil
	}
	p.FundsFrozen = false
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *inMemoryPaymentRepo) ListForfeitedWithHeldFunds(ctx context.Context) ([]domain.PaymentObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PaymentObligation
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusForfeited && p.FundsFrozen {
			result = append(result, *p)
		}
	}
	return result, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by vendor
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.VendorID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[vendorID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByVendorIDForUpdate(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error) {
	// The serializing transactor already holds the global write lock.
	return r.GetByVendorID(ctx, vendorID)
}

func (r *inMemoryWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.VendorID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	stored.Balance = w.Balance
	stored.Available = w.Available
	stored.Frozen = w.Frozen
	stored.UpdatedAt = w.UpdatedAt
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *t)
	return nil
}

func (r *inMemoryTransactionRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- { // newest first
		if r.transactions[i].VendorID == vendorID {
			all = append(all, r.transactions[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *inMemoryTransactionRepo) countByType(vendorID uuid.UUID, txType domain.TransactionType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.transactions {
		if t.VendorID == vendorID && t.Type == txType {
			count++
		}
	}
	return count
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.logs[log.Key]; exists {
		// Mirrors the unique constraint on the key column.
		return fmt.Errorf("duplicate idempotency key")
	}
	r.logs[log.Key] = log
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

// --- Serializing Transactor ---

// serializingTransactor emulates row-level locking with a single global
// mutex: each transaction holds it from Begin until Commit or Rollback,
// which serializes the locked wallet read-modify-write sections exactly like
// SELECT ... FOR UPDATE does against one contended row.
type serializingTransactor struct {
	mu sync.Mutex
}

func newSerializingTransactor() *serializingTransactor {
	return &serializingTransactor{}
}

func (t *serializingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockedTx{unlock: &t.mu}, nil
}

// lockedTx releases the transactor lock exactly once, on Commit or Rollback,
// whichever comes first.
type lockedTx struct {
	unlock *sync.Mutex
	once   sync.Once
}

func (t *lockedTx) release() {
	t.once.Do(t.unlock.Unlock)
}

func (t *lockedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockedTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *lockedTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *lockedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockedTx) Conn() *pgx.Conn { return nil }
