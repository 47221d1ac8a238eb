package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Update holds the write lock for the whole transaction, so transactions are serial.
type Storage struct {
	mu sync.RWMutex

	players     map[model.Address]*model.PlayerRecord
	playerOrder []model.Address
	pools       []*model.Pool // indexed by pool id
	playerPools map[model.Address][]model.PoolID
	nonces      map[model.Nonce]model.UsedNonce
	balances    map[model.Address]model.Amount
	allowances  map[allowanceKey]model.Amount
}

type allowanceKey struct {
	owner   model.Address
	spender model.Address
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:     make(map[model.Address]*model.PlayerRecord),
		playerPools: make(map[model.Address][]model.PoolID),
		nonces:      make(map[model.Nonce]model.UsedNonce),
		balances:    make(map[model.Address]model.Amount),
		allowances:  make(map[allowanceKey]model.Amount),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Update(ctx context.Context, fn storage.TxFunc) error {
	if tx, ok := storage.TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTxn(s, false)
	if err := fn(storage.WithTx(ctx, tx), tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Storage) View(ctx context.Context, fn storage.TxFunc) error {
	if tx, ok := storage.TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx := newTxn(s, true)
	return fn(storage.WithTx(ctx, tx), tx)
}

func (s *Storage) Close() error {
	return nil
}

// txn stages writes on top of the committed state
type txn struct {
	s        *Storage
	readOnly bool

	players     map[model.Address]*model.PlayerRecord
	newPlayers  []model.Address
	pools       map[model.PoolID]*model.Pool
	playerPools map[model.Address][]model.PoolID
	nonces      map[model.Nonce]model.UsedNonce
	pruned      map[model.Nonce]bool
	balances    map[model.Address]model.Amount
	allowances  map[allowanceKey]model.Amount
}

var _ storage.Tx = (*txn)(nil)

func newTxn(s *Storage, readOnly bool) *txn {
	return &txn{
		s:           s,
		readOnly:    readOnly,
		players:     make(map[model.Address]*model.PlayerRecord),
		pools:       make(map[model.PoolID]*model.Pool),
		playerPools: make(map[model.Address][]model.PoolID),
		nonces:      make(map[model.Nonce]model.UsedNonce),
		pruned:      make(map[model.Nonce]bool),
		balances:    make(map[model.Address]model.Amount),
		allowances:  make(map[allowanceKey]model.Amount),
	}
}

func (t *txn) writable() error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

// commit applies the staged writes. It runs with the write lock held.
func (t *txn) commit() error {
	s := t.s

	ids := make([]model.PoolID, 0, len(t.pools))
	for id := range t.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		switch {
		case int(id) < len(s.pools):
			s.pools[id] = t.pools[id]
		case int(id) == len(s.pools):
			s.pools = append(s.pools, t.pools[id])
		default:
			return fmt.Errorf("memory: pool id %d leaves a gap after %d pools", id, len(s.pools))
		}
	}

	for addr, rec := range t.players {
		s.players[addr] = rec
	}
	s.playerOrder = append(s.playerOrder, t.newPlayers...)

	for addr, ids := range t.playerPools {
		s.playerPools[addr] = append(s.playerPools[addr], ids...)
	}
	for n := range t.pruned {
		delete(s.nonces, n)
	}
	for n, used := range t.nonces {
		s.nonces[n] = used
	}
	for addr, amount := range t.balances {
		s.balances[addr] = amount
	}
	for key, amount := range t.allowances {
		s.allowances[key] = amount
	}
	return nil
}

// Player operations

func (t *txn) GetPlayer(ctx context.Context, player model.Address) (*model.PlayerRecord, error) {
	if rec, ok := t.players[player]; ok {
		return rec.Clone(), nil
	}
	rec, ok := t.s.players[player]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rec.Clone(), nil
}

func (t *txn) SavePlayer(ctx context.Context, rec *model.PlayerRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, staged := t.players[rec.Player]
	_, committed := t.s.players[rec.Player]
	if !staged && !committed {
		t.newPlayers = append(t.newPlayers, rec.Player)
	}
	t.players[rec.Player] = rec.Clone()
	return nil
}

func (t *txn) PlayerCount(ctx context.Context) (uint64, error) {
	return uint64(len(t.s.playerOrder) + len(t.newPlayers)), nil
}

func (t *txn) ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	order := make([]model.Address, 0, len(t.s.playerOrder)+len(t.newPlayers))
	order = append(order, t.s.playerOrder...)
	order = append(order, t.newPlayers...)

	records := make([]*model.PlayerRecord, 0, len(order))
	for _, addr := range order {
		rec, err := t.GetPlayer(ctx, addr)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Pool operations

func (t *txn) GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error) {
	if pool, ok := t.pools[id]; ok {
		return pool.Clone(), nil
	}
	if int(id) >= len(t.s.pools) {
		return nil, model.ErrPoolNotFound
	}
	return t.s.pools[id].Clone(), nil
}

func (t *txn) SavePool(ctx context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.pools[pool.ID] = pool.Clone()
	return nil
}

func (t *txn) PoolCount(ctx context.Context) (uint64, error) {
	count := uint64(len(t.s.pools))
	for id := range t.pools {
		if uint64(id)+1 > count {
			count = uint64(id) + 1
		}
	}
	return count, nil
}

func (t *txn) ListPools(ctx context.Context) ([]*model.Pool, error) {
	count, _ := t.PoolCount(ctx)
	pools := make([]*model.Pool, 0, count)
	for id := uint64(0); id < count; id++ {
		pool, err := t.GetPool(ctx, model.PoolID(id))
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// Player pool index

func (t *txn) AddPlayerPool(ctx context.Context, player model.Address, id model.PoolID) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.playerPools[player] = append(t.playerPools[player], id)
	return nil
}

func (t *txn) GetPlayerPools(ctx context.Context, player model.Address) ([]model.PoolID, error) {
	ids := make([]model.PoolID, 0, len(t.s.playerPools[player])+len(t.playerPools[player]))
	ids = append(ids, t.s.playerPools[player]...)
	ids = append(ids, t.playerPools[player]...)
	return ids, nil
}

// Nonce operations

func (t *txn) IsNonceUsed(ctx context.Context, nonce model.Nonce) (bool, error) {
	if _, ok := t.nonces[nonce]; ok {
		return true, nil
	}
	if t.pruned[nonce] {
		return false, nil
	}
	_, ok := t.s.nonces[nonce]
	return ok, nil
}

func (t *txn) MarkNonceUsed(ctx context.Context, used model.UsedNonce) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.nonces[used.Nonce] = used
	return nil
}

func (t *txn) PruneNonces(ctx context.Context, claimedBefore time.Time) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	removed := 0
	for n, used := range t.s.nonces {
		if used.ClaimedAt.Before(claimedBefore) && !t.pruned[n] {
			t.pruned[n] = true
			removed++
		}
	}
	for n, used := range t.nonces {
		if used.ClaimedAt.Before(claimedBefore) {
			delete(t.nonces, n)
			if _, committed := t.s.nonces[n]; !committed {
				removed++
			}
		}
	}
	return removed, nil
}

// Token ledger

func (t *txn) GetBalance(ctx context.Context, owner model.Address) (model.Amount, error) {
	if amount, ok := t.balances[owner]; ok {
		return amount, nil
	}
	return t.s.balances[owner], nil
}

func (t *txn) SetBalance(ctx context.Context, owner model.Address, amount model.Amount) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.balances[owner] = amount
	return nil
}

func (t *txn) GetAllowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	key := allowanceKey{owner: owner, spender: spender}
	if amount, ok := t.allowances[key]; ok {
		return amount, nil
	}
	return t.s.allowances[key], nil
}

func (t *txn) SetAllowance(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.allowances[allowanceKey{owner: owner, spender: spender}] = amount
	return nil
}
