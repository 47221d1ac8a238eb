package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Transactions are optimistic: reads go straight to Redis under WATCH of the
// version key, writes are buffered and flushed in one MULTI/EXEC that also bumps
// the version. A transaction that loses the race is re-run from scratch, so fn
// must not have side effects outside the transaction.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Update(ctx context.Context, fn storage.TxFunc) error {
	return s.run(ctx, false, fn)
}

func (s *Storage) View(ctx context.Context, fn storage.TxFunc) error {
	return s.run(ctx, true, fn)
}

func (s *Storage) run(ctx context.Context, readOnly bool, fn storage.TxFunc) error {
	if tx, ok := storage.TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	attempts := s.cfg.MaxTxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := storage.Backoff(ctx, i-1, s.cfg.RetryBackoff, s.cfg.MaxRetryBackoff); err != nil {
				return err
			}
		}
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := newTxn(rtx, readOnly)
			if err := fn(storage.WithTx(ctx, t), t); err != nil {
				return err
			}
			// Reads must happen before MULTI
			if len(t.pools) > 0 {
				if _, err := t.committedPoolCount(ctx); err != nil {
					return err
				}
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return t.flush(ctx, pipe)
			})
			return err
		}, versionKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return storage.ErrConflict
}

// txn buffers writes on top of a watched Redis connection
type txn struct {
	rtx      *redis.Tx
	readOnly bool

	players     map[model.Address]*model.PlayerRecord
	newPlayers  []model.Address
	pools       map[model.PoolID]*model.Pool
	playerPools map[model.Address][]model.PoolID
	nonces      map[model.Nonce]model.UsedNonce
	pruned      map[model.Nonce]bool
	balances    map[model.Address]model.Amount
	allowances  map[[2]model.Address]model.Amount

	// committed pool count, loaded lazily
	poolCount *uint64
}

var _ storage.Tx = (*txn)(nil)

func newTxn(rtx *redis.Tx, readOnly bool) *txn {
	return &txn{
		rtx:         rtx,
		readOnly:    readOnly,
		players:     make(map[model.Address]*model.PlayerRecord),
		pools:       make(map[model.PoolID]*model.Pool),
		playerPools: make(map[model.Address][]model.PoolID),
		nonces:      make(map[model.Nonce]model.UsedNonce),
		pruned:      make(map[model.Nonce]bool),
		balances:    make(map[model.Address]model.Amount),
		allowances:  make(map[[2]model.Address]model.Amount),
	}
}

func (t *txn) writable() error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

// flush queues every buffered write. A read-only transaction still queues a
// PING so EXEC validates the WATCH and the snapshot is consistent.
func (t *txn) flush(ctx context.Context, pipe redis.Pipeliner) error {
	if t.readOnly {
		pipe.Ping(ctx)
		return nil
	}
	pipe.Incr(ctx, versionKey())

	for addr, rec := range t.players {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		pipe.Set(ctx, playerKey(addr), data, 0)
	}
	for _, addr := range t.newPlayers {
		pipe.RPush(ctx, playerListKey(), addr.String())
	}

	if len(t.pools) > 0 {
		count := *t.poolCount
		ids := make([]model.PoolID, 0, len(t.pools))
		for id := range t.pools {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if uint64(id) > count {
				return fmt.Errorf("redis: pool id %d leaves a gap after %d pools", id, count)
			}
			if uint64(id) == count {
				count++
			}
			data, err := json.Marshal(t.pools[id])
			if err != nil {
				return err
			}
			pipe.Set(ctx, poolKey(id), data, 0)
		}
		pipe.Set(ctx, poolCountKey(), count, 0)
	}

	for addr, ids := range t.playerPools {
		values := make([]interface{}, len(ids))
		for i, id := range ids {
			values[i] = id.String()
		}
		pipe.RPush(ctx, playerPoolsKey(addr), values...)
	}

	for n := range t.pruned {
		pipe.Del(ctx, nonceKey(n))
		pipe.ZRem(ctx, nonceIndexKey(), n.String())
	}
	for n, used := range t.nonces {
		data, err := json.Marshal(used)
		if err != nil {
			return err
		}
		pipe.Set(ctx, nonceKey(n), data, 0)
		pipe.ZAdd(ctx, nonceIndexKey(), redis.Z{Score: float64(used.ClaimedAt.UnixMilli()), Member: n.String()})
	}

	for addr, amount := range t.balances {
		pipe.Set(ctx, balanceKey(addr), uint64(amount), 0)
	}
	for key, amount := range t.allowances {
		pipe.Set(ctx, allowanceKey(key[0], key[1]), uint64(amount), 0)
	}
	return nil
}

// Player operations

func (t *txn) GetPlayer(ctx context.Context, player model.Address) (*model.PlayerRecord, error) {
	if rec, ok := t.players[player]; ok {
		return rec.Clone(), nil
	}
	data, err := t.rtx.Get(ctx, playerKey(player)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rec model.PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *txn) SavePlayer(ctx context.Context, rec *model.PlayerRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, staged := t.players[rec.Player]; !staged {
		exists, err := t.rtx.Exists(ctx, playerKey(rec.Player)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			t.newPlayers = append(t.newPlayers, rec.Player)
		}
	}
	t.players[rec.Player] = rec.Clone()
	return nil
}

func (t *txn) PlayerCount(ctx context.Context) (uint64, error) {
	n, err := t.rtx.LLen(ctx, playerListKey()).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n) + uint64(len(t.newPlayers)), nil
}

func (t *txn) ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	committed, err := t.rtx.LRange(ctx, playerListKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	order := make([]model.Address, 0, len(committed)+len(t.newPlayers))
	for _, raw := range committed {
		addr, err := model.ParseAddress(raw)
		if err != nil {
			return nil, err
		}
		order = append(order, addr)
	}
	order = append(order, t.newPlayers...)

	// Fetch the records not shadowed by a staged write in one MGET
	var keys []string
	for _, addr := range order {
		if _, ok := t.players[addr]; !ok {
			keys = append(keys, playerKey(addr))
		}
	}
	loaded := make(map[string]*model.PlayerRecord, len(keys))
	if len(keys) > 0 {
		values, err := t.rtx.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for i, val := range values {
			if val == nil {
				continue
			}
			var rec model.PlayerRecord
			if err := json.Unmarshal([]byte(val.(string)), &rec); err != nil {
				return nil, err
			}
			loaded[keys[i]] = &rec
		}
	}

	records := make([]*model.PlayerRecord, 0, len(order))
	for _, addr := range order {
		if rec, ok := t.players[addr]; ok {
			records = append(records, rec.Clone())
			continue
		}
		rec, ok := loaded[playerKey(addr)]
		if !ok {
			return nil, fmt.Errorf("redis: player %s indexed but missing", addr)
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
	data, err := t.rtx.Get(ctx, poolKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPoolNotFound
		}
		return nil, err
	}

	var pool model.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

func (t *txn) SavePool(ctx context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.pools[pool.ID] = pool.Clone()
	return nil
}

func (t *txn) committedPoolCount(ctx context.Context) (uint64, error) {
	if t.poolCount != nil {
		return *t.poolCount, nil
	}
	count, err := t.rtx.Get(ctx, poolCountKey()).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	t.poolCount = &count
	return count, nil
}

func (t *txn) PoolCount(ctx context.Context) (uint64, error) {
	count, err := t.committedPoolCount(ctx)
	if err != nil {
		return 0, err
	}
	for id := range t.pools {
		if uint64(id)+1 > count {
			count = uint64(id) + 1
		}
	}
	return count, nil
}

func (t *txn) ListPools(ctx context.Context) ([]*model.Pool, error) {
	count, err := t.PoolCount(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	for id := uint64(0); id < count; id++ {
		if _, ok := t.pools[model.PoolID(id)]; !ok {
			keys = append(keys, poolKey(model.PoolID(id)))
		}
	}
	loaded := make(map[model.PoolID]*model.Pool, len(keys))
	if len(keys) > 0 {
		values, err := t.rtx.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for _, val := range values {
			if val == nil {
				continue
			}
			var pool model.Pool
			if err := json.Unmarshal([]byte(val.(string)), &pool); err != nil {
				return nil, err
			}
			loaded[pool.ID] = &pool
		}
	}

	pools := make([]*model.Pool, 0, count)
	for id := uint64(0); id < count; id++ {
		pid := model.PoolID(id)
		if pool, ok := t.pools[pid]; ok {
			pools = append(pools, pool.Clone())
			continue
		}
		pool, ok := loaded[pid]
		if !ok {
			return nil, fmt.Errorf("redis: pool %d counted but missing", id)
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
	raw, err := t.rtx.LRange(ctx, playerPoolsKey(player), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]model.PoolID, 0, len(raw)+len(t.playerPools[player]))
	for _, r := range raw {
		id, err := model.ParsePoolID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
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
	exists, err := t.rtx.Exists(ctx, nonceKey(nonce)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
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
	members, err := t.rtx.ZRangeByScore(ctx, nonceIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(claimedBefore.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	removed := 0
	committed := make(map[model.Nonce]bool, len(members))
	for _, m := range members {
		n, err := model.ParseNonce(m)
		if err != nil {
			return 0, err
		}
		committed[n] = true
		if !t.pruned[n] {
			t.pruned[n] = true
			removed++
		}
	}
	for n, used := range t.nonces {
		if used.ClaimedAt.Before(claimedBefore) {
			delete(t.nonces, n)
			if !committed[n] {
				removed++
			}
		}
	}
	return removed, nil
}

// Token ledger

func (t *txn) getAmount(ctx context.Context, key string) (model.Amount, error) {
	v, err := t.rtx.Get(ctx, key).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return model.Amount(v), nil
}

func (t *txn) GetBalance(ctx context.Context, owner model.Address) (model.Amount, error) {
	if amount, ok := t.balances[owner]; ok {
		return amount, nil
	}
	return t.getAmount(ctx, balanceKey(owner))
}

func (t *txn) SetBalance(ctx context.Context, owner model.Address, amount model.Amount) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.balances[owner] = amount
	return nil
}

func (t *txn) GetAllowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	if amount, ok := t.allowances[[2]model.Address{owner, spender}]; ok {
		return amount, nil
	}
	return t.getAmount(ctx, allowanceKey(owner, spender))
}

func (t *txn) SetAllowance(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.allowances[[2]model.Address{owner, spender}] = amount
	return nil
}
