package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Storage is a SQL implementation of the storage interface, backed by SQLite or
// PostgreSQL. Player and pool records are stored as JSON documents keyed by
// their identifiers; the token ledger and nonces get their own tables.
type Storage struct {
	db      *sql.DB
	dialect Dialect
	cfg     Config
}

// Open connects to the configured database and creates any missing tables
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	var dialect Dialect
	var dsn string

	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql":
		dialect = NewPostgresDialect()
		dsn = cfg.URL
	case "sqlite", "sqlite3", "":
		dialect = NewSQLiteDialect()
		dsn = cfg.Path
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	s := &Storage{db: db, dialect: dialect, cfg: cfg}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
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
		err := s.attempt(ctx, readOnly, fn)
		if err != nil && s.dialect.IsRetryable(err) {
			continue
		}
		return err
	}
	return storage.ErrConflict
}

func (s *Storage) attempt(ctx context.Context, readOnly bool, fn storage.TxFunc) error {
	sqlTx, err := s.db.BeginTx(ctx, s.dialect.TxOptions(readOnly))
	if err != nil {
		return err
	}
	t := &txn{tx: sqlTx, dialect: s.dialect, readOnly: readOnly}

	if err := fn(storage.WithTx(ctx, t), t); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// txn wraps sql.Tx with dialect-aware query helpers
type txn struct {
	tx       *sql.Tx
	dialect  Dialect
	readOnly bool
}

var _ storage.Tx = (*txn)(nil)

func (t *txn) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if t.readOnly {
		return nil, storage.ErrReadOnly
	}
	return t.tx.ExecContext(ctx, t.dialect.RewriteQuery(query), args...)
}

func (t *txn) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.RewriteQuery(query), args...)
}

func (t *txn) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.RewriteQuery(query), args...)
}

func (t *txn) count(ctx context.Context, query string, args ...interface{}) (uint64, error) {
	var n int64
	if err := t.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Player operations

func (t *txn) GetPlayer(ctx context.Context, player model.Address) (*model.PlayerRecord, error) {
	var data string
	err := t.queryRow(ctx, `SELECT record FROM players WHERE address = ?`, player.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rec model.PlayerRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *txn) SavePlayer(ctx context.Context, rec *model.PlayerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `
		INSERT INTO players (address, seq, record) VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET record = excluded.record`,
		rec.Player.String(), int64(rec.Seq), string(data))
	return err
}

func (t *txn) PlayerCount(ctx context.Context) (uint64, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM players`)
}

func (t *txn) ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	rows, err := t.query(ctx, `SELECT record FROM players ORDER BY seq, address`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*model.PlayerRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec model.PlayerRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Pool operations

func (t *txn) GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error) {
	var data string
	err := t.queryRow(ctx, `SELECT record FROM pools WHERE id = ?`, int64(id)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPoolNotFound
		}
		return nil, err
	}

	var pool model.Pool
	if err := json.Unmarshal([]byte(data), &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

func (t *txn) SavePool(ctx context.Context, pool *model.Pool) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	count, err := t.PoolCount(ctx)
	if err != nil {
		return err
	}
	if uint64(pool.ID) > count {
		return fmt.Errorf("sqldb: pool id %d leaves a gap after %d pools", pool.ID, count)
	}

	data, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `
		INSERT INTO pools (id, address, record) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET record = excluded.record`,
		int64(pool.ID), pool.Address.String(), string(data))
	return err
}

func (t *txn) PoolCount(ctx context.Context) (uint64, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM pools`)
}

func (t *txn) ListPools(ctx context.Context) ([]*model.Pool, error) {
	rows, err := t.query(ctx, `SELECT record FROM pools ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pools []*model.Pool
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var pool model.Pool
		if err := json.Unmarshal([]byte(data), &pool); err != nil {
			return nil, err
		}
		pools = append(pools, &pool)
	}
	return pools, rows.Err()
}

// Player pool index

func (t *txn) AddPlayerPool(ctx context.Context, player model.Address, id model.PoolID) error {
	_, err := t.exec(ctx, `INSERT INTO player_pools (player, pool_id) VALUES (?, ?)`,
		player.String(), int64(id))
	return err
}

func (t *txn) GetPlayerPools(ctx context.Context, player model.Address) ([]model.PoolID, error) {
	rows, err := t.query(ctx, `SELECT pool_id FROM player_pools WHERE player = ? ORDER BY pos`, player.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []model.PoolID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.PoolID(id))
	}
	return ids, rows.Err()
}

// Nonce operations

func (t *txn) IsNonceUsed(ctx context.Context, nonce model.Nonce) (bool, error) {
	n, err := t.count(ctx, `SELECT COUNT(*) FROM used_nonces WHERE nonce = ?`, nonce.String())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *txn) MarkNonceUsed(ctx context.Context, used model.UsedNonce) error {
	_, err := t.exec(ctx, `
		INSERT INTO used_nonces (nonce, player, claimed_at, consumed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (nonce) DO UPDATE SET player = excluded.player,
			claimed_at = excluded.claimed_at, consumed_at = excluded.consumed_at`,
		used.Nonce.String(), used.Player.String(), used.ClaimedAt.UnixMilli(), used.ConsumedAt.UnixMilli())
	return err
}

func (t *txn) PruneNonces(ctx context.Context, claimedBefore time.Time) (int, error) {
	res, err := t.exec(ctx, `DELETE FROM used_nonces WHERE claimed_at < ?`, claimedBefore.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Token ledger

func (t *txn) amount(ctx context.Context, query string, args ...interface{}) (model.Amount, error) {
	var raw string
	err := t.queryRow(ctx, query, args...).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sqldb: corrupt amount %q: %w", raw, err)
	}
	return model.Amount(v), nil
}

func (t *txn) GetBalance(ctx context.Context, owner model.Address) (model.Amount, error) {
	return t.amount(ctx, `SELECT amount FROM token_balances WHERE owner = ?`, owner.String())
}

func (t *txn) SetBalance(ctx context.Context, owner model.Address, amount model.Amount) error {
	_, err := t.exec(ctx, `
		INSERT INTO token_balances (owner, amount) VALUES (?, ?)
		ON CONFLICT (owner) DO UPDATE SET amount = excluded.amount`,
		owner.String(), strconv.FormatUint(uint64(amount), 10))
	return err
}

func (t *txn) GetAllowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	return t.amount(ctx, `SELECT amount FROM token_allowances WHERE owner = ? AND spender = ?`,
		owner.String(), spender.String())
}

func (t *txn) SetAllowance(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	_, err := t.exec(ctx, `
		INSERT INTO token_allowances (owner, spender, amount) VALUES (?, ?, ?)
		ON CONFLICT (owner, spender) DO UPDATE SET amount = excluded.amount`,
		owner.String(), spender.String(), strconv.FormatUint(uint64(amount), 10))
	return err
}
