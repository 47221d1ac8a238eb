package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/reflexpool/internal/model"
)

var (
	// ErrConflict is returned when a transaction lost a race and could not be committed
	ErrConflict = errors.New("storage: transaction conflict")
	// ErrReadOnly is returned when a write is attempted inside View
	ErrReadOnly = errors.New("storage: write in read-only transaction")
)

// TxFunc is the body of a transaction. The context it receives carries the
// transaction, so nested Update/View calls made with it join the same transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Storage defines the interface for data persistence.
//
// Update runs fn in a serializable read-write transaction: either every write made
// through tx is committed or none is. View runs fn against a consistent snapshot.
type Storage interface {
	Update(ctx context.Context, fn TxFunc) error
	View(ctx context.Context, fn TxFunc) error
	Close() error
}

// Tx is the set of operations available inside a transaction
type Tx interface {
	// Player operations
	GetPlayer(ctx context.Context, player model.Address) (*model.PlayerRecord, error)
	SavePlayer(ctx context.Context, rec *model.PlayerRecord) error
	PlayerCount(ctx context.Context) (uint64, error)
	// ListPlayers returns every record in registration order
	ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error)

	// Pool operations
	GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error)
	SavePool(ctx context.Context, pool *model.Pool) error
	PoolCount(ctx context.Context) (uint64, error)
	// ListPools returns every pool in id order
	ListPools(ctx context.Context) ([]*model.Pool, error)

	// Player to pool index (created or joined), insertion order
	AddPlayerPool(ctx context.Context, player model.Address, id model.PoolID) error
	GetPlayerPools(ctx context.Context, player model.Address) ([]model.PoolID, error)

	// Nonce operations
	IsNonceUsed(ctx context.Context, nonce model.Nonce) (bool, error)
	MarkNonceUsed(ctx context.Context, used model.UsedNonce) error
	// PruneNonces deletes nonces whose claim timestamp is before the cutoff
	PruneNonces(ctx context.Context, claimedBefore time.Time) (int, error)

	// Payment token ledger
	GetBalance(ctx context.Context, owner model.Address) (model.Amount, error)
	SetBalance(ctx context.Context, owner model.Address, amount model.Amount) error
	GetAllowance(ctx context.Context, owner, spender model.Address) (model.Amount, error)
	SetAllowance(ctx context.Context, owner, spender model.Address, amount model.Amount) error
}

type txContextKey struct{}

// WithTx returns a context carrying tx
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(Tx)
	return tx, ok
}
