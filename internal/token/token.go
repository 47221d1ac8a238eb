// Package token implements the payment token used for pool entry fees.
//
// Ledger keeps balances and allowances in the same storage as pools, so a
// transfer made inside a pool operation commits or rolls back with it.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Token is the interface pools use to move entry fees and prizes
type Token interface {
	Address() model.Address
	Symbol() string
	Decimals() uint8
	BalanceOf(ctx context.Context, owner model.Address) (model.Amount, error)
	Allowance(ctx context.Context, owner, spender model.Address) (model.Amount, error)
	// Approve sets (not adds to) the amount spender may move out of owner's balance
	Approve(ctx context.Context, owner, spender model.Address, amount model.Amount) error
	Transfer(ctx context.Context, from, to model.Address, amount model.Amount) error
	// TransferFrom moves amount from one account to another using spender's allowance
	TransferFrom(ctx context.Context, spender, from, to model.Address, amount model.Amount) error
}

// Config describes the token
type Config struct {
	Address  model.Address
	Symbol   string
	Decimals uint8
}

// DefaultConfig returns the USDC token on Base
func DefaultConfig() Config {
	return Config{
		Address:  model.MustParseAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		Symbol:   "USDC",
		Decimals: 6,
	}
}

// Ledger is a Token backed by storage.Storage
type Ledger struct {
	storage storage.Storage
	cfg     Config
	logger  *slog.Logger
}

// Ensure Ledger implements Token
var _ Token = (*Ledger)(nil)

// NewLedger creates a new Ledger
func NewLedger(storage storage.Storage, cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		storage: storage,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "token")),
	}
}

func (l *Ledger) Address() model.Address { return l.cfg.Address }
func (l *Ledger) Symbol() string         { return l.cfg.Symbol }
func (l *Ledger) Decimals() uint8        { return l.cfg.Decimals }

func (l *Ledger) BalanceOf(ctx context.Context, owner model.Address) (model.Amount, error) {
	var balance model.Amount
	err := l.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		balance, err = tx.GetBalance(ctx, owner)
		return err
	})
	return balance, err
}

func (l *Ledger) Allowance(ctx context.Context, owner, spender model.Address) (model.Amount, error) {
	var allowance model.Amount
	err := l.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		allowance, err = tx.GetAllowance(ctx, owner, spender)
		return err
	})
	return allowance, err
}

func (l *Ledger) Approve(ctx context.Context, owner, spender model.Address, amount model.Amount) error {
	err := l.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.SetAllowance(ctx, owner, spender, amount)
	})
	if err != nil {
		return err
	}
	l.logger.Debug("allowance approved",
		slog.String("owner", owner.String()),
		slog.String("spender", spender.String()),
		slog.Uint64("amount", uint64(amount)),
	)
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to model.Address, amount model.Amount) error {
	return l.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		return move(ctx, tx, from, to, amount)
	})
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to model.Address, amount model.Amount) error {
	return l.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		allowance, err := tx.GetAllowance(ctx, from, spender)
		if err != nil {
			return err
		}
		if allowance < amount {
			return fmt.Errorf("%w: %s allowed %d, need %d", model.ErrInsufficientAllowance, spender, allowance, amount)
		}
		if err := move(ctx, tx, from, to, amount); err != nil {
			return err
		}
		return tx.SetAllowance(ctx, from, spender, allowance-amount)
	})
}

// Mint credits new tokens to an account. Only the dev faucet and tests use it.
func (l *Ledger) Mint(ctx context.Context, to model.Address, amount model.Amount) error {
	err := l.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		return credit(ctx, tx, to, amount)
	})
	if err != nil {
		return err
	}
	l.logger.Info("tokens minted",
		slog.String("to", to.String()),
		slog.Uint64("amount", uint64(amount)),
	)
	return nil
}

func move(ctx context.Context, tx storage.Tx, from, to model.Address, amount model.Amount) error {
	balance, err := tx.GetBalance(ctx, from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s has %d, need %d", model.ErrInsufficientBalance, from, balance, amount)
	}
	if from == to {
		return nil
	}
	if err := tx.SetBalance(ctx, from, balance-amount); err != nil {
		return err
	}
	return credit(ctx, tx, to, amount)
}

func credit(ctx context.Context, tx storage.Tx, to model.Address, amount model.Amount) error {
	balance, err := tx.GetBalance(ctx, to)
	if err != nil {
		return err
	}
	if uint64(balance) > math.MaxUint64-uint64(amount) {
		return model.ErrAmountOverflow
	}
	return tx.SetBalance(ctx, to, balance+amount)
}
