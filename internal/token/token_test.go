package token

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/storage/memory"
	"github.com/mcoot/reflexpool/internal/testutil"
)

var (
	alice  = model.MustParseAddress("0xa11ce00000000000000000000000000000000001")
	bob    = model.MustParseAddress("0xb0b0000000000000000000000000000000000002")
	escrow = model.MustParseAddress("0xe5c0000000000000000000000000000000000003")
)

type LedgerSuite struct {
	suite.Suite
	storage *memory.Storage
	ledger  *Ledger
	ctx     context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.storage = memory.New()
	s.ledger = NewLedger(s.storage, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *LedgerSuite) balance(owner model.Address) model.Amount {
	b, err := s.ledger.BalanceOf(s.ctx, owner)
	s.Require().NoError(err)
	return b
}

func (s *LedgerSuite) TestMintAndTransfer() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.ledger.Transfer(s.ctx, alice, bob, 40))

	s.Equal(model.Amount(60), s.balance(alice))
	s.Equal(model.Amount(40), s.balance(bob))
}

func (s *LedgerSuite) TestTransferInsufficientBalance() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 10))

	err := s.ledger.Transfer(s.ctx, alice, bob, 11)
	s.ErrorIs(err, model.ErrInsufficientBalance)
	s.Equal(model.Amount(10), s.balance(alice))
	s.Zero(s.balance(bob))
}

func (s *LedgerSuite) TestTransferFromConsumesAllowance() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.ledger.Approve(s.ctx, alice, escrow, 30))

	s.Require().NoError(s.ledger.TransferFrom(s.ctx, escrow, alice, escrow, 25))

	allowance, err := s.ledger.Allowance(s.ctx, alice, escrow)
	s.Require().NoError(err)
	s.Equal(model.Amount(5), allowance)
	s.Equal(model.Amount(75), s.balance(alice))
	s.Equal(model.Amount(25), s.balance(escrow))
}

func (s *LedgerSuite) TestTransferFromInsufficientAllowance() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.ledger.Approve(s.ctx, alice, escrow, 5))

	err := s.ledger.TransferFrom(s.ctx, escrow, alice, escrow, 10)
	s.ErrorIs(err, model.ErrInsufficientAllowance)
	s.Equal(model.Amount(100), s.balance(alice))
}

func (s *LedgerSuite) TestApproveReplacesAllowance() {
	s.Require().NoError(s.ledger.Approve(s.ctx, alice, escrow, 50))
	s.Require().NoError(s.ledger.Approve(s.ctx, alice, escrow, 7))

	allowance, err := s.ledger.Allowance(s.ctx, alice, escrow)
	s.Require().NoError(err)
	s.Equal(model.Amount(7), allowance)
}

func (s *LedgerSuite) TestMintOverflow() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, math.MaxUint64))
	s.ErrorIs(s.ledger.Mint(s.ctx, alice, 1), model.ErrAmountOverflow)
}

func (s *LedgerSuite) TestTransferJoinsEnclosingTransaction() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 100))

	err := s.storage.Update(s.ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.ledger.Transfer(ctx, alice, bob, 100); err != nil {
			return err
		}
		return model.ErrPoolNotOpen
	})
	s.ErrorIs(err, model.ErrPoolNotOpen)

	s.Equal(model.Amount(100), s.balance(alice))
	s.Zero(s.balance(bob))
}

func (s *LedgerSuite) TestSelfTransferKeepsBalance() {
	s.Require().NoError(s.ledger.Mint(s.ctx, alice, 10))
	s.Require().NoError(s.ledger.Transfer(s.ctx, alice, alice, 10))
	s.Equal(model.Amount(10), s.balance(alice))
}
