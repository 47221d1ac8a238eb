package factory

import (
	"context"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mcoot/reflexpool/internal/dependencies/mocks"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/verifier"
	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/storage/memory"
	"github.com/mcoot/reflexpool/internal/testutil"
)

// TestSecret signs sessions in test apps
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	// Events records everything published
	Events *events.Recorder

	nonce uint64
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// admins are granted pool and session admin rights.
func NewTestApp(admins ...model.Address) *TestApp {
	return NewTestAppWithStorage(memory.New(), admins...)
}

// NewTestAppWithStorage is NewTestApp over the given storage backend. The app
// takes ownership of store and closes it on Close.
func NewTestAppWithStorage(store storage.Storage, admins ...model.Address) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	recorder := events.NewRecorder()

	cfg := withDefaults(Config{})
	cfg.AuthConfig.Secret = []byte(TestSecret)
	cfg.AuthConfig.AdminAddresses = admins
	cfg.PoolConfig.AdminAddresses = admins

	app, err := newWithDependencies(store, mockClock, mockRandom, cfg, []events.Publisher{recorder}, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Events:     recorder,
	}
}

// Fund mints amount to player and approves the pool's escrow to take it
func (t *TestApp) Fund(ctx context.Context, player, spender model.Address, amount model.Amount) error {
	if err := t.Token.Mint(ctx, player, amount); err != nil {
		return err
	}
	return t.Token.Approve(ctx, player, spender, amount)
}

// SignedClaim builds a fresh claim from key, timestamped now, with a unique nonce
func (t *TestApp) SignedClaim(key *secp256k1.PrivateKey, reactionTime model.ReactionTime) model.ReactionClaim {
	t.nonce++
	var nonce model.Nonce
	copy(nonce[24:], ethcrypto.Uint256(t.nonce)[24:])
	return verifier.SignClaim(key, model.ReactionClaim{
		Player:       ethcrypto.PubkeyToAddress(key.PubKey()),
		ReactionTime: reactionTime,
		Timestamp:    t.MockClock.Now(),
		Nonce:        nonce,
	})
}
