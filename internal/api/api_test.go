package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/api"
	"github.com/mcoot/reflexpool/internal/api/apierr"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/factory"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/testutil"
	"github.com/mcoot/reflexpool/internal/web/sse"
)

// Well-known development keys
const (
	creatorKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	aliceKeyHex   = "59c6995e998f97a5a0044966f0945389dc9c86dae88c7a8412f4603b6b78690d"
	bobKeyHex     = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

const (
	faucetAmount = model.Amount(100_000_000)
	entryFee     = "10000000"
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithFaucet(t, faucetAmount)
}

func newTestServerWithFaucet(t *testing.T, faucet model.Amount) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		StatsService:    app.StatsService,
		VerifierService: app.VerifierService,
		PoolFactory:     app.PoolFactory,
		PoolService:     app.PoolService,
		ScenarioService: app.ScenarioService,
		Token:           app.Token,
		HubManager:      app.HubManager,
		FaucetAmount:    faucet,
	})

	return &testServer{
		t:       t,
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// wallet is a logged-in test account
type wallet struct {
	key     *secp256k1.PrivateKey
	address model.Address
	token   string
}

// login runs the challenge/sign/login exchange for a private key
func (ts *testServer) login(keyHex string) wallet {
	ts.t.Helper()

	key, err := ethcrypto.ParsePrivateKey(keyHex)
	require.NoError(ts.t, err)
	addr := ethcrypto.PubkeyToAddress(key.PubKey())

	rr := ts.request(http.MethodPost, "/api/v1/auth/challenge", map[string]any{"address": addr}, "")
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	var challenge response.Challenge
	decode(ts.t, rr, &challenge)

	sig := ethcrypto.Sign(key, ethcrypto.PersonalMessageHash([]byte(challenge.Message)))
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"address":   addr,
		"signature": ethcrypto.EncodeSignature(sig),
	}, "")
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	var session response.Session
	decode(ts.t, rr, &session)
	require.NotEmpty(ts.t, session.SessionToken)

	return wallet{key: key, address: addr, token: session.SessionToken}
}

// claimBody signs a fresh reaction claim in its wire form
func (ts *testServer) claimBody(w wallet, reactionTime model.ReactionTime) map[string]any {
	claim := ts.app.SignedClaim(w.key, reactionTime)
	return map[string]any{
		"player":        claim.Player,
		"reaction_time": claim.ReactionTime,
		"timestamp":     claim.Timestamp.Unix(),
		"nonce":         claim.Nonce,
		"signature":     ethcrypto.EncodeSignature(claim.Signature),
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) apierr.APIError {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	var resp apierr.ErrorResponse
	decode(t, rr, &resp)
	assert.Equal(t, code, resp.Error.Code)
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)

	var me response.Session
	decode(t, rr, &me)
	assert.Equal(t, alice.address, me.Address)
	assert.False(t, me.IsAdmin)
	assert.Empty(t, me.SessionToken)
}

func TestLoginRejectsWrongSigner(t *testing.T) {
	ts := newTestServer(t)

	aliceKey, err := ethcrypto.ParsePrivateKey(aliceKeyHex)
	require.NoError(t, err)
	bobKey, err := ethcrypto.ParsePrivateKey(bobKeyHex)
	require.NoError(t, err)
	addr := ethcrypto.PubkeyToAddress(aliceKey.PubKey())

	rr := ts.request(http.MethodPost, "/api/v1/auth/challenge", map[string]any{"address": addr}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var challenge response.Challenge
	decode(t, rr, &challenge)

	sig := ethcrypto.Sign(bobKey, ethcrypto.PersonalMessageHash([]byte(challenge.Message)))
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"address":   addr,
		"signature": ethcrypto.EncodeSignature(sig),
	}, "")
	apiErr := requireError(t, rr, http.StatusUnauthorized, apierr.CodeInvalidCredentials)
	assert.Empty(t, apiErr.Kind)
}

func TestLoginWithoutChallenge(t *testing.T) {
	ts := newTestServer(t)

	key, err := ethcrypto.ParsePrivateKey(aliceKeyHex)
	require.NoError(t, err)
	sig := ethcrypto.Sign(key, ethcrypto.PersonalMessageHash([]byte("anything")))

	rr := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"address":   ethcrypto.PubkeyToAddress(key.PubKey()),
		"signature": ethcrypto.EncodeSignature(sig),
	}, "")
	requireError(t, rr, http.StatusUnauthorized, apierr.CodeNoChallenge)
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/auth/logout", nil, alice.token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, alice.token)
	requireError(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/players/register"},
		{http.MethodPost, "/api/v1/players/reactions"},
		{http.MethodPost, "/api/v1/pools"},
		{http.MethodPost, "/api/v1/pools/0/join"},
		{http.MethodPost, "/api/v1/pools/0/close"},
		{http.MethodPost, "/api/v1/token/approve"},
		{http.MethodPost, "/api/v1/token/faucet"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := ts.request(rt.method, rt.path, nil, "")
			requireError(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)
		})
	}

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, "not-a-token")
	requireError(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)
}

func TestPlayerStats(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)
	bob := ts.login(bobKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/players/register", nil, alice.token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var registered response.RegisterResponse
	decode(t, rr, &registered)
	assert.True(t, registered.Created)
	assert.True(t, registered.Player.Registered)
	assert.Nil(t, registered.Player.BestReactionTime)

	// Registering again is a no-op
	rr = ts.request(http.MethodPost, "/api/v1/players/register", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &registered)
	assert.False(t, registered.Created)

	for _, ms := range []int{650, 280, 700} {
		rr = ts.request(http.MethodPost, "/api/v1/players/reactions", map[string]any{"reaction_time": ms}, alice.token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	rr = ts.request(http.MethodPost, "/api/v1/players/reactions",
		map[string]any{"reaction_time": 450, "is_win": true}, bob.token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/"+alice.address.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var player response.Player
	decode(t, rr, &player)
	require.NotNil(t, player.BestReactionTime)
	assert.Equal(t, model.ReactionTime(280), *player.BestReactionTime)
	assert.Equal(t, "280ms", player.BestFormatted)
	assert.Equal(t, uint64(3), player.TotalGames)
	assert.Equal(t, uint64(0), player.TotalWins)
	assert.Equal(t, "Gold", player.HighestBadge.Name)
	require.NotNil(t, player.LastPlayed)

	rr = ts.request(http.MethodGet, "/api/v1/players/top?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var top response.TopPlayersResponse
	decode(t, rr, &top)
	require.Len(t, top.Players, 2)
	assert.Equal(t, alice.address, top.Players[0].Address)
	assert.Equal(t, bob.address, top.Players[1].Address)
	assert.Equal(t, uint64(1), top.Players[1].TotalWins)

	rr = ts.request(http.MethodGet, "/api/v1/players/count", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var count response.CountResponse
	decode(t, rr, &count)
	assert.Equal(t, uint64(2), count.Count)
}

func TestPlayerStatsErrors(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/players/reactions", map[string]any{"reaction_time": 0}, alice.token)
	apiErr := requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidReactionTime)
	assert.Equal(t, model.KindPolicy, apiErr.Kind)

	rr = ts.request(http.MethodGet, "/api/v1/players/top?limit=0", nil, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidLimit)

	rr = ts.request(http.MethodPost, "/api/v1/players/reactions", nil, alice.token)
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestUnknownPlayerIsUnregistered(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/0x00000000000000000000000000000000000000aa", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var player response.Player
	decode(t, rr, &player)
	assert.False(t, player.Registered)
	assert.Nil(t, player.BestReactionTime)
	assert.Equal(t, "-", player.BestFormatted)
	assert.Equal(t, "None", player.HighestBadge.Name)
	assert.Nil(t, player.LastPlayed)
}

func TestBadgePreview(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		time  string
		badge string
	}{
		{"0", "Gold"},
		{"1", "Gold"},
		{"299", "Gold"},
		{"300", "Silver"},
		{"899", "Bronze"},
		{"900", "None"},
		{"1270", "None"},
	}
	for _, tt := range tests {
		t.Run(tt.time, func(t *testing.T) {
			rr := ts.request(http.MethodGet, "/api/v1/badges/preview?time="+tt.time, nil, "")
			require.Equal(t, http.StatusOK, rr.Code)
			var preview response.BadgePreview
			decode(t, rr, &preview)
			assert.Equal(t, tt.badge, preview.Badge.Name)
		})
	}

	for _, raw := range []string{"-1", "fast"} {
		rr := ts.request(http.MethodGet, "/api/v1/badges/preview?time="+raw, nil, "")
		requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidReactionTime)
	}
	rr := ts.request(http.MethodGet, "/api/v1/badges/preview", nil, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestPoolLifecycle(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)
	alice := ts.login(aliceKeyHex)
	bob := ts.login(bobKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/pools",
		map[string]any{"entry_fee": entryFee, "duration": 3600}, creator.token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pool response.Pool
	decode(t, rr, &pool)
	assert.Equal(t, model.PoolID(0), pool.ID)
	assert.Equal(t, model.PoolStatusOpen, pool.Status)
	assert.Equal(t, entryFee, pool.EntryFee.Units)
	assert.Equal(t, "10.000000", pool.EntryFee.Formatted)
	assert.Equal(t, "USDC", pool.EntryFee.Symbol)

	for _, w := range []wallet{alice, bob} {
		rr = ts.request(http.MethodPost, "/api/v1/token/faucet", nil, w.token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		rr = ts.request(http.MethodPost, "/api/v1/token/approve",
			map[string]any{"pool_id": 0, "amount": entryFee}, w.token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var allowance response.AllowanceResponse
		decode(t, rr, &allowance)
		assert.Equal(t, pool.Address, allowance.Spender)

		rr = ts.request(http.MethodPost, "/api/v1/pools/0/join", nil, w.token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = ts.request(http.MethodGet, "/api/v1/token/balance/"+alice.address.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var balance response.BalanceResponse
	decode(t, rr, &balance)
	assert.Equal(t, "90000000", balance.Balance.Units)

	// Participants cannot start someone else's pool
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/start", nil, alice.token)
	requireError(t, rr, http.StatusForbidden, apierr.CodeNotAuthorized)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/start", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &pool)
	assert.Equal(t, model.PoolStatusActive, pool.Status)
	assert.Equal(t, "20000000", pool.TotalPrize.Units)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/submit", ts.claimBody(alice, 500), alice.token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/submit", ts.claimBody(bob, 200), bob.token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// A second submission is rejected
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/submit", ts.claimBody(bob, 100), bob.token)
	requireError(t, rr, http.StatusConflict, apierr.CodeAlreadySubmitted)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/close", nil, creator.token)
	requireError(t, rr, http.StatusConflict, apierr.CodeTooEarly)

	ts.app.MockClock.Advance(time.Hour)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/close", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &pool)
	assert.Equal(t, model.PoolStatusClosed, pool.Status)
	assert.Equal(t, model.OutcomeWinner, pool.Outcome)
	require.NotNil(t, pool.Winner)
	assert.Equal(t, bob.address, *pool.Winner)
	require.NotNil(t, pool.WinningTime)
	assert.Equal(t, model.ReactionTime(200), *pool.WinningTime)

	rr = ts.request(http.MethodGet, "/api/v1/token/balance/"+bob.address.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &balance)
	assert.Equal(t, "110000000", balance.Balance.Units)

	rr = ts.request(http.MethodGet, "/api/v1/pools/0/participants", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var participants response.ParticipantsResponse
	decode(t, rr, &participants)
	require.Len(t, participants.Participants, 2)
	assert.Equal(t, alice.address, participants.Participants[0].Player)
	require.NotNil(t, participants.Participants[0].ReactionTime)
	assert.Equal(t, model.ReactionTime(500), *participants.Participants[0].ReactionTime)

	rr = ts.request(http.MethodGet, "/api/v1/players/"+bob.address.String()+"/pools", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var playerPools response.PlayerPoolsResponse
	decode(t, rr, &playerPools)
	assert.Equal(t, []model.PoolID{0}, playerPools.Pools)

	// Won pools have nothing to refund
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/refund", nil, alice.token)
	requireError(t, rr, http.StatusConflict, apierr.CodeNothingToRefund)
}

func TestRefundWhenNobodySubmits(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/pools",
		map[string]any{"entry_fee": entryFee, "duration": 60}, creator.token)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/token/faucet", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/token/approve",
		map[string]any{"pool_id": 0, "amount": entryFee}, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/join", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/start", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code)

	ts.app.MockClock.Advance(time.Minute)
	rr = ts.request(http.MethodPost, "/api/v1/pools/0/close", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code)
	var pool response.Pool
	decode(t, rr, &pool)
	assert.Equal(t, model.OutcomeNoSubmissions, pool.Outcome)
	assert.Nil(t, pool.Winner)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/refund", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var refund response.RefundResponse
	decode(t, rr, &refund)
	assert.Equal(t, entryFee, refund.Amount.Units)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/refund", nil, alice.token)
	requireError(t, rr, http.StatusConflict, apierr.CodeAlreadyRefunded)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/refund", nil, creator.token)
	requireError(t, rr, http.StatusForbidden, apierr.CodeNotParticipant)
}

func TestCreatePoolRejections(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"zero fee", map[string]any{"entry_fee": "0", "duration": 3600}, http.StatusBadRequest, apierr.CodeInvalidEntryFee},
		{"short duration", map[string]any{"entry_fee": entryFee, "duration": 59}, http.StatusBadRequest, apierr.CodeDurationTooShort},
		{"negative duration", map[string]any{"entry_fee": entryFee, "duration": -120}, http.StatusBadRequest, apierr.CodeDurationTooShort},
		// 2^55+120 seconds wraps to two minutes when multiplied out
		{"overflowing duration", map[string]any{"entry_fee": entryFee, "duration": int64(1)<<55 + 120}, http.StatusBadRequest, apierr.CodeDurationTooLong},
		{"max int64 duration", map[string]any{"entry_fee": entryFee, "duration": int64(math.MaxInt64)}, http.StatusBadRequest, apierr.CodeDurationTooLong},
		{"fractional fee", map[string]any{"entry_fee": "1.5", "duration": 3600}, http.StatusBadRequest, apierr.CodeInvalidAmount},
		{"missing fee", map[string]any{"duration": 3600}, http.StatusBadRequest, apierr.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/pools", tt.body, creator.token)
			requireError(t, rr, tt.status, tt.code)
		})
	}

	rr := ts.request(http.MethodGet, "/api/v1/pools", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list response.PoolsResponse
	decode(t, rr, &list)
	assert.Equal(t, uint64(0), list.Total)
	assert.Empty(t, list.Pools)
}

func TestJoinWithoutAllowance(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/pools",
		map[string]any{"entry_fee": entryFee, "duration": 3600}, creator.token)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/token/faucet", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/pools/0/join", nil, alice.token)
	apiErr := requireError(t, rr, http.StatusPaymentRequired, apierr.CodeInsufficientAllowance)
	assert.Equal(t, model.KindExternal, apiErr.Kind)

	rr = ts.request(http.MethodGet, "/api/v1/pools/0", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var pool response.Pool
	decode(t, rr, &pool)
	assert.Equal(t, 0, pool.ParticipantCount)
	assert.Equal(t, "0", pool.TotalPrize.Units)
}

func TestListPools(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)
	alice := ts.login(aliceKeyHex)

	for i := 0; i < 3; i++ {
		rr := ts.request(http.MethodPost, "/api/v1/pools",
			map[string]any{"entry_fee": entryFee, "duration": 60}, creator.token)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	// Settle pool 1
	rr := ts.request(http.MethodPost, "/api/v1/token/faucet", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/token/approve",
		map[string]any{"pool_id": 1, "amount": entryFee}, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/pools/1/join", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/pools/1/start", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code)
	ts.app.MockClock.Advance(time.Minute)
	rr = ts.request(http.MethodPost, "/api/v1/pools/1/close", nil, creator.token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/pools?active=true", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list response.PoolsResponse
	decode(t, rr, &list)
	assert.Equal(t, uint64(3), list.Total)
	require.Len(t, list.Pools, 2)
	assert.Equal(t, model.PoolID(2), list.Pools[0].ID)
	assert.Equal(t, model.PoolID(0), list.Pools[1].ID)

	rr = ts.request(http.MethodGet, "/api/v1/pools?limit=2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &list)
	require.Len(t, list.Pools, 2)
	assert.Equal(t, model.PoolID(2), list.Pools[0].ID)
	assert.Equal(t, model.PoolID(1), list.Pools[1].ID)
	assert.Equal(t, model.PoolStatusClosed, list.Pools[1].Status)
}

func TestListLimitIsClamped(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.login(creatorKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/pools",
		map[string]any{"entry_fee": entryFee, "duration": 60}, creator.token)
	require.Equal(t, http.StatusCreated, rr.Code)

	for _, limit := range []string{"100000000000", "9223372036854775807", "99999999999999999999999"} {
		t.Run(limit, func(t *testing.T) {
			for _, path := range []string{"/api/v1/pools?active=true&limit=", "/api/v1/pools?limit="} {
				rr := ts.request(http.MethodGet, path+limit, nil, "")
				require.Equal(t, http.StatusOK, rr.Code)
				var list response.PoolsResponse
				decode(t, rr, &list)
				assert.Len(t, list.Pools, 1)
			}

			rr := ts.request(http.MethodGet, "/api/v1/players/top?limit="+limit, nil, "")
			require.Equal(t, http.StatusOK, rr.Code)
		})
	}

	for _, limit := range []string{"0", "-1", "ten"} {
		rr := ts.request(http.MethodGet, "/api/v1/pools?limit="+limit, nil, "")
		requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidLimit)
	}
}

func TestPoolNotFound(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodGet, "/api/v1/pools/99", nil, "")
	apiErr := requireError(t, rr, http.StatusNotFound, apierr.CodePoolNotFound)
	assert.Equal(t, model.KindNotFound, apiErr.Kind)

	rr = ts.request(http.MethodPost, "/api/v1/pools/99/join", nil, alice.token)
	requireError(t, rr, http.StatusNotFound, apierr.CodePoolNotFound)

	rr = ts.request(http.MethodPost, "/api/v1/token/approve",
		map[string]any{"pool_id": 99, "amount": entryFee}, alice.token)
	requireError(t, rr, http.StatusNotFound, apierr.CodePoolNotFound)
}

func TestVerifierReplay(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)
	body := ts.claimBody(alice, 350)

	rr := ts.request(http.MethodPost, "/api/v1/verifier/verify", body, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var verified response.VerifyResponse
	decode(t, rr, &verified)
	assert.True(t, verified.Verified)
	assert.Equal(t, alice.address, verified.Player)

	nonce := verified.Nonce.String()
	rr = ts.request(http.MethodGet, "/api/v1/verifier/nonces/"+nonce, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var used response.NonceResponse
	decode(t, rr, &used)
	assert.True(t, used.Used)

	rr = ts.request(http.MethodPost, "/api/v1/verifier/verify", body, "")
	apiErr := requireError(t, rr, http.StatusUnprocessableEntity, apierr.CodeNonceReplay)
	assert.Equal(t, model.KindAuth, apiErr.Kind)
}

func TestVerifierRejections(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	stale := ts.claimBody(alice, 350)
	ts.app.MockClock.Advance(400 * time.Second)
	rr := ts.request(http.MethodPost, "/api/v1/verifier/verify", stale, "")
	requireError(t, rr, http.StatusUnprocessableEntity, apierr.CodeStaleSubmission)

	forged := ts.claimBody(alice, 350)
	forged["reaction_time"] = 100
	rr = ts.request(http.MethodPost, "/api/v1/verifier/verify", forged, "")
	requireError(t, rr, http.StatusUnprocessableEntity, apierr.CodeInvalidSignature)

	badNonce := ts.claimBody(alice, 350)
	badNonce["nonce"] = "0x1234"
	rr = ts.request(http.MethodPost, "/api/v1/verifier/verify", badNonce, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidNonce)

	rr = ts.request(http.MethodGet, "/api/v1/verifier/nonces/"+model.Nonce{}.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var used response.NonceResponse
	decode(t, rr, &used)
	assert.False(t, used.Used)
}

func TestTokenInfoAndFaucet(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodGet, "/api/v1/token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var info response.TokenInfo
	decode(t, rr, &info)
	assert.Equal(t, "USDC", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)

	rr = ts.request(http.MethodPost, "/api/v1/token/faucet", nil, alice.token)
	require.Equal(t, http.StatusOK, rr.Code)
	var balance response.BalanceResponse
	decode(t, rr, &balance)
	assert.Equal(t, "100000000", balance.Balance.Units)
	assert.Equal(t, "100.000000", balance.Balance.Formatted)

	rr = ts.request(http.MethodPost, "/api/v1/token/approve", map[string]any{"amount": "5"}, alice.token)
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestFaucetDisabled(t *testing.T) {
	ts := newTestServerWithFaucet(t, 0)
	alice := ts.login(aliceKeyHex)

	rr := ts.request(http.MethodPost, "/api/v1/token/faucet", nil, alice.token)
	requireError(t, rr, http.StatusNotFound, apierr.CodeNotFound)
}

func TestScenarios(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/scenarios", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list response.ScenariosResponse
	decode(t, rr, &list)
	require.Len(t, list.Scenarios, len(ts.app.ScenarioService.List()))
	assert.Equal(t, "earthquake", list.Scenarios[0].ID)
	assert.NotContains(t, rr.Body.String(), "correct")

	ts.app.MockRandom.QueueIntn(1, 500)
	rr = ts.request(http.MethodGet, "/api/v1/scenarios/random", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var round response.RoundResponse
	decode(t, rr, &round)
	assert.Equal(t, list.Scenarios[1].ID, round.Scenario.ID)
	assert.Equal(t, int64(1500), round.DelayMS)

	rr = ts.request(http.MethodPost, "/api/v1/scenarios/earthquake/answer", map[string]any{"option_id": "table"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var answer response.AnswerResponse
	decode(t, rr, &answer)
	assert.True(t, answer.Correct)

	rr = ts.request(http.MethodPost, "/api/v1/scenarios/earthquake/answer", map[string]any{"option_id": "elevator"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &answer)
	assert.False(t, answer.Correct)

	rr = ts.request(http.MethodPost, "/api/v1/scenarios/earthquake/answer", map[string]any{"option_id": "dance"}, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeUnknownOption)

	rr = ts.request(http.MethodPost, "/api/v1/scenarios/volcano/answer", map[string]any{"option_id": "run"}, "")
	requireError(t, rr, http.StatusNotFound, apierr.CodeScenarioNotFound)
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(aliceKeyHex)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/"+alice.address.String()+"/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(rr, req)
	}()

	// Wait for the subscription before publishing
	require.Eventually(t, func() bool {
		hub := ts.app.HubManager.GetHub(sse.PlayerTopic(alice.address))
		return hub != nil && hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	resp := ts.request(http.MethodPost, "/api/v1/players/reactions", map[string]any{"reaction_time": 240}, alice.token)
	require.Equal(t, http.StatusOK, resp.Code)
	<-done

	body := rr.Body.String()
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: "+string(model.EventPlayerRegistered))
	assert.Contains(t, body, "event: "+string(model.EventReactionRecorded))
	assert.Contains(t, body, "event: "+string(model.EventBadgeEarned))
}
