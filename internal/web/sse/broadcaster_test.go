package sse

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/testutil"
)

var (
	at     = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	player = model.MustParseAddress("0x00000000000000000000000000000000000000aa")
)

type stubPools map[model.PoolID]*model.Pool

func (s stubPools) GetPool(_ context.Context, id model.PoolID) (*model.Pool, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, model.ErrPoolNotFound
}

type stubPlayers []*model.PlayerRecord

func (s stubPlayers) GetTopPlayers(_ context.Context, limit int) ([]*model.PlayerRecord, error) {
	if limit > len(s) {
		limit = len(s)
	}
	return s[:limit], nil
}

func subscribe(t *testing.T, manager *HubManager, topic Topic) *Client {
	t.Helper()
	hub := manager.GetOrCreateHub(topic)
	client := NewClient(hub, "test")
	require.True(t, hub.Register(client))
	return client
}

func TestBroadcaster_FansOutJSON(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	b := NewBroadcaster(manager, testutil.NopLogger())

	all := subscribe(t, manager, TopicAll)
	pool := subscribe(t, manager, PoolTopic(3))
	other := subscribe(t, manager, PoolTopic(4))
	byPlayer := subscribe(t, manager, PlayerTopic(player))

	b.Publish(context.Background(), model.PoolEvent(model.EventParticipantJoined, at, 3, player,
		model.ParticipantJoinedPayload{ParticipantCount: 1, TotalPrize: 10}))

	for _, c := range []*Client{all, pool, byPlayer} {
		msg := receive(t, c)
		assert.True(t, strings.HasPrefix(msg, "event: participant_joined\ndata: "), msg)

		var decoded map[string]any
		body := strings.TrimSuffix(strings.TrimPrefix(msg, "event: participant_joined\ndata: "), "\n\n")
		require.NoError(t, json.Unmarshal([]byte(body), &decoded))
		assert.Equal(t, "participant_joined", decoded["type"])
		assert.Equal(t, float64(3), decoded["pool_id"])
		assert.Equal(t, player.String(), decoded["player"])
	}

	select {
	case msg := <-other.send:
		t.Fatalf("unrelated pool received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_NoSubscribersIsNoop(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	b := NewBroadcaster(manager, testutil.NopLogger())

	b.Publish(context.Background(), model.PlayerEvent(model.EventPlayerRegistered, at, player, nil))
	assert.Nil(t, manager.GetHub(TopicAll))
}

func TestBroadcaster_RendersBoardFragments(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	b := NewBroadcaster(manager, testutil.NopLogger())

	pools := stubPools{5: {ID: 5, EntryFee: 1_000_000, Duration: time.Hour, CreatedAt: at, WinningTime: model.UnsetReactionTime}}
	rec := model.NewPlayerRecord(player, 0, at)
	rec.BestReactionTime = 250
	rec.HighestBadge = model.BadgeGold
	b.UseRenderer(NewRenderer(pools, stubPlayers{rec}, RendererConfig{TokenDecimals: 6, TokenSymbol: "USDC"}))

	board := subscribe(t, manager, TopicBoard)

	b.Publish(context.Background(), model.PoolEvent(model.EventPoolCreated, at, 5, player, nil))
	msg := receive(t, board)
	assert.True(t, strings.HasPrefix(msg, "event: pool-5\n"), msg)
	assert.Contains(t, msg, `id="pool-5"`)
	assert.Contains(t, msg, "1.000000 USDC")

	b.Publish(context.Background(), model.PlayerEvent(model.EventReactionRecorded, at, player, nil))
	msg = receive(t, board)
	assert.True(t, strings.HasPrefix(msg, "event: "+LeaderboardEvent+"\n"), msg)
	assert.Contains(t, msg, "250ms")
}

func TestRenderer_IgnoresUnrelatedEvents(t *testing.T) {
	r := NewRenderer(stubPools{}, stubPlayers{}, RendererConfig{})

	fragments, err := r.RenderEvent(context.Background(), model.PlayerEvent(model.EventReactionVerified, at, player, nil))
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestRenderer_MissingPoolIsAnError(t *testing.T) {
	r := NewRenderer(stubPools{}, stubPlayers{}, RendererConfig{})

	_, err := r.RenderEvent(context.Background(), model.PoolEvent(model.EventPoolStarted, at, 9, player, nil))
	assert.ErrorIs(t, err, model.ErrPoolNotFound)
}
