package sse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "pool_created",
			data:      `{"type":"pool_created"}`,
			expected:  "event: pool_created\ndata: {\"type\":\"pool_created\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "pool-1",
			data:      "<article>\n  <h3>Pool</h3>\n</article>",
			expected:  "event: pool-1\ndata: <article>\ndata:   <h3>Pool</h3>\ndata: </article>\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, Topic("pool:7"), PoolTopic(7))
	addr := model.MustParseAddress("0x00000000000000000000000000000000000000aa")
	assert.Equal(t, Topic("player:"+addr.String()), PlayerTopic(addr))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(TopicAll, testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func receive(t *testing.T, client *Client) string {
	t.Helper()
	select {
	case msg := <-client.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, "client1")
	require.True(t, hub.Register(client))
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastEvent("test-event", "test data")
	assert.Equal(t, "event: test-event\ndata: test data\n\n", receive(t, client))
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, "client1")
	require.True(t, hub.Register(client))
	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := startHub(t)

	clients := []*Client{NewClient(hub, "a"), NewClient(hub, "b"), NewClient(hub, "c")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}

	hub.BroadcastEvent("update", "data")
	for _, c := range clients {
		assert.Equal(t, "event: update\ndata: data\n\n", receive(t, c))
	}
}

func TestHub_RegisterAfterCloseFails(t *testing.T) {
	hub := NewHub(TopicAll, testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	assert.False(t, hub.Register(NewClient(hub, "late")))
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub(PoolTopic(1))
	require.NotNil(t, hub1)
	assert.Same(t, hub1, manager.GetOrCreateHub(PoolTopic(1)))
	assert.NotSame(t, hub1, manager.GetOrCreateHub(PoolTopic(2)))
}

func TestHubManager_GetHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	assert.Nil(t, manager.GetHub(TopicBoard))
	created := manager.GetOrCreateHub(TopicBoard)
	assert.Same(t, created, manager.GetHub(TopicBoard))
}

func TestHubManager_RemoveHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub(TopicAll)
	manager.RemoveHub(TopicAll)
	assert.Nil(t, manager.GetHub(TopicAll))

	// Removing a missing hub is a no-op
	manager.RemoveHub(TopicBoard)
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub(PoolTopic(1))
	active := manager.GetOrCreateHub(PoolTopic(2))
	require.True(t, active.Register(NewClient(active, "watcher")))

	manager.CleanupEmptyHubs()

	assert.Nil(t, manager.GetHub(PoolTopic(1)))
	assert.NotNil(t, manager.GetHub(PoolTopic(2)))
}
