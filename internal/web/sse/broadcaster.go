package sse

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
)

// Broadcaster publishes domain events to SSE subscribers. JSON copies go to the
// all, pool and player topics; rendered fragments go to the board topic.
type Broadcaster struct {
	hubManager *HubManager
	renderer   atomic.Pointer[Renderer]
	logger     *slog.Logger
}

// Ensure Broadcaster implements Publisher
var _ events.Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// UseRenderer enables board fragments. The renderer reads from services that
// themselves publish through this broadcaster, so it is attached after wiring.
func (b *Broadcaster) UseRenderer(r *Renderer) {
	b.renderer.Store(r)
}

// Publish implements events.Publisher
func (b *Broadcaster) Publish(ctx context.Context, evts ...model.Event) {
	for _, e := range evts {
		data, err := json.Marshal(e)
		if err != nil {
			b.logger.Error("sse failed to encode event",
				slog.String("type", string(e.Type)),
				slog.Any("error", err))
			continue
		}

		name := string(e.Type)
		b.send(TopicAll, name, string(data))
		if e.PoolID != nil {
			b.send(PoolTopic(*e.PoolID), name, string(data))
		}
		if !e.Player.IsZero() {
			b.send(PlayerTopic(e.Player), name, string(data))
		}

		b.renderBoard(ctx, e)
	}
}

func (b *Broadcaster) send(topic Topic, name, data string) {
	if hub := b.hubManager.GetHub(topic); hub != nil {
		hub.BroadcastEvent(name, data)
	}
}

func (b *Broadcaster) renderBoard(ctx context.Context, e model.Event) {
	renderer := b.renderer.Load()
	hub := b.hubManager.GetHub(TopicBoard)
	if renderer == nil || hub == nil {
		return
	}

	fragments, err := renderer.RenderEvent(ctx, e)
	if err != nil {
		b.logger.Error("sse failed to render board fragment",
			slog.String("type", string(e.Type)),
			slog.Any("error", err))
		return
	}
	for _, f := range fragments {
		hub.BroadcastEvent(f.EventName, f.HTML)
	}
}
