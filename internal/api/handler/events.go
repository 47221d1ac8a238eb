package handler

import (
	"net/http"

	"github.com/mcoot/reflexpool/internal/web/sse"
)

// EventsHandler streams domain events as server-sent JSON
type EventsHandler struct {
	hubs *sse.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hubs *sse.HubManager) *EventsHandler {
	return &EventsHandler{hubs: hubs}
}

// All handles GET /api/v1/events
func (h *EventsHandler) All(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, sse.TopicAll)
}

// Pool handles GET /api/v1/pools/{id}/events
func (h *EventsHandler) Pool(w http.ResponseWriter, r *http.Request) {
	id, err := poolIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.stream(w, r, sse.PoolTopic(id))
}

// Player handles GET /api/v1/players/{address}/events
func (h *EventsHandler) Player(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.stream(w, r, sse.PlayerTopic(addr))
}

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request, topic sse.Topic) {
	sse.ServeSSE(w, r, h.hubs.GetOrCreateHub(topic), r.RemoteAddr)
}
