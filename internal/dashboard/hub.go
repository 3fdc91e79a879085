package dashboard

import (
	"sync"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/reconcile"
	"github.com/user/blocklist-service/pkg/metrics"
)

// Message types sent to subscribers.
const (
	MessageSnapshot = "snapshot"
	MessageRow      = "row"
	MessageNotice   = "notice"
)

// Message is one update pushed to dashboard clients.
type Message struct {
	Type     string           `json:"type"`
	Snapshot *Snapshot        `json:"snapshot,omitempty"`
	Event    *reconcile.Event `json:"event,omitempty"`
	Notice   *entity.Notice   `json:"notice,omitempty"`
}

// Hub fans messages out to subscribers. Publishers never block: a subscriber
// whose buffer is full is dropped and its channel closed, so the client
// reconnects and resyncs from a fresh snapshot.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[chan Message]struct{}
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{buffer: buffer, subs: make(map[chan Message]struct{})}
}

// Subscribe registers a new subscriber. When first is not nil its message is
// queued ahead of anything published afterwards. The returned cancel func
// closes the channel and is safe to call more than once.
func (h *Hub) Subscribe(first func() Message) (<-chan Message, func()) {
	ch := make(chan Message, h.buffer+1)
	h.mu.Lock()
	if first != nil {
		ch <- first()
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.dropLocked(ch)
		})
	}
}

// Publish delivers m to every subscriber. Subscribers with no room left are
// dropped.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
			h.dropLocked(ch)
			metrics.WebsocketDropped.Inc()
		}
	}
}

func (h *Hub) dropLocked(ch chan Message) {
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
	metrics.WebsocketClients.Dec()
}

func (h *Hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
