// Package feed delivers visible conversation messages to live subscribers
// (the widget's event stream), through redis pub/sub or an in-process hub.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"supportdesk/internal/models"
)

// ChannelPrefix namespaces thread channels on the message bus
const ChannelPrefix = "supportdesk:thread:"

const subscriberBuffer = 16

// Subscriber streams the messages published to a thread until ctx is done.
// The returned channel is closed when the subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, threadID string) (<-chan models.Message, error)
}

// Channel returns the bus channel of a thread
func Channel(threadID string) string {
	return ChannelPrefix + threadID
}

func encode(msg models.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed message: %w", err)
	}
	return payload, nil
}

func decode(payload string) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, fmt.Errorf("failed to decode feed message: %w", err)
	}
	return msg, nil
}

// Hub is an in-process feed used when no redis is configured. Slow subscribers
// miss messages rather than block publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.Message]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan models.Message]struct{})}
}

// Publish fans msg out to the thread's subscribers. Internal messages are dropped.
func (h *Hub) Publish(_ context.Context, msg models.Message) error {
	if msg.Internal() {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[msg.ThreadID] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for threadID
func (h *Hub) Subscribe(ctx context.Context, threadID string) (<-chan models.Message, error) {
	ch := make(chan models.Message, subscriberBuffer)

	h.mu.Lock()
	if h.subs[threadID] == nil {
		h.subs[threadID] = make(map[chan models.Message]struct{})
	}
	h.subs[threadID][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[threadID], ch)
		if len(h.subs[threadID]) == 0 {
			delete(h.subs, threadID)
		}
		close(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscriptions of a thread
func (h *Hub) Subscribers(threadID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[threadID])
}
