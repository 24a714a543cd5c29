package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/tent"
)

const (
	MessageInitialState = "initial_state"
	MessageTentUpdate   = "tent_update"

	defaultSendTimeout = 5 * time.Second
)

var errSendTimeout = errors.New("subscriber send timed out")

type Message struct {
	Type   string          `json:"type"`
	TentID string          `json:"tent_id,omitempty"`
	Data   *tent.Snapshot  `json:"data,omitempty"`
	Tents  []tent.Snapshot `json:"tents,omitempty"`
}

func TentUpdate(snapshot tent.Snapshot) Message {
	return Message{Type: MessageTentUpdate, TentID: snapshot.ID, Data: &snapshot}
}

func InitialState(tents []tent.Snapshot) Message {
	return Message{Type: MessageInitialState, Tents: tents}
}

// Subscriber is a live listener. Send may fail; a subscriber whose send fails
// once is dropped.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, msg Message) error
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	sendTimeout time.Duration
	metrics     *metrics.Metrics
}

func NewHub(sendTimeout time.Duration, m *metrics.Metrics) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Hub{
		subscribers: make(map[string]Subscriber),
		sendTimeout: sendTimeout,
		metrics:     m,
	}
}

func (h *Hub) Add(sub Subscriber) {
	h.mu.Lock()
	h.subscribers[sub.ID()] = sub
	n := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SetSubscribers(n)
}

func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	n := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SetSubscribers(n)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

type sendResult struct {
	id  string
	err error
}

// Broadcast delivers msg to every subscriber in parallel. It returns once all
// sends finished or the send timeout elapsed; whoever failed or is still
// sending by then gets pruned.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	// only the send timeout may cut a subscriber off, not the caller going away
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.sendTimeout)
	defer cancel()

	results := make(chan sendResult, len(subs))
	for _, sub := range subs {
		go func(sub Subscriber) {
			results <- sendResult{id: sub.ID(), err: sub.Send(sendCtx, msg)}
		}(sub)
	}

	pending := make(map[string]bool, len(subs))
	for _, sub := range subs {
		pending[sub.ID()] = true
	}

	failed := make(map[string]error)
	for len(pending) > 0 {
		select {
		case res := <-results:
			delete(pending, res.id)
			if res.err != nil {
				failed[res.id] = res.err
			} else {
				h.metrics.BroadcastSent()
			}
		case <-sendCtx.Done():
			for id := range pending {
				failed[id] = errSendTimeout
			}
			pending = nil
		}
	}

	if len(failed) == 0 {
		return
	}

	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryBroadcast),
	)
	for id, err := range failed {
		logger.Warn("Pruning subscriber", zap.String("subscriber_id", id), zap.Error(err))
		h.Remove(id)
		h.metrics.SubscriberPruned()
	}
}
