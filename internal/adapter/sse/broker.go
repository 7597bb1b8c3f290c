// Package sse pushes threshold and dataset changes to browsers over
// Server-Sent Events.
package sse

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/jonboulle/clockwork"
)

// Event types sent to clients.
const (
	EventConnected = "connected"
	EventThreshold = "threshold"
	EventDataset   = "dataset"
)

const clientBuffer = 100

// Message is one Server-Sent Event.
type Message struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broker fans messages out to connected clients. Slow clients whose buffer
// is full miss the message rather than block the publisher.
type Broker struct {
	mu      sync.RWMutex
	clients map[string]chan Message
	seq     atomic.Int64
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewBroker creates a broker with no clients.
func NewBroker(clock clockwork.Clock, logger *slog.Logger) *Broker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Broker{
		clients: make(map[string]chan Message),
		clock:   clock,
		logger:  logger,
	}
}

// AddClient registers clientID and returns its message channel. An existing
// registration under the same ID is closed and replaced.
func (b *Broker) AddClient(clientID string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.clients[clientID]; ok {
		close(existing)
	}
	ch := make(chan Message, clientBuffer)
	b.clients[clientID] = ch

	b.logger.Info("sse client connected", "client_id", clientID, "clients", len(b.clients))
	return ch
}

// RemoveClient unregisters clientID and closes its channel. ch must be the
// channel AddClient returned; a stream that has since been replaced under the
// same ID leaves the newer registration alone.
func (b *Broker) RemoveClient(clientID string, ch <-chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.clients[clientID]; ok && current == ch {
		close(current)
		delete(b.clients, clientID)
		b.logger.Info("sse client disconnected", "client_id", clientID, "clients", len(b.clients))
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast stamps msg and queues it for every client.
func (b *Broker) Broadcast(msg Message) {
	msg = b.stamp(msg)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.clients {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("sse client buffer full, dropping message", "client_id", id, "type", msg.Type)
		}
	}
	if len(b.clients) > 0 {
		b.logger.Debug("sse message broadcast", "type", msg.Type, "clients", len(b.clients))
	}
}

// PublishThreshold broadcasts a lower bound change. Its signature matches
// dataset.Threshold.Subscribe.
func (b *Broker) PublishThreshold(change dataset.ThresholdChange) {
	b.Broadcast(Message{Type: EventThreshold, Data: change})
}

// PublishDataset announces a new dataset version so clients refetch points.
func (b *Broker) PublishDataset(version uint64, records int) {
	b.Broadcast(Message{Type: EventDataset, Data: map[string]any{
		"version": version,
		"records": records,
	}})
}

func (b *Broker) stamp(msg Message) Message {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.clock.Now().UTC()
	}
	if msg.ID == 0 {
		msg.ID = b.seq.Add(1)
	}
	return msg
}
