package websocket

import (
	"sync"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/pkg/logger"

	"go.uber.org/zap"
)

// clientSet is the local subscriber registry of the broker-backed hubs.
// Events come back from the broker on a consumer goroutine, so it is locked.
type clientSet struct {
	mu      sync.RWMutex
	clients map[interfaces.Client]struct{}
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[interfaces.Client]struct{})}
}

func (s *clientSet) add(client interfaces.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = struct{}{}
}

func (s *clientSet) remove(client interfaces.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return false
	}
	delete(s.clients, client)
	client.Close()
	return true
}

func (s *clientSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *clientSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

// deliver decodes a broker payload and queues it to every matching local client.
// Clients whose buffer is full are dropped; there is no retry off the hub goroutine.
func (s *clientSet) deliver(payload []byte) {
	e, err := event.Unmarshal(payload)
	if err != nil {
		logger.L.Error("Failed to decode post event from broker", zap.Error(err))
		return
	}
	data, err := event.MarshalJSON(e)
	if err != nil {
		logger.L.Error("Failed to encode post event", zap.Uint("postID", e.PostID), zap.Error(err))
		return
	}

	s.mu.RLock()
	targets := make([]interfaces.Client, 0, len(s.clients))
	for client := range s.clients {
		if wantsEvent(client, e) {
			targets = append(targets, client)
		}
	}
	s.mu.RUnlock()

	for _, client := range targets {
		if err := client.QueueBytes(data); err != nil {
			logger.L.Warn("Failed to queue post event to client", zap.Error(err))
			s.remove(client)
		}
	}
}
