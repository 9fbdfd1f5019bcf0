package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub is closed")

// Hub is the single-process feed. The Run goroutine owns the clients map.
type Hub struct {
	clients    map[interfaces.Client]bool
	broadcast  chan *event.PostEvent
	register   chan interfaces.Client
	unregister chan interfaces.Client
	done       chan struct{}
	closeOnce  sync.Once
	count      atomic.Int64

	retryCount    int
	retryInterval time.Duration
}

func NewHub() *Hub {
	wsConfig := config.GlobalConfig.WebSocket

	retryCount := wsConfig.MessageRetryCount
	if retryCount <= 0 {
		retryCount = 3
		logger.L.Warn("Invalid retryCount, using default", zap.Int("default", retryCount))
	}

	retryInterval := time.Duration(wsConfig.MessageRetryIntervalMs) * time.Millisecond
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
		logger.L.Warn("Invalid retryInterval, using default", zap.Duration("default", retryInterval))
	}

	broadcastBufferSize := wsConfig.BroadcastBufferSize
	if broadcastBufferSize <= 0 {
		broadcastBufferSize = 256
		logger.L.Warn("Invalid BroadcastBufferSize, using default", zap.Int("default", broadcastBufferSize))
	}

	return &Hub{
		clients:       make(map[interfaces.Client]bool),
		broadcast:     make(chan *event.PostEvent, broadcastBufferSize),
		register:      make(chan interfaces.Client),
		unregister:    make(chan interfaces.Client),
		done:          make(chan struct{}),
		retryCount:    retryCount,
		retryInterval: retryInterval,
	}
}

func (h *Hub) Register(client interfaces.Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client interfaces.Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastPostEvent queues e for delivery without waiting for subscribers.
func (h *Hub) BroadcastPostEvent(e *event.PostEvent) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- e:
		logger.L.Debug("Post event queued for broadcast", zap.Uint("postID", e.PostID))
		return nil
	default:
		logger.L.Warn("Hub broadcast channel full. Dropping post event.", zap.Uint("postID", e.PostID))
		return errors.New("hub broadcast channel is full")
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

func (h *Hub) trySendMessage(client interfaces.Client, data []byte) {
	err := client.QueueBytes(data)
	if err == nil {
		return
	}
	if errors.Is(err, ErrSendBufferFull) {
		for i := 0; i < h.retryCount; i++ {
			logger.L.Warn("Client send buffer full, retry attempt", zap.Int("attempt", i+1))
			time.Sleep(h.retryInterval)
			if err = client.QueueBytes(data); err == nil {
				return
			}
			if !errors.Is(err, ErrSendBufferFull) {
				break
			}
		}
	}

	logger.L.Error("Dropping feed client",
		zap.Int("attempts", h.retryCount),
		zap.Error(err))
	h.remove(client)
}

func (h *Hub) remove(client interfaces.Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.count.Add(-1)
		client.Close()
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			logger.L.Info("Feed client registered", zap.String("group", client.GroupSlug()))

		case client := <-h.unregister:
			h.remove(client)
			logger.L.Debug("Feed client unregistered", zap.String("group", client.GroupSlug()))

		case e := <-h.broadcast:
			data, err := event.MarshalJSON(e)
			if err != nil {
				logger.L.Error("Failed to encode post event", zap.Uint("postID", e.PostID), zap.Error(err))
				continue
			}
			for client := range h.clients {
				if wantsEvent(client, e) {
					h.trySendMessage(client, data)
				}
			}

		case <-h.done:
			for client := range h.clients {
				h.remove(client)
			}
			logger.L.Info("Hub stopped")
			return
		}
	}
}

// wantsEvent applies the subscriber's group filter.
func wantsEvent(client interfaces.Client, e *event.PostEvent) bool {
	group := client.GroupSlug()
	return group == "" || group == e.GroupSlug
}
