package websocket

import (
	"context"
	"fmt"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisHub fans post events out through a Redis pub/sub channel.
// Like NATSHub, nothing is persisted: a subscriber that is down misses events.
type RedisHub struct {
	clients *clientSet
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisHub() (*RedisHub, error) {
	cfg := config.GlobalConfig.Messaging.Redis

	opt := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opt = parsed
	}
	if opt.Addr == "" {
		opt.Addr = "localhost:6379"
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		_ = client.Close()
		logger.L.Error("Failed to connect to Redis", zap.String("addr", opt.Addr), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.L.Info("Connected to Redis", zap.String("addr", opt.Addr))
	return &RedisHub{
		clients: newClientSet(),
		client:  client,
		channel: postsChannel(cfg.ChannelPrefix),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

func postsChannel(prefix string) string {
	if prefix == "" {
		return "posts"
	}
	return prefix + ":posts"
}

// Subscribe waits for the subscription to be confirmed, then delivers
// messages on its own goroutine until Close.
func (h *RedisHub) Subscribe() error {
	pubsub := h.client.Subscribe(h.ctx, h.channel)
	if _, err := pubsub.Receive(h.ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", h.channel, err)
	}
	h.pubsub = pubsub

	go func() {
		defer close(h.done)
		for msg := range pubsub.Channel() {
			h.clients.deliver([]byte(msg.Payload))
		}
	}()
	return nil
}

func (h *RedisHub) Register(client interfaces.Client) {
	h.clients.add(client)
	logger.L.Info("Feed client registered with RedisHub", zap.String("group", client.GroupSlug()))
}

func (h *RedisHub) Unregister(client interfaces.Client) {
	if h.clients.remove(client) {
		logger.L.Debug("Feed client unregistered from RedisHub", zap.String("group", client.GroupSlug()))
	}
}

func (h *RedisHub) ClientCount() int {
	return h.clients.len()
}

func (h *RedisHub) BroadcastPostEvent(e *event.PostEvent) error {
	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal post event: %w", err)
	}
	if err := h.client.Publish(h.ctx, h.channel, data).Err(); err != nil {
		logger.L.Error("Failed to publish post event to Redis", zap.Uint("postID", e.PostID), zap.Error(err))
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

func (h *RedisHub) Close() error {
	h.clients.closeAll()
	h.cancel()
	if h.pubsub != nil {
		if err := h.pubsub.Close(); err != nil {
			logger.L.Warn("Failed to close Redis subscription", zap.Error(err))
		}
		<-h.done
	}
	return h.client.Close()
}
