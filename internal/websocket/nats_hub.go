package websocket

import (
	"fmt"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSHub is the NATS counterpart of KafkaHub: publish on a subject,
// every instance subscribes and fans out locally.
type NATSHub struct {
	clients *clientSet
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
}

func NewNATSHub() (*NATSHub, error) {
	cfg := config.GlobalConfig.Messaging.NATS

	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("yatube-feed"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.L.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.L.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.L.Error("Failed to connect to NATS", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.L.Info("Connected to NATS", zap.String("url", url))
	return &NATSHub{
		clients: newClientSet(),
		conn:    conn,
		subject: postsSubject(cfg.SubjectPrefix),
	}, nil
}

func postsSubject(prefix string) string {
	if prefix == "" {
		return "posts"
	}
	return prefix + ".posts"
}

// Subscribe starts receiving events published by any instance.
func (h *NATSHub) Subscribe() error {
	sub, err := h.conn.Subscribe(h.subject, func(msg *nats.Msg) {
		h.clients.deliver(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", h.subject, err)
	}
	h.sub = sub
	return nil
}

func (h *NATSHub) Register(client interfaces.Client) {
	h.clients.add(client)
	logger.L.Info("Feed client registered with NATSHub", zap.String("group", client.GroupSlug()))
}

func (h *NATSHub) Unregister(client interfaces.Client) {
	if h.clients.remove(client) {
		logger.L.Debug("Feed client unregistered from NATSHub", zap.String("group", client.GroupSlug()))
	}
}

func (h *NATSHub) ClientCount() int {
	return h.clients.len()
}

func (h *NATSHub) BroadcastPostEvent(e *event.PostEvent) error {
	if h.conn == nil || !h.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}

	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal post event: %w", err)
	}
	if err := h.conn.Publish(h.subject, data); err != nil {
		logger.L.Error("Failed to publish post event to NATS", zap.Uint("postID", e.PostID), zap.Error(err))
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

func (h *NATSHub) Close() error {
	h.clients.closeAll()
	if h.sub != nil {
		if err := h.sub.Unsubscribe(); err != nil {
			logger.L.Warn("Failed to unsubscribe from NATS", zap.Error(err))
		}
	}
	if h.conn == nil {
		return nil
	}
	if err := h.conn.Drain(); err != nil {
		logger.L.Warn("Failed to drain NATS connection", zap.Error(err))
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
