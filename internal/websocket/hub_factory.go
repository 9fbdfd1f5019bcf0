package websocket

import (
	"errors"

	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"go.uber.org/zap"
)

// CreateHub builds the feed implementation selected by messaging.provider.
func CreateHub() (interfaces.ConnectionManager, error) {
	provider := config.GlobalConfig.Messaging.Provider
	logger.L.Info("Creating hub with messaging provider", zap.String("provider", provider))

	switch provider {
	case "channel", "":
		return NewHub(), nil
	case "kafka":
		return NewKafkaHub()
	case "nats":
		return NewNATSHub()
	case "redis":
		return NewRedisHub()
	default:
		return nil, errors.New("unsupported messaging provider")
	}
}

func StartHub(hub interfaces.ConnectionManager) error {
	switch h := hub.(type) {
	case *Hub:
		go h.Run()
		return nil
	case *KafkaHub:
		h.StartConsumer()
		return nil
	case *NATSHub:
		return h.Subscribe()
	case *RedisHub:
		return h.Subscribe()
	default:
		return errors.New("unknown hub type")
	}
}
