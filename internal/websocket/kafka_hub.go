package websocket

import (
	"context"
	"fmt"
	"time"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaHub publishes post events to a Kafka topic and fans the topic out
// to the clients connected to this instance.
type KafkaHub struct {
	clients    *clientSet
	producer   sarama.SyncProducer
	consumer   sarama.ConsumerGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	cfg *config.KafkaConfig
}

func NewKafkaHub() (*KafkaHub, error) {
	cfg := &config.GlobalConfig.Messaging.Kafka

	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Consumer.Return.Errors = true
	kConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kConfig.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka producer", zap.Error(err))
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}

	// Every instance needs every event, so each gets its own consumer group.
	groupID := fmt.Sprintf("%s-%s", cfg.ConsumerGroup, uuid.NewString())
	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka consumer group", zap.Error(err))
		producer.Close()
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}

	return newKafkaHub(producer, consumer, cfg), nil
}

func newKafkaHub(producer sarama.SyncProducer, consumer sarama.ConsumerGroup, cfg *config.KafkaConfig) *KafkaHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaHub{
		clients:    newClientSet(),
		producer:   producer,
		consumer:   consumer,
		ctx:        ctx,
		cancelFunc: cancel,
		cfg:        cfg,
	}
}

func (h *KafkaHub) StartConsumer() {
	go h.consumeMessages()
}

func (h *KafkaHub) Close() error {
	h.cancelFunc()
	h.clients.closeAll()

	if err := h.producer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka producer", zap.Error(err))
	}
	if h.consumer != nil {
		if err := h.consumer.Close(); err != nil {
			logger.L.Error("Failed to close Kafka consumer group", zap.Error(err))
		}
	}
	return nil
}

func (h *KafkaHub) Register(client interfaces.Client) {
	h.clients.add(client)
	logger.L.Info("Feed client registered with KafkaHub", zap.String("group", client.GroupSlug()))
}

func (h *KafkaHub) Unregister(client interfaces.Client) {
	if h.clients.remove(client) {
		logger.L.Debug("Feed client unregistered from KafkaHub", zap.String("group", client.GroupSlug()))
	}
}

func (h *KafkaHub) ClientCount() int {
	return h.clients.len()
}

func (h *KafkaHub) topic() string {
	return fmt.Sprintf("%s_posts", h.cfg.TopicPrefix)
}

// BroadcastPostEvent writes e to Kafka; local clients receive it from the consumer like everyone else.
func (h *KafkaHub) BroadcastPostEvent(e *event.PostEvent) error {
	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal post event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: h.topic(),
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", e.PostID)),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := h.producer.SendMessage(msg); err != nil {
		logger.L.Error("Failed to send post event to Kafka", zap.Uint("postID", e.PostID), zap.Error(err))
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	logger.L.Debug("Post event sent to Kafka", zap.Uint("postID", e.PostID))
	return nil
}

func (h *KafkaHub) consumeMessages() {
	handler := &kafkaConsumerHandler{hub: h}
	topics := []string{h.topic()}

	for {
		select {
		case <-h.ctx.Done():
			logger.L.Info("Stopping Kafka consumer")
			return
		default:
			if err := h.consumer.Consume(h.ctx, topics, handler); err != nil {
				logger.L.Error("Kafka consumer error", zap.Error(err))
				time.Sleep(5 * time.Second)
			}
		}
	}
}

type kafkaConsumerHandler struct {
	hub *KafkaHub
}

func (h *kafkaConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.hub.clients.deliver(message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}
