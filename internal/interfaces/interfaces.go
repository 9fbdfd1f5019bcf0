package interfaces

import "yatube/internal/event"

// Client is one live feed subscriber.
// websocket.Client implements it.
type Client interface {
	// GroupSlug is the group the subscriber follows; empty means every post.
	GroupSlug() string
	QueueBytes(data []byte) error
	Close()
}

// ConnectionManager tracks subscribers and fans post events out to them.
// Implemented by the channel, Kafka and NATS hubs.
type ConnectionManager interface {
	Register(client Client)
	Unregister(client Client)
	BroadcastPostEvent(e *event.PostEvent) error
	ClientCount() int
	Close() error
}
