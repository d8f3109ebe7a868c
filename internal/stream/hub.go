package stream

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "ride:"
	channelSuffix  = ":broadcast"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans ride updates out to websocket subscribers. With redis configured
// every broadcast goes through pub/sub so riders connected to other API
// instances see it too; without redis delivery is in-process only.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RideID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{clients: map[string]map[*Client]struct{}{}}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		// Wait for the subscription to be confirmed so no early broadcast is lost.
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Printf("redis subscribe error, using local delivery: %v", err)
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.forward(pubsub.Channel())
		}
	}
	return h
}

func (h *Hub) Register(rideID string) *Client {
	client := &Client{
		RideID: rideID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[rideID] == nil {
		h.clients[rideID] = map[*Client]struct{}{}
	}
	h.clients[rideID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rideClients, ok := h.clients[client.RideID]; ok {
		if _, registered := rideClients[client]; !registered {
			return
		}
		delete(rideClients, client)
		if len(rideClients) == 0 {
			delete(h.clients, client.RideID)
		}
		close(client.Send)
	}
}

// Subscribers reports how many local clients watch rideID.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[rideID])
}

func (h *Hub) Broadcast(rideID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(rideID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("redis publish error: %v", err)
	}
	h.deliver(rideID, payload)
}

// Close stops the redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(rideID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[rideID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(messages <-chan *redis.Message) {
	for msg := range messages {
		rideID := rideIDFromChannel(msg.Channel)
		if rideID == "" {
			continue
		}
		h.deliver(rideID, []byte(msg.Payload))
	}
}

func redisChannel(rideID string) string {
	return channelPrefix + rideID + channelSuffix
}

func rideIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
