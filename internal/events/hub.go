// Package events pushes order events to open dashboard pages over
// websockets. Events placed by this instance are broadcast directly; when a
// Redis client is configured the hub also relays the shared order channel,
// so pages see orders placed through other dashboard instances.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/notification"
)

// Config wires a Hub.
type Config struct {
	// InstanceID is stamped on local events; relayed events carrying it
	// are skipped since they were already broadcast.
	InstanceID string
	Redis      *goredis.Client // optional
	Channel    string          // Redis channel to relay
	Backlog    int             // envelopes kept for reconnecting pages
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Envelope is the message written to websocket clients.
type Envelope struct {
	Type  string             `json:"type"`
	Seq   int64              `json:"seq"`
	Event notification.Alert `json:"event"`
}

// Hub manages websocket clients and fan-out of order events.
type Hub struct {
	instanceID string
	rdb        *goredis.Client
	channel    string
	metrics    *metrics.Metrics
	logger     *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	backlog *Backlog
}

// NewHub creates a Hub.
func NewHub(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hub{
		instanceID: cfg.InstanceID,
		rdb:        cfg.Redis,
		channel:    cfg.Channel,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With(slog.String("component", "events")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*Client]bool),
		backlog: NewBacklog(cfg.Backlog),
	}
}

// Send broadcasts a locally placed order event. It implements
// notification.Notifier and never fails.
func (h *Hub) Send(_ context.Context, alert notification.Alert) error {
	if alert.Source == "" {
		alert.Source = h.instanceID
	}
	h.broadcast(alert)
	return nil
}

// Run relays the Redis order channel until ctx is cancelled. It returns
// immediately when no Redis client is configured.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil || h.channel == "" {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	h.logger.Info("relaying order events", slog.String("channel", h.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.relay([]byte(msg.Payload))
		}
	}
}

func (h *Hub) relay(payload []byte) {
	alert, err := notification.DecodeAlert(payload)
	if err != nil {
		h.logger.Warn("dropping malformed order event", slog.String("error", err.Error()))
		return
	}
	if h.instanceID != "" && alert.Source == h.instanceID {
		return
	}
	if h.metrics != nil {
		h.metrics.EventsRelayed.Inc()
	}
	h.broadcast(alert)
}

func (h *Hub) broadcast(alert notification.Alert) {
	if alert.Time.IsZero() {
		alert.Time = time.Now().UTC()
	}

	h.mu.Lock()
	h.seq++
	env, err := json.Marshal(Envelope{Type: "order", Seq: h.seq, Event: alert})
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("marshal envelope", slog.String("error", err.Error()))
		return
	}
	h.backlog.Push(h.seq, env)

	dropped := 0
	for client := range h.clients {
		select {
		case client.send <- env:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 && h.metrics != nil {
		h.metrics.EventsDropped.Add(float64(dropped))
	}
}

// ServeHTTP upgrades to a websocket and registers the client. An optional
// ?since=<seq> replays backlog envelopes newer than seq.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		since, _ = strconv.ParseInt(v, 10, 64)
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	for _, env := range h.backlog.Since(since) {
		select {
		case client.send <- env:
		default:
		}
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	h.logger.Debug("ws client connected", slog.Int("clients", count))

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the sequence number of the latest envelope.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}
