package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel carries session events between application instances.
const DefaultChannel = "coffee:sessions"

// Listener receives session events in-process.
type Listener func(SessionEvent)

// Notifier publishes session changes on a Redis channel and fans the
// messages it receives out to registered listeners.
type Notifier struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewNotifier builds a Notifier. An empty channel uses DefaultChannel.
func NewNotifier(client redis.UniversalClient, channel string, logger *slog.Logger) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// Publish broadcasts an event to every subscribed instance.
func (n *Notifier) Publish(ctx context.Context, event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("auth: encode session event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("auth: publish session event: %w", err)
	}
	return nil
}

// Listen registers fn for events received after Start.
func (n *Notifier) Listen(fn Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Start subscribes to the channel and dispatches messages until ctx is
// cancelled or the returned stop function is called. It returns once the
// subscription is confirmed.
func (n *Notifier) Start(ctx context.Context) (func(), error) {
	sub := n.client.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("auth: subscribe %s: %w", n.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				n.dispatch(msg.Payload)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (n *Notifier) dispatch(payload string) {
	var event SessionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		n.logger.Warn("discarding malformed session event", slog.Any("error", err))
		return
	}
	n.mu.RLock()
	listeners := append([]Listener(nil), n.listeners...)
	n.mu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}
}
