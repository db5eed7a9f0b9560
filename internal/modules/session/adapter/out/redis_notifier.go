package out

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// RedisNotifier publishes "sessions changed" signals on a pub/sub channel so
// other processes sharing the store can refresh. The message is the user id.
// A single worker publishes; signals for a user still waiting to go out
// coalesce into one.
type RedisNotifier struct {
	client  *goredis.Client
	channel string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewRedisNotifier(client *goredis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	n := &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
		pending: map[string]struct{}{},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.run()
	return n
}

// SessionsChanged queues a publish and returns at once; delivery failures
// are logged by the worker.
func (n *RedisNotifier) SessionsChanged(_ context.Context, userID string) {
	n.mu.Lock()
	n.pending[userID] = struct{}{}
	n.mu.Unlock()
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many users have a signal waiting to be published.
func (n *RedisNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Close stops the worker. Signals still queued are dropped.
func (n *RedisNotifier) Close() {
	n.once.Do(func() { close(n.done) })
	<-n.stopped
}

func (n *RedisNotifier) run() {
	defer close(n.stopped)
	for {
		select {
		case <-n.done:
			return
		case <-n.wake:
		}
		for _, userID := range n.takePending() {
			select {
			case <-n.done:
				return
			default:
			}
			n.publish(userID)
		}
	}
}

func (n *RedisNotifier) takePending() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	users := make([]string, 0, len(n.pending))
	for userID := range n.pending {
		users = append(users, userID)
	}
	clear(n.pending)
	return users
}

func (n *RedisNotifier) publish(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.client.Publish(ctx, n.channel, userID).Err(); err != nil {
		n.logger.Warn("publish sessions changed", "channel", n.channel, "user_id", userID, "error", err)
	}
}

// Subscribe calls onChange for every signal until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context, onChange func(userID string)) error {
	pubsub := n.client.Subscribe(ctx, n.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			onChange(msg.Payload)
		}
	}
}
