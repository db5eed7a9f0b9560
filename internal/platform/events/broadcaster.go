package events

import "sync"

// Broadcaster fans a payload-free "sessions changed" signal out to in-process
// subscribers. Each subscription buffers one pending signal; further signals
// coalesce into it, so Publish never blocks.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

type subscription struct {
	userID string
	ch     chan struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]subscription{}}
}

// Subscribe registers for signals about userID ("" receives every user's
// signals). The returned func unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(userID string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = subscription{userID: userID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.userID != "" && sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}
