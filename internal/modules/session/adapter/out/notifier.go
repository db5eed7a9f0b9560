package out

import (
	"context"

	sessionout "habitkit/internal/modules/session/port/out"
	"habitkit/internal/platform/events"
)

// BroadcastNotifier signals in-process subscribers such as the dashboard.
type BroadcastNotifier struct {
	broadcaster *events.Broadcaster
}

func NewBroadcastNotifier(b *events.Broadcaster) BroadcastNotifier {
	return BroadcastNotifier{broadcaster: b}
}

func (n BroadcastNotifier) SessionsChanged(_ context.Context, userID string) {
	n.broadcaster.Publish(userID)
}

type multiNotifier []sessionout.Notifier

// FanOut delivers each signal to every non-nil notifier.
func FanOut(notifiers ...sessionout.Notifier) sessionout.Notifier {
	out := make(multiNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multiNotifier) SessionsChanged(ctx context.Context, userID string) {
	for _, n := range m {
		n.SessionsChanged(ctx, userID)
	}
}
