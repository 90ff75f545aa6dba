package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

// Inbox routes inbound private messages to whichever prompt is currently
// waiting for that user. At most one waiter per user: a user cannot be
// mid-setup and mid-check-in at the same time.
type Inbox struct {
	mu      sync.Mutex
	waiting map[domain.UserID]chan string
}

func NewInbox() *Inbox {
	return &Inbox{
		waiting: make(map[domain.UserID]chan string),
	}
}

// Deliver hands text to the user's waiting prompt. Returns false when no
// prompt is waiting, in which case the message is dropped by the caller.
func (i *Inbox) Deliver(id domain.UserID, text string) bool {
	i.mu.Lock()
	ch, ok := i.waiting[id]
	if ok {
		delete(i.waiting, id)
	}
	i.mu.Unlock()

	if !ok {
		return false
	}
	// Buffered channel: the waiter may have just timed out, the send must
	// not block here.
	ch <- text
	return true
}

// Await blocks for the user's next message, up to timeout. Returns
// domain.ErrSessionActive when another prompt already waits for this user,
// and domain.ErrAnswerTimeout when the deadline passes.
func (i *Inbox) Await(ctx context.Context, id domain.UserID, timeout time.Duration) (string, error) {
	ch, err := i.register(id)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-ch:
		return text, nil
	case <-timer.C:
		i.cancel(id, ch)
		return "", domain.ErrAnswerTimeout
	case <-ctx.Done():
		i.cancel(id, ch)
		return "", ctx.Err()
	}
}

func (i *Inbox) register(id domain.UserID) (chan string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, exists := i.waiting[id]; exists {
		return nil, domain.ErrSessionActive
	}
	ch := make(chan string, 1)
	i.waiting[id] = ch
	return ch, nil
}

// cancel removes the waiter unless a Deliver already claimed it.
func (i *Inbox) cancel(id domain.UserID, ch chan string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if cur, ok := i.waiting[id]; ok && cur == ch {
		delete(i.waiting, id)
	}
}
