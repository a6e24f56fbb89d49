package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Subscription is an owned background-refresh loop for one key.
// The owner must call Stop (or cancel the context passed to Poll) when it
// no longer consumes the key, so no refresh keeps writing into a key whose
// consumer is gone.
type Subscription struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop tears the loop down and waits until it has exited. Idempotent.
func (sub *Subscription) Stop() {
	sub.once.Do(func() { close(sub.stop) })
	<-sub.done
}

// Poll silently refreshes key on a fixed interval until the subscription
// is stopped or ctx is cancelled. Refresh failures are logged and the
// stale entry keeps being served; a key that has not been fetched yet is
// skipped until its first GetOrFetch registers a fetch.
func (s *Store) Poll(ctx context.Context, key string, every time.Duration) *Subscription {
	sub := &Subscription{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(sub.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx, key, true); err != nil && err != ErrUnknownKey && s.logger != nil {
					s.logger.Warn(fmt.Sprintf("cache: refreshing %q: %v", key, err), err)
				}
			}
		}
	}()
	return sub
}
