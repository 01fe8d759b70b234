package message

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/protocol/history"
)

// maxPollFailures is how many polls in a row may fail before a
// subscription gives up.
const maxPollFailures = 5

// Subscription follows a conversation until canceled.
//
// A callback that is already running when Cancel is called runs to
// completion; none starts after Cancel returns. Cancel waits for the
// delivery goroutine, so it must not be called from inside onMessage.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Cancel stops delivery. It is idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription stopped: the parent context error, or
// the last poll error. It is nil while running and after Cancel.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Subscribe delivers every message of the conversation appended after the
// call, in log order. Ordering for display is the caller's concern; Fetch
// always returns the timestamp order.
func (s *Service) Subscribe(
	ctx context.Context,
	sess domain.Session,
	onMessage func(domain.ConversationEntry),
) (domain.Subscription, error) {
	c, err := crypto.NewSessionCipher(sess.Secret[:])
	if err != nil {
		return nil, err
	}
	last, err := s.log.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer cancel()
		err := s.poll(runCtx, sess, c, last, onMessage)
		if perr := ctx.Err(); perr != nil {
			err = perr
		}
		if err != nil {
			sub.fail(err)
		}
	}()
	return sub, nil
}

// poll runs until ctx is done or polling keeps failing, in which case it
// returns the last poll error.
func (s *Service) poll(
	ctx context.Context,
	sess domain.Session,
	c domain.SymmetricCipher,
	last uint64,
	onMessage func(domain.ConversationEntry),
) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		latest, evs, err := s.since(ctx, sess, last)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			s.logger.Warningf("poll messages with %s (%d/%d): %v", sess.Peer.Short(), failures, maxPollFailures, err)
			if failures >= maxPollFailures {
				return fmt.Errorf("subscription stopped: %w", err)
			}
			continue
		}
		failures = 0

		for _, ev := range evs {
			if ctx.Err() != nil {
				return nil
			}
			onMessage(history.Entry(sess.Self, ev, c))
		}
		last = latest
	}
}

// since returns the new messages in (last, latest] in log order.
func (s *Service) since(ctx context.Context, sess domain.Session, last uint64) (uint64, []domain.MessageEvent, error) {
	latest, err := s.log.BlockNumber(ctx)
	if err != nil || latest <= last {
		return last, nil, err
	}
	sent, received, err := s.query(ctx, sess, last+1, latest)
	if err != nil {
		return last, nil, err
	}
	evs := append(sent, received...)
	slices.SortFunc(evs, func(a, b domain.MessageEvent) int {
		if c := cmp.Compare(a.Block, b.Block); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return latest, evs, nil
}

// Compile-time assertion that Subscription implements domain.Subscription.
var _ domain.Subscription = (*Subscription)(nil)
