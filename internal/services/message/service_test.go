package message_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/ledger"
	"ledgerchat/internal/log"
	"ledgerchat/internal/services/message"
)

var (
	alice = domain.MustAddress("0x1111111111111111111111111111111111111111")
	bob   = domain.MustAddress("0x2222222222222222222222222222222222222222")
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), log.Discard().GetLogger("ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sessions(t *testing.T) (forAlice, forBob domain.Session) {
	t.Helper()
	secret, err := crypto.NewSessionSecret()
	require.NoError(t, err)
	return domain.Session{Self: alice, Peer: bob, Epoch: 1, Secret: secret},
		domain.Session{Self: bob, Peer: alice, Epoch: 1, Secret: secret}
}

func newService(ml domain.MessageLog, poll time.Duration) *message.Service {
	return message.New(ml, message.Config{PollInterval: poll}, log.Discard().GetLogger("message"))
}

// clock hands out the given timestamps in order.
func clock(ms ...int64) func() time.Time {
	var i int
	return func() time.Time {
		t := time.UnixMilli(ms[i])
		i++
		return t
	}
}

func TestSendFetch_OrderedByTimestamp(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	sa, sb := sessions(t)

	as := newService(l, 0)
	bs := newService(l, 0)
	as.SetClock(clock(5000, 3000))
	bs.SetClock(clock(1000))

	_, err := as.Send(ctx, sa, "five")
	require.NoError(t, err)
	_, err = bs.Send(ctx, sb, "one")
	require.NoError(t, err)
	_, err = as.Send(ctx, sa, "three")
	require.NoError(t, err)

	conv, err := bs.Fetch(ctx, sb)
	require.NoError(t, err)
	require.Len(t, conv, 3)

	var texts []string
	for _, e := range conv {
		require.False(t, e.Corrupt)
		texts = append(texts, e.Text)
	}
	require.Equal(t, []string{"one", "three", "five"}, texts)
	require.True(t, conv[0].Own)
	require.False(t, conv[1].Own)
	require.Equal(t, alice, conv[1].Sender)

	fromAlice, err := as.Fetch(ctx, sa)
	require.NoError(t, err)
	require.Len(t, fromAlice, 3)
	require.False(t, fromAlice[0].Own)
	require.True(t, fromAlice[2].Own)
}

func TestFetch_SelfChatShowsEachMessageOnce(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	secret, err := crypto.NewSessionSecret()
	require.NoError(t, err)
	self := domain.Session{Self: alice, Peer: alice, Epoch: 1, Secret: secret}

	s := newService(l, 0)
	_, err = s.Send(ctx, self, "note to self")
	require.NoError(t, err)

	conv, err := s.Fetch(ctx, self)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	require.True(t, conv[0].Own)
	require.Equal(t, "note to self", conv[0].Text)
}

func TestFetch_WrongSecretFlagsEntries(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	sa, sb := sessions(t)

	_, err := newService(l, 0).Send(ctx, sa, "hello")
	require.NoError(t, err)

	other, err := crypto.NewSessionSecret()
	require.NoError(t, err)
	sb.Secret = other

	conv, err := newService(l, 0).Fetch(ctx, sb)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	require.True(t, conv[0].Corrupt)
	require.ErrorIs(t, conv[0].Err, crypto.ErrDecryptionFailure)
}

type failingLog struct {
	domain.MessageLog
}

func (failingLog) Append(context.Context, domain.Address, domain.Address, []byte, int64) (domain.Receipt, error) {
	return domain.Receipt{}, errors.New("node unreachable")
}

func TestSend_RejectedAppendIsSubmissionFailure(t *testing.T) {
	sa, _ := sessions(t)
	_, err := newService(failingLog{}, 0).Send(context.Background(), sa, "lost")
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
}

type collector struct {
	mu      sync.Mutex
	entries []domain.ConversationEntry
}

func (c *collector) add(e domain.ConversationEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *collector) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Text)
	}
	return out
}

func TestSubscribe_DeliversNewMessagesOnly(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	sa, sb := sessions(t)
	as := newService(l, 10*time.Millisecond)
	bs := newService(l, 10*time.Millisecond)

	_, err := as.Send(ctx, sa, "before")
	require.NoError(t, err)

	var got collector
	sub, err := bs.Subscribe(ctx, sb, got.add)
	require.NoError(t, err)
	defer sub.Cancel()

	_, err = as.Send(ctx, sa, "first")
	require.NoError(t, err)
	_, err = bs.Send(ctx, sb, "second")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(got.texts()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"first", "second"}, got.texts())
}

func TestSubscribe_NoCallbackAfterCancel(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	sa, sb := sessions(t)
	as := newService(l, 5*time.Millisecond)

	var calls atomic.Int32
	sub, err := newService(l, 5*time.Millisecond).Subscribe(ctx, sb, func(domain.ConversationEntry) {
		calls.Add(1)
	})
	require.NoError(t, err)

	sub.Cancel()
	sub.Cancel()
	<-sub.Done()
	require.NoError(t, sub.Err())

	_, err = as.Send(ctx, sa, "too late")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func TestSubscribe_ParentCancelReportsContextError(t *testing.T) {
	l := openLedger(t)
	_, sb := sessions(t)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := newService(l, 5*time.Millisecond).Subscribe(ctx, sb, func(domain.ConversationEntry) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	require.ErrorIs(t, sub.Err(), context.Canceled)
}

type flakyLog struct {
	domain.MessageLog
	calls atomic.Int32
}

func (f *flakyLog) BlockNumber(ctx context.Context) (uint64, error) {
	if f.calls.Add(1) == 1 {
		return f.MessageLog.BlockNumber(ctx)
	}
	return 0, errors.New("node unreachable")
}

func TestSubscribe_StopsAfterRepeatedPollFailures(t *testing.T) {
	_, sb := sessions(t)
	fl := &flakyLog{MessageLog: openLedger(t)}

	sub, err := newService(fl, time.Millisecond).Subscribe(context.Background(), sb, func(domain.ConversationEntry) {})
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not give up")
	}
	require.ErrorContains(t, sub.Err(), "node unreachable")
}
