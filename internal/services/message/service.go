package message

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/protocol/history"
)

// DefaultPollInterval is how often a subscription checks for new blocks.
const DefaultPollInterval = 2 * time.Second

// Config tunes the message service.
type Config struct {
	// PollInterval is the subscription poll period; zero means DefaultPollInterval.
	PollInterval time.Duration
}

// Service sends and reads messages on a domain.MessageLog.
type Service struct {
	log    domain.MessageLog
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

// New returns a message service over ml.
func New(ml domain.MessageLog, cfg Config, logger *logging.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Service{log: ml, cfg: cfg, logger: logger, now: time.Now}
}

// Send encrypts text and appends it to the log.
func (s *Service) Send(ctx context.Context, sess domain.Session, text string) (domain.Receipt, error) {
	c, err := crypto.NewSessionCipher(sess.Secret[:])
	if err != nil {
		return domain.Receipt{}, err
	}
	ct, err := c.Encrypt([]byte(text))
	if err != nil {
		return domain.Receipt{}, err
	}
	rcpt, err := s.log.Append(ctx, sess.Self, sess.Peer, ct, s.now().UnixMilli())
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	s.logger.Debugf("sent to %s at block %d", sess.Peer.Short(), rcpt.Block)
	return rcpt, nil
}

// Fetch returns the full conversation ordered by timestamp. Entries that do
// not decrypt are kept and flagged Corrupt.
func (s *Service) Fetch(ctx context.Context, sess domain.Session) (domain.Conversation, error) {
	c, err := crypto.NewSessionCipher(sess.Secret[:])
	if err != nil {
		return nil, err
	}
	sent, received, err := s.query(ctx, sess, 0, 0)
	if err != nil {
		return nil, err
	}
	conv := history.Decrypt(sess.Self, history.Merge(sess.Self, sess.Peer, sent, received), c)
	if n := corrupt(conv); n > 0 {
		s.logger.Warningf("%d of %d messages with %s failed to decrypt", n, len(conv), sess.Peer.Short())
	}
	return conv, nil
}

// query reads both directions of the conversation in [from, to]. For a
// self-chat received is always empty.
func (s *Service) query(ctx context.Context, sess domain.Session, from, to uint64) (sent, received []domain.MessageEvent, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sent, err = s.log.Query(gctx, domain.MessageFilter{
			Sender: &sess.Self, Recipient: &sess.Peer, FromBlock: from, ToBlock: to,
		})
		return err
	})
	if !sess.IsSelfChat() {
		g.Go(func() (err error) {
			received, err = s.log.Query(gctx, domain.MessageFilter{
				Sender: &sess.Peer, Recipient: &sess.Self, FromBlock: from, ToBlock: to,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("query messages with %s: %w", sess.Peer, err)
	}
	return sent, received, nil
}

func corrupt(conv domain.Conversation) int {
	n := 0
	for _, e := range conv {
		if e.Corrupt {
			n++
		}
	}
	return n
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
