package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/protocol/link"
)

// DefaultScanChunk is the block span of one link-event query.
const DefaultScanChunk = 2000

// Config tunes contact discovery.
type Config struct {
	// ScanFromBlock is the first block searched for link events.
	ScanFromBlock uint64
	// ScanChunk is the block span of one query; zero means DefaultScanChunk.
	ScanChunk uint64
}

// Service manages the sessions of one logged-in account.
type Service struct {
	self     domain.Address
	keys     domain.AsymmetricCipher
	ledger   domain.Ledger
	contacts domain.ContactStore
	cfg      Config
	log      *logging.Logger

	mu       sync.Mutex
	sessions map[domain.Address]*domain.Session
}

// New returns a session service for self. contacts may be nil, in which
// case discovery always scans from cfg.ScanFromBlock.
func New(
	self domain.Address,
	keys domain.AsymmetricCipher,
	ledger domain.Ledger,
	contacts domain.ContactStore,
	cfg Config,
	log *logging.Logger,
) *Service {
	if cfg.ScanChunk == 0 {
		cfg.ScanChunk = DefaultScanChunk
	}
	return &Service{
		self:     self,
		keys:     keys,
		ledger:   ledger,
		contacts: contacts,
		cfg:      cfg,
		log:      log,
		sessions: make(map[domain.Address]*domain.Session),
	}
}

// Launch creates the first session link with peer.
func (s *Service) Launch(ctx context.Context, peer domain.Address) (domain.Session, error) {
	acct, err := s.peerAccount(ctx, peer)
	if err != nil {
		return domain.Session{}, err
	}
	// The ledger refuses the launch if either side already linked the pair.
	return s.publish(ctx, peer, acct, s.ledger.LaunchLink)
}

// Rotate replaces the session link with peer by a fresh secret.
func (s *Service) Rotate(ctx context.Context, peer domain.Address) (domain.Session, error) {
	acct, err := s.peerAccount(ctx, peer)
	if err != nil {
		return domain.Session{}, err
	}
	old, linked, err := s.ledger.ReadLink(ctx, s.self, peer)
	if err != nil {
		return domain.Session{}, err
	}
	if linked {
		s.log.Warningf("rotating link with %s past epoch %d; %s must resolve again to read new messages",
			peer, old.Epoch, peer.Short())
	}
	return s.publish(ctx, peer, acct, s.ledger.PublishLink)
}

// Resolve reads and opens our half of the link with peer.
func (s *Service) Resolve(ctx context.Context, peer domain.Address) (domain.Session, error) {
	l, ok, err := s.ledger.ReadLink(ctx, s.self, peer)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrNotLinked
	}

	s.mu.Lock()
	cached, hit := s.sessions[peer]
	if hit && cached.Epoch == l.Epoch {
		defer s.mu.Unlock()
		return *cached, nil
	}
	s.mu.Unlock()

	secret, err := link.Open(s.keys, l.Secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("open link with %s: %w", peer, err)
	}
	sess := domain.Session{Self: s.self, Peer: peer, Epoch: l.Epoch, Secret: secret}
	s.remember(sess)
	s.log.Debugf("resolved session with %s epoch %d", peer.Short(), l.Epoch)
	return sess, nil
}

// State reports how far the pair with peer has progressed. A cached
// session only counts as Resolved while it matches the link's epoch.
func (s *Service) State(ctx context.Context, peer domain.Address) (domain.SessionState, error) {
	l, ok, err := s.ledger.ReadLink(ctx, s.self, peer)
	if err != nil {
		return domain.Unlinked, err
	}
	if !ok {
		return domain.Unlinked, nil
	}
	s.mu.Lock()
	cached, hit := s.sessions[peer]
	resolved := hit && cached.Epoch == l.Epoch
	s.mu.Unlock()
	if resolved {
		return domain.Resolved, nil
	}
	return domain.Linked, nil
}

// Contacts returns every account we share a link with, in the order the
// links first appeared.
func (s *Service) Contacts(ctx context.Context) ([]domain.Address, error) {
	var (
		found []domain.Address
		from  = s.cfg.ScanFromBlock
	)
	if s.contacts != nil {
		cached, scannedTo, ok, err := s.contacts.LoadContacts(s.self)
		if err != nil {
			return nil, err
		}
		if ok {
			found = cached
			from = max(from, scannedTo+1)
		}
	}

	latest, err := s.ledger.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.Address]bool, len(found))
	for _, a := range found {
		seen[a] = true
	}
	for start := from; start <= latest; start += s.cfg.ScanChunk {
		end := min(start+s.cfg.ScanChunk-1, latest)
		evs, err := s.scanChunk(ctx, start, end)
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			other := ev.Peer
			if other == s.self {
				other = ev.Initializer
			}
			if other == s.self || seen[other] {
				continue
			}
			seen[other] = true
			found = append(found, other)
		}
	}

	if s.contacts != nil && latest >= from {
		if err := s.contacts.SaveContacts(s.self, found, latest); err != nil {
			s.log.Warningf("cache contacts: %v", err)
		}
	}
	return found, nil
}

// scanChunk returns link events in [from, to] where we are either side,
// in block order.
func (s *Service) scanChunk(ctx context.Context, from, to uint64) ([]domain.LinkEvent, error) {
	var outgoing, incoming []domain.LinkEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		outgoing, err = s.ledger.LinkEvents(gctx, domain.LinkFilter{Initializer: &s.self, FromBlock: from, ToBlock: to})
		return err
	})
	g.Go(func() (err error) {
		incoming, err = s.ledger.LinkEvents(gctx, domain.LinkFilter{Peer: &s.self, FromBlock: from, ToBlock: to})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan link events %d-%d: %w", from, to, err)
	}

	merged := make([]domain.LinkEvent, 0, len(outgoing)+len(incoming))
	i, j := 0, 0
	for i < len(outgoing) || j < len(incoming) {
		if j == len(incoming) || (i < len(outgoing) && outgoing[i].Block <= incoming[j].Block) {
			merged = append(merged, outgoing[i])
			i++
		} else {
			merged = append(merged, incoming[j])
			j++
		}
	}
	return merged, nil
}

// Close wipes every cached session secret.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for peer, sess := range s.sessions {
		sess.Secret.Wipe()
		delete(s.sessions, peer)
	}
}

func (s *Service) peerAccount(ctx context.Context, peer domain.Address) (domain.RegisteredAccount, error) {
	acct, ok, err := s.ledger.Lookup(ctx, peer)
	if err != nil {
		return domain.RegisteredAccount{}, err
	}
	if !ok {
		return domain.RegisteredAccount{}, domain.ErrPeerNotRegistered
	}
	return acct, nil
}

type publishFunc func(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte) (domain.LinkEvent, error)

func (s *Service) publish(ctx context.Context, peer domain.Address, acct domain.RegisteredAccount, submit publishFunc) (domain.Session, error) {
	secret, err := crypto.NewSessionSecret()
	if err != nil {
		return domain.Session{}, err
	}
	forSelf, forPeer, err := link.Seal(s.keys, acct.PublicKey(), secret)
	if err != nil {
		secret.Wipe()
		return domain.Session{}, err
	}
	ev, err := submit(ctx, s.self, peer, forSelf, forPeer)
	if err != nil {
		secret.Wipe()
		if errors.Is(err, domain.ErrAlreadyLinked) {
			return domain.Session{}, domain.ErrAlreadyLinked
		}
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	sess := domain.Session{Self: s.self, Peer: peer, Epoch: ev.Epoch, Secret: secret}
	s.remember(sess)
	s.log.Infof("linked with %s epoch %d at block %d", peer.Short(), ev.Epoch, ev.Block)
	return sess, nil
}

func (s *Service) remember(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[sess.Peer]; ok {
		old.Secret.Wipe()
	}
	s.sessions[sess.Peer] = &sess
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
