package identity

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/op/go-logging.v1"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

// ErrKeyMismatch means the unwrapped private key does not belong to the
// registered public key.
var ErrKeyMismatch = errors.New("unwrapped chat key does not match registered public key")

// Service registers and unlocks chat keys.
type Service struct {
	wallet   domain.WalletOracle
	registry domain.IdentityRegistry
	log      *logging.Logger
}

// New returns an identity service.
func New(w domain.WalletOracle, r domain.IdentityRegistry, log *logging.Logger) *Service {
	return &Service{wallet: w, registry: r, log: log}
}

// Registered reports whether self has a registry entry.
func (s *Service) Registered(ctx context.Context, self domain.Address) (bool, error) {
	_, ok, err := s.registry.Lookup(ctx, self)
	return ok, err
}

// Register creates a chat key for self and publishes it. The returned cipher
// is unlocked and owned by the caller.
func (s *Service) Register(ctx context.Context, self domain.Address) (domain.AsymmetricCipher, error) {
	ok, err := s.Registered(ctx, self)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, domain.ErrAlreadyRegistered
	}

	keys, err := crypto.GenerateECIES()
	if err != nil {
		return nil, err
	}
	priv := keys.ExportPrivateKey()
	wrapped, err := s.wallet.EncryptToWallet(ctx, self, priv)
	crypto.Wipe(priv)
	if err != nil {
		keys.Close()
		return nil, fmt.Errorf("wrap chat key: %w", err)
	}

	pub := keys.PublicKey()
	if err := s.registry.Register(ctx, self, wrapped, pub.X(), pub.YParity()); err != nil {
		keys.Close()
		return nil, fmt.Errorf("register %s: %w", self, err)
	}
	s.log.Noticef("registered %s, key %s", self, crypto.Fingerprint(pub))
	return keys, nil
}

// Login unwraps the registered chat key of self.
func (s *Service) Login(ctx context.Context, self domain.Address) (domain.AsymmetricCipher, error) {
	acct, ok, err := s.registry.Lookup(ctx, self)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotRegistered
	}

	priv, err := s.wallet.DecryptAsWallet(ctx, self, acct.WrappedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("unwrap chat key: %w", err)
	}
	keys, err := crypto.NewECIES(priv)
	crypto.Wipe(priv)
	if err != nil {
		return nil, fmt.Errorf("unwrap chat key: %w", err)
	}
	if keys.PublicKey() != acct.PublicKey() {
		keys.Close()
		return nil, ErrKeyMismatch
	}
	s.log.Debugf("unlocked chat key for %s", self)
	return keys, nil
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
