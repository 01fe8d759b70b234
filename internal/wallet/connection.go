package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ledgerchat/internal/domain"
)

// ErrNotConnected is returned by a Connection that has no connected account.
var ErrNotConnected = errors.New("wallet: not connected")

// Connection is an explicit handle to a wallet provider for one account.
type Connection struct {
	provider domain.WalletProvider

	mu        sync.RWMutex
	addr      domain.Address
	connected bool
}

// NewConnection returns a disconnected handle for p.
func NewConnection(p domain.WalletProvider) *Connection {
	return &Connection{provider: p}
}

// Connect binds the handle to who after checking the provider can act for
// that account.
func (c *Connection) Connect(ctx context.Context, who domain.Address) error {
	if _, err := c.provider.EncryptionPublicKey(ctx, who); err != nil {
		return fmt.Errorf("connect %s: %w", who, err)
	}
	c.mu.Lock()
	c.addr, c.connected = who, true
	c.mu.Unlock()
	return nil
}

// Disconnect releases the account. It is safe to call more than once.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.addr, c.connected = domain.Address{}, false
	c.mu.Unlock()
}

// Address returns the connected account.
func (c *Connection) Address() (domain.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr, c.connected
}

// EncryptToWallet implements domain.WalletOracle for the connected account.
func (c *Connection) EncryptToWallet(ctx context.Context, who domain.Address, plaintext []byte) ([]byte, error) {
	if err := c.check(who); err != nil {
		return nil, err
	}
	return c.provider.EncryptToWallet(ctx, who, plaintext)
}

// DecryptAsWallet implements domain.WalletOracle for the connected account.
func (c *Connection) DecryptAsWallet(ctx context.Context, who domain.Address, ciphertext []byte) ([]byte, error) {
	if err := c.check(who); err != nil {
		return nil, err
	}
	return c.provider.DecryptAsWallet(ctx, who, ciphertext)
}

// SignMessage implements domain.AccountSigner for the connected account.
func (c *Connection) SignMessage(ctx context.Context, who domain.Address, msg []byte) ([]byte, error) {
	if err := c.check(who); err != nil {
		return nil, err
	}
	return c.provider.SignMessage(ctx, who, msg)
}

func (c *Connection) check(who domain.Address) error {
	addr, ok := c.Address()
	if !ok {
		return ErrNotConnected
	}
	if addr != who {
		return fmt.Errorf("%w: connected as %s", domain.ErrAuthorizationDenied, addr)
	}
	return nil
}

// Compile-time assertions that Connection serves as oracle and signer.
var (
	_ domain.WalletOracle  = (*Connection)(nil)
	_ domain.AccountSigner = (*Connection)(nil)
)
