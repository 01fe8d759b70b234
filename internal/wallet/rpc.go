package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

// Provider error codes (EIP-1193).
const (
	codeUserRejected = 4001
	codeUnauthorized = 4100
	codeDisconnected = 4900
	codeChainDown    = 4901
)

// RPC talks JSON-RPC 2.0 over HTTP to an external wallet provider.
type RPC struct {
	URL  string
	HTTP *http.Client
}

// NewRPC returns a provider client for url.
func NewRPC(url string) *RPC { return &RPC{URL: url, HTTP: http.DefaultClient} }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// EncryptionPublicKey asks the provider for who's encryption key.
func (r *RPC) EncryptionPublicKey(ctx context.Context, who domain.Address) ([32]byte, error) {
	var b64 string
	if err := r.call(ctx, "eth_getEncryptionPublicKey", []any{who.String()}, &b64); err != nil {
		return [32]byte{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("%w: bad encryption key", domain.ErrProviderUnavailable)
	}
	var pub [32]byte
	copy(pub[:], raw)
	return pub, nil
}

// EncryptToWallet encrypts locally to the key the provider reports.
func (r *RPC) EncryptToWallet(ctx context.Context, who domain.Address, plaintext []byte) ([]byte, error) {
	pub, err := r.EncryptionPublicKey(ctx, who)
	if err != nil {
		return nil, err
	}
	p, err := SealPayload(&pub, plaintext)
	if err != nil {
		return nil, err
	}
	return p.Pack()
}

// DecryptAsWallet asks the provider to decrypt via eth_decrypt.
func (r *RPC) DecryptAsWallet(ctx context.Context, who domain.Address, ciphertext []byte) ([]byte, error) {
	p, err := UnpackPayload(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthorizationDenied, err)
	}
	param, err := p.RequestParam()
	if err != nil {
		return nil, err
	}
	var text string
	if err := r.call(ctx, "eth_decrypt", []any{param, who.String()}, &text); err != nil {
		return nil, err
	}
	return DecodeData(text)
}

// SignMessage asks the provider to sign msg via personal_sign and checks
// the signature recovers to who.
func (r *RPC) SignMessage(ctx context.Context, who domain.Address, msg []byte) ([]byte, error) {
	var out string
	if err := r.call(ctx, "personal_sign", []any{"0x" + hex.EncodeToString(msg), who.String()}, &out); err != nil {
		return nil, err
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(out, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: personal_sign: malformed signature", domain.ErrProviderUnavailable)
	}
	signer, err := crypto.RecoverAddress(msg, sig)
	if err != nil || signer != who {
		return nil, fmt.Errorf("%w: personal_sign: signature is not from %s", domain.ErrAuthorizationDenied, who)
	}
	return sig, nil
}

func (r *RPC) call(ctx context.Context, method string, params []any, out any) error {
	id := uuid.NewString()
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s %s", domain.ErrProviderUnavailable, method, resp.Status)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, method, err)
	}
	if rr.ID != id {
		return fmt.Errorf("%w: %s: response id mismatch", domain.ErrProviderUnavailable, method)
	}
	if rr.Error != nil {
		return mapRPCError(method, rr.Error)
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, method, err)
	}
	return nil
}

func mapRPCError(method string, e *rpcError) error {
	var sentinel error
	switch e.Code {
	case codeUserRejected:
		sentinel = domain.ErrUserRejected
	case codeUnauthorized:
		sentinel = domain.ErrAuthorizationDenied
	case codeDisconnected, codeChainDown:
		sentinel = domain.ErrProviderUnavailable
	default:
		// eth_decrypt reports a wrong recipient as a plain error.
		if method == "eth_decrypt" {
			sentinel = domain.ErrAuthorizationDenied
		} else {
			sentinel = domain.ErrProviderUnavailable
		}
	}
	return fmt.Errorf("%w: %s: %s (%d)", sentinel, method, e.Message, e.Code)
}

// Compile-time assertion that RPC implements domain.WalletProvider.
var _ domain.WalletProvider = (*RPC)(nil)
