package wallet

import (
	"bytes"
	"crypto/rand"
	"encoding/ascii85"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// SchemeVersion is the only payload version understood.
const SchemeVersion = "x25519-xsalsa20-poly1305"

const (
	keySize   = 32
	nonceSize = 24
	headerLen = keySize + nonceSize
)

// ErrMalformedPayload is returned for blobs or request parameters that do
// not decode to a payload.
var ErrMalformedPayload = errors.New("wallet: malformed payload")

// Payload is the structured form of a wallet ciphertext.
type Payload struct {
	Version        string `json:"version"`
	EphemPublicKey string `json:"ephemPublicKey"`
	Nonce          string `json:"nonce"`
	Ciphertext     string `json:"ciphertext"`
}

// EncryptionKeyPair derives the wallet encryption key pair for an account
// key. The private half is the account key bytes used as an X25519 scalar.
func EncryptionKeyPair(accountKey []byte) (pub, priv *[keySize]byte, err error) {
	if len(accountKey) != keySize {
		return nil, nil, fmt.Errorf("wallet: account key must be %d bytes", keySize)
	}
	priv = new([keySize]byte)
	copy(priv[:], accountKey)
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	pub = new([keySize]byte)
	copy(pub[:], p)
	return pub, priv, nil
}

// SealPayload encrypts data to an encryption public key.
func SealPayload(pub *[keySize]byte, data []byte) (Payload, error) {
	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Payload{}, err
	}
	defer clear(ephPriv[:])
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Payload{}, err
	}
	ct := box.Seal(nil, encodeData(data), &nonce, pub, ephPriv)
	return Payload{
		Version:        SchemeVersion,
		EphemPublicKey: base64.StdEncoding.EncodeToString(ephPub[:]),
		Nonce:          base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext:     base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// OpenPayload decrypts p with the wallet's encryption private key and
// returns the boxed text, as eth_decrypt does.
func OpenPayload(p Payload, priv *[keySize]byte) (string, error) {
	if p.Version != SchemeVersion {
		return "", fmt.Errorf("%w: unsupported version %q", ErrMalformedPayload, p.Version)
	}
	eph, nonce, ct, err := p.parts()
	if err != nil {
		return "", err
	}
	pt, ok := box.Open(nil, ct, nonce, eph, priv)
	if !ok {
		return "", errors.New("wallet: payload not addressed to this key")
	}
	return string(pt), nil
}

// Pack returns the stored blob form of p.
func (p Payload) Pack() ([]byte, error) {
	eph, nonce, ct, err := p.parts()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, headerLen+len(ct))
	out = append(out, eph[:]...)
	out = append(out, nonce[:]...)
	return append(out, ct...), nil
}

// UnpackPayload splits a stored blob back into a payload.
func UnpackPayload(blob []byte) (Payload, error) {
	if len(blob) < headerLen+box.Overhead {
		return Payload{}, fmt.Errorf("%w: blob too short", ErrMalformedPayload)
	}
	return Payload{
		Version:        SchemeVersion,
		EphemPublicKey: base64.StdEncoding.EncodeToString(blob[:keySize]),
		Nonce:          base64.StdEncoding.EncodeToString(blob[keySize:headerLen]),
		Ciphertext:     base64.StdEncoding.EncodeToString(blob[headerLen:]),
	}, nil
}

// RequestParam returns the 0x-hex JSON form passed to eth_decrypt.
func (p Payload) RequestParam() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(raw), nil
}

// ParseRequestParam reverses RequestParam.
func ParseRequestParam(s string) (Payload, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return p, nil
}

func (p Payload) parts() (eph *[keySize]byte, nonce *[nonceSize]byte, ct []byte, err error) {
	e, err1 := base64.StdEncoding.DecodeString(p.EphemPublicKey)
	n, err2 := base64.StdEncoding.DecodeString(p.Nonce)
	ct, err3 := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(e) != keySize || len(n) != nonceSize || len(ct) < box.Overhead {
		return nil, nil, nil, fmt.Errorf("%w: bad field sizes", ErrMalformedPayload)
	}
	eph, nonce = new([keySize]byte), new([nonceSize]byte)
	copy(eph[:], e)
	copy(nonce[:], n)
	return eph, nonce, ct, nil
}

func encodeData(data []byte) []byte {
	out := make([]byte, ascii85.MaxEncodedLen(len(data)))
	return out[:ascii85.Encode(out, data)]
}

// DecodeData reverses the ASCII85 text a wallet returns from eth_decrypt.
func DecodeData(text string) ([]byte, error) {
	out := make([]byte, 4*len(text)+4)
	n, _, err := ascii85.Decode(out, []byte(text), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return out[:n], nil
}
