package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"ledgerchat/internal/domain"
)

// Fingerprint returns a short fingerprint of a chat public key, suitable for
// comparing out of band.
//
// It hashes the compressed key with SHA-256 and keeps 10 bytes, grouped in
// fours: "a1b2 c3d4 ...".
func Fingerprint(pub domain.CompressedPublicKey) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	h := hex.EncodeToString(sum[:10])

	out := make([]byte, 0, len(h)+len(h)/4)
	for i := 0; i < len(h); i += 4 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, h[i:i+4]...)
	}
	return domain.Fingerprint(out)
}
