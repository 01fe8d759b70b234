package ledger

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"

	"ledgerchat/internal/domain"
)

type accountRecord struct {
	Wrapped []byte   `cbor:"1,keyasint"`
	PubX    [32]byte `cbor:"2,keyasint"`
	Parity  bool     `cbor:"3,keyasint"`
	Block   uint64   `cbor:"4,keyasint"`
}

type linkRecord struct {
	Secret []byte `cbor:"1,keyasint"`
	Epoch  uint64 `cbor:"2,keyasint"`
	Block  uint64 `cbor:"3,keyasint"`
}

type linkEventRecord struct {
	Initializer domain.Address `cbor:"1,keyasint"`
	Peer        domain.Address `cbor:"2,keyasint"`
	Epoch       uint64         `cbor:"3,keyasint"`
}

type messageRecord struct {
	Sender     domain.Address `cbor:"1,keyasint"`
	Recipient  domain.Address `cbor:"2,keyasint"`
	Ciphertext []byte         `cbor:"3,keyasint"`
	Timestamp  int64          `cbor:"4,keyasint"`
	Index      uint64         `cbor:"5,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

func blockKey(block uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], block)
	return k[:]
}

func linkKey(owner, peer domain.Address) []byte {
	k := make([]byte, 0, 2*domain.AddressLength)
	k = append(k, owner[:]...)
	return append(k, peer[:]...)
}
