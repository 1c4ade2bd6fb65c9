package security

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/tlv"
)

// KDF algorithm identifiers for data object 0x00F9.
const (
	KDFNone           = 0x00
	KDFIteratedSalted = 0x03
)

// Hash algorithm identifiers used by KDF-DO.
const (
	HashSHA256 = 0x08
	HashSHA512 = 0x0A
)

// KDFDO is the decoded key-derivation policy configured at tag 0x00F9.
type KDFDO struct {
	Algorithm        byte
	HashAlgorithm    byte
	IterationCount   uint32
	SaltPW1          []byte
	SaltRC           []byte
	SaltPW3          []byte
	InitialPW1Digest []byte
	InitialPW3Digest []byte
}

// Sub-tags inside the 0x00F9 constructed data object.
const (
	tagKDFAlgorithm      = 0x81
	tagKDFHash           = 0x82
	tagKDFIterationCount = 0x83
	tagKDFSaltPW1        = 0x84
	tagKDFSaltRC         = 0x85
	tagKDFSaltPW3        = 0x86
	tagKDFInitialPW1     = 0x87
	tagKDFInitialPW3     = 0x88
)

// DecodeKDFDO parses the tag-0x00F9 blob. An empty blob is not an
// error: it means no KDF-DO is installed.
func DecodeKDFDO(raw []byte) (*KDFDO, error) {
	if len(raw) == 0 {
		return &KDFDO{Algorithm: KDFNone}, nil
	}
	k := &KDFDO{Algorithm: KDFNone}
	for _, n := range tlv.Parse(raw) {
		switch n.Tag {
		case tagKDFAlgorithm:
			if len(n.Data) != 1 {
				return nil, pgperr.New(pgperr.TLVDecodeError)
			}
			k.Algorithm = n.Data[0]
		case tagKDFHash:
			if len(n.Data) != 1 {
				return nil, pgperr.New(pgperr.TLVDecodeError)
			}
			k.HashAlgorithm = n.Data[0]
		case tagKDFIterationCount:
			if len(n.Data) != 4 {
				return nil, pgperr.New(pgperr.TLVDecodeError)
			}
			k.IterationCount = uint32(n.Data[0])<<24 | uint32(n.Data[1])<<16 | uint32(n.Data[2])<<8 | uint32(n.Data[3])
		case tagKDFSaltPW1:
			k.SaltPW1 = append([]byte(nil), n.Data...)
		case tagKDFSaltRC:
			k.SaltRC = append([]byte(nil), n.Data...)
		case tagKDFSaltPW3:
			k.SaltPW3 = append([]byte(nil), n.Data...)
		case tagKDFInitialPW1:
			k.InitialPW1Digest = append([]byte(nil), n.Data...)
		case tagKDFInitialPW3:
			k.InitialPW3Digest = append([]byte(nil), n.Data...)
		}
	}
	return k, nil
}

// Encode rebuilds the tag-0x00F9 blob's contents (without the outer
// tag/length, matching how PutData/GetData exchange the inner DOs).
func (k *KDFDO) Encode() []byte {
	var parts [][]byte
	parts = append(parts, tlv.Build([]byte{tagKDFAlgorithm}, []byte{k.Algorithm}))
	if k.Algorithm == KDFNone {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}
	parts = append(parts, tlv.Build([]byte{tagKDFHash}, []byte{k.HashAlgorithm}))
	parts = append(parts, tlv.Build([]byte{tagKDFIterationCount}, []byte{
		byte(k.IterationCount >> 24), byte(k.IterationCount >> 16), byte(k.IterationCount >> 8), byte(k.IterationCount),
	}))
	if len(k.SaltPW1) > 0 {
		parts = append(parts, tlv.Build([]byte{tagKDFSaltPW1}, k.SaltPW1))
	}
	if len(k.SaltRC) > 0 {
		parts = append(parts, tlv.Build([]byte{tagKDFSaltRC}, k.SaltRC))
	}
	if len(k.SaltPW3) > 0 {
		parts = append(parts, tlv.Build([]byte{tagKDFSaltPW3}, k.SaltPW3))
	}
	if len(k.InitialPW1Digest) > 0 {
		parts = append(parts, tlv.Build([]byte{tagKDFInitialPW1}, k.InitialPW1Digest))
	}
	if len(k.InitialPW3Digest) > 0 {
		parts = append(parts, tlv.Build([]byte{tagKDFInitialPW3}, k.InitialPW3Digest))
	}
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newHash(alg byte) (hash.Hash, error) {
	switch alg {
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported KDF hash algorithm %02X", alg)
	}
}

// salt returns the context's configured salt, if any.
func (k *KDFDO) salt(ctx Context) []byte {
	switch ctx {
	case PW1CDS, PW1User:
		return k.SaltPW1
	case RC:
		return k.SaltRC
	case PW3Admin:
		return k.SaltPW3
	default:
		return nil
	}
}

// derive runs the iterated-salted-S2K algorithm the KDF-DO configures:
// the hash is fed salt||input repeatedly until exactly count octets
// have been hashed.
func (k *KDFDO) derive(ctx Context, input []byte) ([]byte, error) {
	h, err := newHash(k.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	salt := k.salt(ctx)
	block := append(append([]byte{}, salt...), input...)
	if len(block) == 0 {
		return nil, fmt.Errorf("empty salt+input block")
	}
	remaining := int(k.IterationCount)
	for remaining > 0 {
		n := len(block)
		if n > remaining {
			n = remaining
		}
		h.Write(block[:n])
		remaining -= n
	}
	return h.Sum(nil), nil
}
