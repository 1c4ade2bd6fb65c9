// Package keystore persists RSA/ECC key material for the applet's
// three key slots (signature, decipherment, authentication) plus an
// AES slot, and synthesizes the 7F49 public-key template the GenKey
// and PSO handlers return.
package keystore

import (
	"crypto/rsa"
	"encoding/json"
	"math/big"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/tlv"
	"github.com/cardsim/openpgpcard/vfs"
)

// Slot identifies one of the three OpenPGP key references.
type Slot int

const (
	DigitalSignature Slot = iota
	Confidentiality
	Authentication
)

// FileID returns the data object tag conventionally associated with
// this slot's algorithm attributes (0xC1/0xC2/0xC3).
func (s Slot) FileID() uint32 {
	switch s {
	case DigitalSignature:
		return 0x00C1
	case Confidentiality:
		return 0x00C2
	case Authentication:
		return 0x00C3
	default:
		return 0
	}
}

// internalTag is the private, non-DO storage key used for key
// material; chosen outside the 0x0000-0xFFFF BER tag space so it can
// never collide with a real data object tag.
func internalTag(s Slot) uint32 { return 0x00010000 | uint32(s) }

const aesInternalTag = 0x00010010

// RSAMaterial holds an RSA keypair, or just the public half when the
// slot was populated by "import public key only".
type RSAMaterial struct {
	N          []byte `json:"n"`
	E          int    `json:"e"`
	D          []byte `json:"d,omitempty"`
	P          []byte `json:"p,omitempty"`
	Q          []byte `json:"q,omitempty"`
	PublicOnly bool   `json:"public_only"`
}

// ECMaterial holds an EC keypair (ECDSA/EdDSA/ECDH), or just the
// public point.
type ECMaterial struct {
	OID        []byte `json:"oid"`
	PrivScalar []byte `json:"priv,omitempty"`
	PubPoint   []byte `json:"pub"`
	PublicOnly bool   `json:"public_only"`
}

// KeyMaterial is the tagged union persisted per slot.
type KeyMaterial struct {
	Algorithm algoattr.AlgorithmID `json:"algorithm"`
	RSA       *RSAMaterial         `json:"rsa,omitempty"`
	EC        *ECMaterial          `json:"ec,omitempty"`
}

// Store wraps the applet's vfs.FS for key-material persistence.
type Store struct {
	fs    *vfs.FS
	appID string
}

// New returns a key Store scoped to appID.
func New(fs *vfs.FS, appID string) *Store {
	return &Store{fs: fs, appID: appID}
}

// Save persists key material for slot.
func (s *Store) Save(slot Slot, km *KeyMaterial) error {
	raw, err := json.Marshal(km)
	if err != nil {
		return pgperr.Wrap(pgperr.InternalError, err)
	}
	if err := s.fs.WriteFile(s.appID, internalTag(slot), vfs.Secure, raw); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

// Load reads back key material for slot. Returns StoredKeyError if the
// slot is empty.
func (s *Store) Load(slot Slot) (*KeyMaterial, error) {
	raw, err := s.fs.ReadFile(s.appID, internalTag(slot), vfs.Secure)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.StoredKeyError, err)
	}
	if len(raw) == 0 {
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
	var km KeyMaterial
	if err := json.Unmarshal(raw, &km); err != nil {
		return nil, pgperr.Wrap(pgperr.StoredKeyError, err)
	}
	return &km, nil
}

// SaveAES persists the symmetric key imported at tag 0xD5.
func (s *Store) SaveAES(key []byte) error {
	if err := s.fs.WriteFile(s.appID, aesInternalTag, vfs.Secure, key); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

// LoadAES returns the stored AES key, or StoredKeyError if unset.
func (s *Store) LoadAES() ([]byte, error) {
	raw, err := s.fs.ReadFile(s.appID, aesInternalTag, vfs.Secure)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.StoredKeyError, err)
	}
	if len(raw) == 0 {
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
	return raw, nil
}

// RSAPublicKey reconstructs a *rsa.PublicKey from stored material.
func (m *RSAMaterial) RSAPublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{N: new(big.Int).SetBytes(m.N), E: m.E}
}

// privateKey reconstructs a *rsa.PrivateKey from stored material. Only
// valid when PublicOnly is false.
func (m *RSAMaterial) privateKey() *rsa.PrivateKey {
	priv := &rsa.PrivateKey{
		PublicKey: *m.RSAPublicKey(),
		D:         new(big.Int).SetBytes(m.D),
	}
	if len(m.P) > 0 && len(m.Q) > 0 {
		priv.Primes = []*big.Int{new(big.Int).SetBytes(m.P), new(big.Int).SetBytes(m.Q)}
		priv.Precompute()
	}
	return priv
}

// RSAMaterialFromPrivateKey captures a *rsa.PrivateKey's parts for
// persistence.
func RSAMaterialFromPrivateKey(priv *rsa.PrivateKey) *RSAMaterial {
	m := &RSAMaterial{
		N: priv.PublicKey.N.Bytes(),
		E: priv.PublicKey.E,
		D: priv.D.Bytes(),
	}
	if len(priv.Primes) == 2 {
		m.P = priv.Primes[0].Bytes()
		m.Q = priv.Primes[1].Bytes()
	}
	return m
}

// PublicKeyTemplate builds the 7F49 TLV template for slot's stored
// public key, per OpenPGP Card §4.3.3.6/4.3.3.7.
func PublicKeyTemplate(km *KeyMaterial) ([]byte, error) {
	switch {
	case km.RSA != nil:
		modulus := tlv.Build([]byte{0x81}, km.RSA.N)
		eBytes := big.NewInt(int64(km.RSA.E)).Bytes()
		exponent := tlv.Build([]byte{0x82}, eBytes)
		return tlv.BuildNested([]byte{0x7F, 0x49}, modulus, exponent), nil
	case km.EC != nil:
		point := tlv.Build([]byte{0x86}, km.EC.PubPoint)
		return tlv.BuildNested([]byte{0x7F, 0x49}, point), nil
	default:
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
}
