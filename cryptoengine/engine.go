// Package cryptoengine is the contract between APDU handlers and the
// underlying cryptographic primitive provider and key storage. The
// primitive provider itself (RSA/ECC/AES/SHA/random) is a hardware
// accelerator on a real card; Primitives is the seam it plugs into.
package cryptoengine

import (
	"crypto/rsa"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/pgperr"
)

// Primitives is the boundary to the hardware/software crypto library.
// Every method's failure surfaces to callers as CryptoOperationError.
type Primitives interface {
	RandomBytes(n int) ([]byte, error)

	GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error)
	RSASign(priv *rsa.PrivateKey, digest []byte) ([]byte, error)
	RSADecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error)

	GenerateECKeyPair(oid []byte) (privScalar, pubPoint []byte, err error)
	ECDSASign(oid []byte, privScalar, digest []byte) (sig []byte, err error)
	EdDSASign(oid []byte, privScalar, msg []byte) ([]byte, error)
	ECDH(oid []byte, privScalar, peerPoint []byte) (shared []byte, err error)

	AESEncryptCBC(key, plaintext []byte) ([]byte, error)
	AESDecryptCBC(key, ciphertext []byte) ([]byte, error)
}

// Engine composes a Primitives provider with the applet's key storage.
type Engine struct {
	prim  Primitives
	store *keystore.Store
}

// New builds an Engine over prim and store.
func New(prim Primitives, store *keystore.Store) *Engine {
	return &Engine{prim: prim, store: store}
}

// RandomBytes returns n bytes from the underlying primitive provider's
// RNG, for GetChallenge.
func (e *Engine) RandomBytes(n int) ([]byte, error) {
	b, err := e.prim.RandomBytes(n)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
	}
	return b, nil
}

// Sign performs PSO:CDS / INTERNAL AUTHENTICATE style signing with the
// key stored in slot, dispatching on its algorithm.
func (e *Engine) Sign(slot keystore.Slot, digest []byte) ([]byte, error) {
	km, err := e.store.Load(slot)
	if err != nil {
		return nil, err
	}
	switch {
	case km.RSA != nil:
		if km.RSA.PublicOnly {
			return nil, pgperr.New(pgperr.StoredKeyError)
		}
		sig, err := e.prim.RSASign(km.RSA.privateKey(), digest)
		if err != nil {
			return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
		}
		return sig, nil
	case km.EC != nil:
		if km.EC.PublicOnly {
			return nil, pgperr.New(pgperr.StoredKeyError)
		}
		var sig []byte
		var err error
		if km.Algorithm == algoattr.AlgoEdDSA {
			sig, err = e.prim.EdDSASign(km.EC.OID, km.EC.PrivScalar, digest)
		} else {
			sig, err = e.prim.ECDSASign(km.EC.OID, km.EC.PrivScalar, digest)
		}
		if err != nil {
			return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
		}
		return sig, nil
	default:
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
}

// RSADecrypt deciphers an RSA ciphertext with the Confidentiality slot.
func (e *Engine) RSADecrypt(ciphertext []byte) ([]byte, error) {
	km, err := e.store.Load(keystore.Confidentiality)
	if err != nil {
		return nil, err
	}
	if km.RSA == nil || km.RSA.PublicOnly {
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
	pt, err := e.prim.RSADecrypt(km.RSA.privateKey(), ciphertext)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
	}
	return pt, nil
}

// ECDH computes the shared secret between the Confidentiality slot's
// private scalar and a host-supplied public point.
func (e *Engine) ECDH(peerPoint []byte) ([]byte, error) {
	km, err := e.store.Load(keystore.Confidentiality)
	if err != nil {
		return nil, err
	}
	if km.EC == nil || km.EC.PublicOnly {
		return nil, pgperr.New(pgperr.StoredKeyError)
	}
	shared, err := e.prim.ECDH(km.EC.OID, km.EC.PrivScalar, peerPoint)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
	}
	return shared, nil
}

// AESEncrypt/AESDecrypt perform PSO:ENCIPHER / mode-0x02 PSO:DECIPHER
// against the AES key slot (0xD5).
func (e *Engine) AESEncrypt(plaintext []byte) ([]byte, error) {
	key, err := e.store.LoadAES()
	if err != nil {
		return nil, err
	}
	ct, err := e.prim.AESEncryptCBC(key, plaintext)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
	}
	return ct, nil
}

func (e *Engine) AESDecrypt(ciphertext []byte) ([]byte, error) {
	key, err := e.store.LoadAES()
	if err != nil {
		return nil, err
	}
	pt, err := e.prim.AESDecryptCBC(key, ciphertext)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
	}
	return pt, nil
}

// GenerateKeyPair generates fresh key material for slot according to
// attr, persists it, and returns it (GenerateAsymmetricKeyPair P1=0x80).
func (e *Engine) GenerateKeyPair(slot keystore.Slot, attr *algoattr.Attr) (*keystore.KeyMaterial, error) {
	var km *keystore.KeyMaterial
	switch attr.Algorithm {
	case algoattr.AlgoRSA:
		priv, err := e.prim.GenerateRSAKeyPair(int(attr.ModulusBits))
		if err != nil {
			return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
		}
		km = &keystore.KeyMaterial{Algorithm: attr.Algorithm, RSA: keystore.RSAMaterialFromPrivateKey(priv)}
	case algoattr.AlgoECDH, algoattr.AlgoECDSA, algoattr.AlgoEdDSA:
		privScalar, pubPoint, err := e.prim.GenerateECKeyPair(attr.OID)
		if err != nil {
			return nil, pgperr.Wrap(pgperr.CryptoOperationError, err)
		}
		km = &keystore.KeyMaterial{Algorithm: attr.Algorithm, EC: &keystore.ECMaterial{
			OID:        attr.OID,
			PrivScalar: privScalar,
			PubPoint:   pubPoint,
		}}
	default:
		return nil, pgperr.New(pgperr.StoredKeyParamsError)
	}
	if err := e.store.Save(slot, km); err != nil {
		return nil, err
	}
	return km, nil
}

// PublicKey returns the stored public-key material for slot (GenKey
// P1=0x81, "read public").
func (e *Engine) PublicKey(slot keystore.Slot) (*keystore.KeyMaterial, error) {
	return e.store.Load(slot)
}

// ImportAES stores an AES key imported via PutData tag 0xD5.
func (e *Engine) ImportAES(key []byte) error {
	return e.store.SaveAES(key)
}
