// Package software is the reference Primitives implementation: a
// software-only RSA/ECC/AES/random provider standing in for the
// hardware crypto accelerator and RNG a real card would carry. It
// exists so the applet core can run and be tested without real
// silicon.
package software

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"

	"golang.org/x/crypto/curve25519"
)

// Provider implements cryptoengine.Primitives with stdlib crypto plus
// x/crypto/curve25519 for the Cv25519 ECDH slot.
type Provider struct{}

// New returns a software Provider.
func New() *Provider { return &Provider{} }

func (Provider) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("random bytes: %w", err)
	}
	return buf, nil
}

func (Provider) GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = 2048
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return priv, nil
}

// RSASign performs the raw RSA private-key operation on digest, which
// the host is responsible for padding (e.g. a DigestInfo / EMSA-PKCS1
// block) before sending — the card never re-hashes or re-pads.
func (Provider) RSASign(priv *rsa.PrivateKey, digest []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(digest)
	if c.Cmp(priv.N) >= 0 {
		return nil, fmt.Errorf("input larger than modulus")
	}
	m := new(big.Int).Exp(c, priv.D, priv.N)
	out := make([]byte, (priv.N.BitLen()+7)/8)
	m.FillBytes(out)
	return out, nil
}

// RSADecrypt performs PKCS#1v1.5 decryption of ciphertext.
func (Provider) RSADecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("RSA decrypt: %w", err)
	}
	return pt, nil
}

func curveFor(oid []byte) (elliptic.Curve, bool) {
	nistP256 := []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}
	if bytesEqual(oid, nistP256) {
		return elliptic.P256(), true
	}
	return nil, false
}

func isCurve25519(oid []byte) bool {
	cv25519 := []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}
	return bytesEqual(oid, cv25519)
}

func isEd25519(oid []byte) bool {
	ed25519OID := []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}
	return bytesEqual(oid, ed25519OID)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (Provider) GenerateECKeyPair(oid []byte) (privScalar, pubPoint []byte, err error) {
	switch {
	case isEd25519(oid):
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generate Ed25519 key: %w", err)
		}
		return priv.Seed(), pub, nil
	case isCurve25519(oid):
		var priv [32]byte
		if _, err := rand.Read(priv[:]); err != nil {
			return nil, nil, fmt.Errorf("generate X25519 key: %w", err)
		}
		pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
		if err != nil {
			return nil, nil, fmt.Errorf("derive X25519 public key: %w", err)
		}
		return priv[:], pub, nil
	default:
		curve, ok := curveFor(oid)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported curve OID %x", oid)
		}
		priv, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generate EC key: %w", err)
		}
		return priv, elliptic.Marshal(curve, x, y), nil
	}
}

func (Provider) ECDSASign(oid []byte, privScalar, digest []byte) ([]byte, error) {
	curve, ok := curveFor(oid)
	if !ok {
		return nil, fmt.Errorf("unsupported curve OID %x for ECDSA", oid)
	}
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = new(big.Int).SetBytes(privScalar)
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(privScalar)

	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, fmt.Errorf("ECDSA sign: %w", err)
	}
	size := (curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig, nil
}

func (Provider) EdDSASign(oid []byte, privScalar, msg []byte) ([]byte, error) {
	if !isEd25519(oid) {
		return nil, fmt.Errorf("unsupported curve OID %x for EdDSA", oid)
	}
	priv := ed25519.NewKeyFromSeed(privScalar)
	return ed25519.Sign(priv, msg), nil
}

func (Provider) ECDH(oid []byte, privScalar, peerPoint []byte) ([]byte, error) {
	if !isCurve25519(oid) {
		return nil, fmt.Errorf("unsupported curve OID %x for ECDH", oid)
	}
	shared, err := curve25519.X25519(privScalar, peerPoint)
	if err != nil {
		return nil, fmt.Errorf("X25519 ECDH: %w", err)
	}
	return shared, nil
}

func (Provider) AESEncryptCBC(key, plaintext []byte) ([]byte, error) {
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("plaintext length %d not a multiple of block size", len(plaintext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("AES key: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

func (Provider) AESDecryptCBC(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d not a multiple of block size", len(ciphertext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("AES key: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
