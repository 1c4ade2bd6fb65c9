package cryptoengine_test

import (
	"bytes"
	"testing"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/cryptoengine"
	"github.com/cardsim/openpgpcard/cryptoengine/software"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/vfs"
)

func newTestEngine(t *testing.T) *cryptoengine.Engine {
	t.Helper()
	fs := vfs.New(vfs.NewMemoryBackend())
	store := keystore.New(fs, "appid")
	return cryptoengine.New(software.New(), store)
}

func TestGenerateAndSignRSA(t *testing.T) {
	e := newTestEngine(t)
	attr := &algoattr.Attr{Algorithm: algoattr.AlgoRSA, ModulusBits: 1024, ExponentBits: 17, ImportFormat: algoattr.RSAImportStandard}
	if _, err := e.GenerateKeyPair(keystore.DigitalSignature, attr); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	digest := bytes.Repeat([]byte{0x01}, 20)
	sig, err := e.Sign(keystore.DigitalSignature, digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) == 0 {
		t.Fatalf("expected non-empty signature")
	}
}

func TestGenerateAndSignEd25519(t *testing.T) {
	e := newTestEngine(t)
	oid, _ := algoattr.NamedCurveOID("Ed25519")
	attr := &algoattr.Attr{Algorithm: algoattr.AlgoEdDSA, OID: oid}
	if _, err := e.GenerateKeyPair(keystore.Authentication, attr); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	sig, err := e.Sign(keystore.Authentication, []byte("challenge"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 64-byte Ed25519 signature, got %d", len(sig))
	}
}

func TestECDHCurve25519(t *testing.T) {
	e := newTestEngine(t)
	oid, _ := algoattr.NamedCurveOID("Curve25519")
	attr := &algoattr.Attr{Algorithm: algoattr.AlgoECDH, OID: oid}
	km, err := e.GenerateKeyPair(keystore.Confidentiality, attr)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	// Use the card's own public point as the "peer" to exercise the
	// ECDH path end-to-end without a second party.
	shared, err := e.ECDH(km.EC.PubPoint)
	if err != nil {
		t.Fatalf("ECDH: %v", err)
	}
	if len(shared) != 32 {
		t.Fatalf("expected 32-byte shared secret, got %d", len(shared))
	}
}

func TestAESRoundtrip(t *testing.T) {
	e := newTestEngine(t)
	if err := e.ImportAES(bytes.Repeat([]byte{0x42}, 16)); err != nil {
		t.Fatalf("ImportAES: %v", err)
	}
	plaintext := bytes.Repeat([]byte{0x11}, 32)
	ct, err := e.AESEncrypt(plaintext)
	if err != nil {
		t.Fatalf("AESEncrypt: %v", err)
	}
	pt, err := e.AESDecrypt(ct)
	if err != nil {
		t.Fatalf("AESDecrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("AES roundtrip mismatch")
	}
}

func TestSignPublicOnlyFails(t *testing.T) {
	fs := vfs.New(vfs.NewMemoryBackend())
	store := keystore.New(fs, "appid")
	e := cryptoengine.New(software.New(), store)

	oid, _ := algoattr.NamedCurveOID("NIST P-256")
	km := &keystore.KeyMaterial{Algorithm: algoattr.AlgoECDSA, EC: &keystore.ECMaterial{OID: oid, PublicOnly: true}}
	if err := store.Save(keystore.DigitalSignature, km); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := e.Sign(keystore.DigitalSignature, []byte("digest")); err == nil {
		t.Fatalf("expected error signing with a public-only key")
	}
}
