package keystore

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/vfs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	fs := vfs.New(vfs.NewMemoryBackend())
	return New(fs, "appid")
}

func TestSaveLoadRSARoundtrip(t *testing.T) {
	s := newTestStore(t)
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	km := &KeyMaterial{Algorithm: algoattr.AlgoRSA, RSA: RSAMaterialFromPrivateKey(priv)}
	if err := s.Save(DigitalSignature, km); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(DigitalSignature)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RSA == nil || !bytes.Equal(got.RSA.N, priv.N.Bytes()) {
		t.Fatalf("loaded RSA material mismatch")
	}
	if got.RSA.PublicOnly {
		t.Fatalf("expected PublicOnly=false for a generated private key")
	}
}

func TestLoadEmptySlotErrors(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(Authentication); err == nil {
		t.Fatalf("expected error loading empty slot")
	}
}

func TestSaveLoadAESKey(t *testing.T) {
	s := newTestStore(t)
	key := bytes.Repeat([]byte{0xAB}, 16)
	if err := s.SaveAES(key); err != nil {
		t.Fatalf("SaveAES: %v", err)
	}
	got, err := s.LoadAES()
	if err != nil {
		t.Fatalf("LoadAES: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("AES key mismatch")
	}
}

func TestLoadAESMissingErrors(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadAES(); err == nil {
		t.Fatalf("expected error loading unset AES key")
	}
}

func TestPublicKeyTemplateRSA(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	km := &KeyMaterial{Algorithm: algoattr.AlgoRSA, RSA: RSAMaterialFromPrivateKey(priv)}
	tpl, err := PublicKeyTemplate(km)
	if err != nil {
		t.Fatalf("PublicKeyTemplate: %v", err)
	}
	if len(tpl) < 4 || tpl[0] != 0x7F || tpl[1] != 0x49 {
		t.Fatalf("expected 7F49 template, got %x", tpl)
	}
}

func TestPublicKeyTemplateEC(t *testing.T) {
	oid, _ := algoattr.NamedCurveOID("NIST P-256")
	km := &KeyMaterial{Algorithm: algoattr.AlgoECDSA, EC: &ECMaterial{OID: oid, PubPoint: bytes.Repeat([]byte{0x04}, 65)}}
	tpl, err := PublicKeyTemplate(km)
	if err != nil {
		t.Fatalf("PublicKeyTemplate: %v", err)
	}
	if tpl[0] != 0x7F || tpl[1] != 0x49 {
		t.Fatalf("expected 7F49 template, got %x", tpl)
	}
}

func TestPublicKeyTemplateEmptyErrors(t *testing.T) {
	if _, err := PublicKeyTemplate(&KeyMaterial{}); err == nil {
		t.Fatalf("expected error for empty key material")
	}
}
