package algoattr

import (
	"bytes"
	"testing"

	"github.com/cardsim/openpgpcard/vfs"
)

func TestDecodeEncodeRSARoundtrip(t *testing.T) {
	raw := []byte{byte(AlgoRSA), 0x08, 0x00, 0x00, 0x11, RSAImportStdCRT}
	a, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a.ModulusBits != 2048 || a.ExponentBits != 17 {
		t.Fatalf("unexpected fields: %+v", a)
	}
	if !bytes.Equal(a.Encode(), raw) {
		t.Fatalf("Encode roundtrip mismatch: got %x want %x", a.Encode(), raw)
	}
}

func TestDecodeEncodeECRoundtrip(t *testing.T) {
	oid, err := NamedCurveOID("Curve25519")
	if err != nil {
		t.Fatalf("NamedCurveOID: %v", err)
	}
	raw := append([]byte{byte(AlgoECDH)}, oid...)
	a, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(a.OID, oid) {
		t.Fatalf("OID mismatch: got %x want %x", a.OID, oid)
	}
	if !bytes.Equal(a.Encode(), raw) {
		t.Fatalf("Encode roundtrip mismatch")
	}
}

func TestDecodeRejectsShortRSA(t *testing.T) {
	if _, err := Decode([]byte{byte(AlgoRSA), 0x08, 0x00}); err == nil {
		t.Fatalf("expected error for truncated RSA attribute")
	}
}

func TestDecodeRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0x00}); err == nil {
		t.Fatalf("expected error for unknown algorithm id")
	}
}

func TestLoadMissingReturnsDataNotFound(t *testing.T) {
	fs := vfs.New(vfs.NewMemoryBackend())
	if _, err := Load(fs, "appid", 0xC1); err == nil {
		t.Fatalf("expected error for missing algorithm attribute")
	}
}

func TestLoadRoundtripsThroughFS(t *testing.T) {
	fs := vfs.New(vfs.NewMemoryBackend())
	raw := []byte{byte(AlgoECDSA)}
	oid, _ := NamedCurveOID("NIST P-256")
	raw = append(raw, oid...)
	if err := fs.WriteFile("appid", 0xC1, vfs.File, raw); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	a, err := Load(fs, "appid", 0xC1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Algorithm != AlgoECDSA {
		t.Fatalf("expected ECDSA, got %v", a.Algorithm)
	}
}

func TestValidateEncoding(t *testing.T) {
	if err := ValidateEncoding([]byte{byte(AlgoRSA), 0x08, 0x00, 0x00, 0x11, RSAImportStandard}); err != nil {
		t.Fatalf("expected valid encoding, got %v", err)
	}
	if err := ValidateEncoding([]byte{0xFF}); err == nil {
		t.Fatalf("expected invalid encoding to error")
	}
}
