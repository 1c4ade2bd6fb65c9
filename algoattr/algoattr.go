// Package algoattr decodes and encodes the per-key algorithm attribute
// byte strings stored under data object tags 0xC1 (signature), 0xC2
// (decipherment) and 0xC3 (authentication), per OpenPGP Card v3.3.1
// §4.4.3.
package algoattr

import (
	"fmt"

	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/vfs"
)

// AlgorithmID is the first byte of an algorithm attribute blob.
type AlgorithmID byte

const (
	AlgoRSA   AlgorithmID = 0x01
	AlgoECDH  AlgorithmID = 0x12
	AlgoECDSA AlgorithmID = 0x13
	AlgoEdDSA AlgorithmID = 0x16
)

// RSAImportFormat values, sixth (last) byte of an RSA attribute blob.
const (
	RSAImportStandard  = 0x00
	RSAImportStdCRT    = 0x01
	RSAImportCRT       = 0x02
	RSAImportCRTNoMods = 0x03
)

// Attr is a decoded algorithm attribute record for one key slot.
type Attr struct {
	Algorithm AlgorithmID

	// RSA fields.
	ModulusBits  uint16
	ExponentBits uint16
	ImportFormat byte

	// ECC fields (ECDH/ECDSA/EdDSA).
	OID []byte
}

// Decode parses a raw algorithm attribute blob.
func Decode(raw []byte) (*Attr, error) {
	if len(raw) < 1 {
		return nil, pgperr.New(pgperr.StoredKeyParamsError)
	}
	a := &Attr{Algorithm: AlgorithmID(raw[0])}
	switch a.Algorithm {
	case AlgoRSA:
		if len(raw) < 6 {
			return nil, pgperr.New(pgperr.StoredKeyParamsError)
		}
		a.ModulusBits = uint16(raw[1])<<8 | uint16(raw[2])
		a.ExponentBits = uint16(raw[3])<<8 | uint16(raw[4])
		a.ImportFormat = raw[5]
	case AlgoECDH, AlgoECDSA, AlgoEdDSA:
		if len(raw) < 2 {
			return nil, pgperr.New(pgperr.StoredKeyParamsError)
		}
		a.OID = append([]byte(nil), raw[1:]...)
	default:
		return nil, pgperr.New(pgperr.StoredKeyParamsError)
	}
	return a, nil
}

// Encode serializes the attribute record back to its wire form.
func (a *Attr) Encode() []byte {
	switch a.Algorithm {
	case AlgoRSA:
		return []byte{
			byte(a.Algorithm),
			byte(a.ModulusBits >> 8), byte(a.ModulusBits),
			byte(a.ExponentBits >> 8), byte(a.ExponentBits),
			a.ImportFormat,
		}
	case AlgoECDH, AlgoECDSA, AlgoEdDSA:
		out := make([]byte, 0, 1+len(a.OID))
		out = append(out, byte(a.Algorithm))
		return append(out, a.OID...)
	default:
		return nil
	}
}

// Load reads and decodes the algorithm attribute blob stored at tag
// fileID (0xC1, 0xC2 or 0xC3) within appID's File region.
func Load(fs *vfs.FS, appID string, fileID uint32) (*Attr, error) {
	raw, err := fs.ReadFile(appID, fileID, vfs.File)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.StoredKeyError, err)
	}
	if len(raw) == 0 {
		return nil, pgperr.New(pgperr.DataNotFound)
	}
	attr, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return attr, nil
}

// ValidateEncoding checks that raw is a structurally valid algorithm
// attribute blob for one of the supported algorithms, without needing
// an *FS — used by PutData to reject malformed writes to 0xC1/0xC2/0xC3
// before they are persisted.
func ValidateEncoding(raw []byte) error {
	if _, err := Decode(raw); err != nil {
		return err
	}
	return nil
}

// NamedCurveOID returns the well-known OID bytes for the curves this
// applet supports.
func NamedCurveOID(name string) ([]byte, error) {
	switch name {
	case "NIST P-256":
		return []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}, nil
	case "Curve25519":
		return []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}, nil
	case "Ed25519":
		return []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}, nil
	default:
		return nil, fmt.Errorf("algoattr: unknown curve %q", name)
	}
}
