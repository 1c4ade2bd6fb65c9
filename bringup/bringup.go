// Package bringup seeds an OpenPGP applet's factory-default data
// objects, the way a device's reset routine writes its defaults to
// flash on first boot. It is driven by a JSON config file so the CLI
// can describe a card's initial state declaratively.
package bringup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/openpgp"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/vfs"
)

// randomSerial derives 4 serial-number bytes from a fresh random
// UUID, rather than pulling in a standalone RNG dependency just for
// this.
func randomSerial() []byte {
	id := uuid.New()
	return id[:4]
}

// AlgoAttrConfig is the JSON shape for one slot's factory algorithm
// attribute.
type AlgoAttrConfig struct {
	Algorithm    string `json:"algorithm"` // "RSA", "ECDH", "ECDSA", "EdDSA"
	ModulusBits  uint16 `json:"modulus_bits,omitempty"`
	ExponentBits uint16 `json:"exponent_bits,omitempty"`
	ImportFormat byte   `json:"import_format,omitempty"`
	Curve        string `json:"curve,omitempty"` // NamedCurveOID name
}

// Config is the bringup.json shape: the applet's instance AID and the
// factory-default algorithm attributes for its three key slots.
type Config struct {
	AID                []byte         `json:"aid"`
	ExtendedCapability []byte         `json:"extended_capabilities"`
	SignatureAlgo      AlgoAttrConfig `json:"signature_algorithm"`
	DecryptionAlgo     AlgoAttrConfig `json:"decryption_algorithm"`
	AuthenticationAlgo AlgoAttrConfig `json:"authentication_algorithm"`
}

// DefaultConfig is the factory configuration used when no bringup.json
// is supplied: RSA-2048 across all three slots, matching a typical
// OpenPGP Card factory state.
func DefaultConfig() *Config {
	rsa2048 := AlgoAttrConfig{Algorithm: "RSA", ModulusBits: 2048, ExponentBits: 17, ImportFormat: algoattr.RSAImportStdCRT}
	return &Config{
		AID:                []byte{0xD2, 0x76, 0x00, 0x01, 0x24, 0x01, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		ExtendedCapability: []byte{0x7C, 0x00, 0xFF, 0x00, 0xFF, 0x04, 0x30, 0x00, 0x00, 0x00},
		SignatureAlgo:      rsa2048,
		DecryptionAlgo:     rsa2048,
		AuthenticationAlgo: rsa2048,
	}
}

// LoadConfig reads a bringup.json file from path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bringup config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode bringup config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c AlgoAttrConfig) toAttr() (*algoattr.Attr, error) {
	switch c.Algorithm {
	case "RSA":
		return &algoattr.Attr{
			Algorithm: algoattr.AlgoRSA, ModulusBits: c.ModulusBits,
			ExponentBits: c.ExponentBits, ImportFormat: c.ImportFormat,
		}, nil
	case "ECDH", "ECDSA", "EdDSA":
		oid, err := algoattr.NamedCurveOID(c.Curve)
		if err != nil {
			return nil, err
		}
		id := map[string]algoattr.AlgorithmID{
			"ECDH": algoattr.AlgoECDH, "ECDSA": algoattr.AlgoECDSA, "EdDSA": algoattr.AlgoEdDSA,
		}[c.Algorithm]
		return &algoattr.Attr{Algorithm: id, OID: oid}, nil
	default:
		return nil, fmt.Errorf("bringup: unknown algorithm %q", c.Algorithm)
	}
}

// Seed writes appID's factory-default data objects and clears the
// terminated flag, the way opgputil's device reset routine establishes
// a fresh card. Existing data is overwritten; callers decide when that
// is appropriate (first boot, or after a TERMINATE/ACTIVATE cycle).
func Seed(fs *vfs.FS, appID string, cfg *Config) error {
	if err := fs.WriteFile(appID, 0x004F, vfs.File, cfg.AID); err != nil {
		return err
	}
	if err := fs.WriteFile(appID, 0x00C0, vfs.File, cfg.ExtendedCapability); err != nil {
		return err
	}

	slots := []struct {
		tag  uint32
		conf AlgoAttrConfig
	}{
		{0x00C1, cfg.SignatureAlgo},
		{0x00C2, cfg.DecryptionAlgo},
		{0x00C3, cfg.AuthenticationAlgo},
	}
	for _, s := range slots {
		attr, err := s.conf.toAttr()
		if err != nil {
			return err
		}
		if err := fs.WriteFile(appID, s.tag, vfs.File, attr.Encode()); err != nil {
			return err
		}
	}

	if err := fs.WriteFile(appID, security.TagPWStatusBytes, vfs.File,
		security.DefaultPWStatusBytes().Encode()); err != nil {
		return err
	}

	sec := security.New(fs, appID, security.DefaultPolicy())
	if err := sec.ChangePassword(security.PW1User, []byte("123456")); err != nil {
		return err
	}
	if err := sec.ChangePassword(security.PW3Admin, []byte("12345678")); err != nil {
		return err
	}
	return sec.SetTerminated(false)
}

// NewApplet constructs the openpgp.Applet described by cfg's AID.
func NewApplet(cfg *Config) *openpgp.Applet {
	return openpgp.NewApplet(cfg.AID)
}

// WithRandomSerial returns a copy of cfg with its AID's serial number
// field (bytes 10-13: RID, application, version and manufacturer
// stay fixed) replaced by four random bytes, so repeated bringups
// don't collide on the same instance identity.
func WithRandomSerial(cfg *Config) *Config {
	out := *cfg
	out.AID = append([]byte{}, cfg.AID...)
	copy(out.AID[10:14], randomSerial())
	return &out
}
