package bringup_test

import (
	"bytes"
	"testing"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/bringup"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/vfs"
)

func TestDefaultConfigToAttrRoundtrips(t *testing.T) {
	cfg := bringup.DefaultConfig()
	fs := vfs.New(vfs.NewMemoryBackend())
	appID := string(cfg.AID)
	if err := bringup.Seed(fs, appID, cfg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	for _, tag := range []uint32{0x00C1, 0x00C2, 0x00C3} {
		raw, err := fs.ReadFile(appID, tag, vfs.File)
		if err != nil {
			t.Fatalf("read algoattr %x: %v", tag, err)
		}
		attr, err := algoattr.Decode(raw)
		if err != nil {
			t.Fatalf("decode algoattr %x: %v", tag, err)
		}
		if attr.Algorithm != algoattr.AlgoRSA || attr.ModulusBits != 2048 {
			t.Fatalf("expected RSA-2048 at %x, got %+v", tag, attr)
		}
	}
}

func TestSeedWritesAIDAndExtendedCapabilities(t *testing.T) {
	cfg := bringup.DefaultConfig()
	fs := vfs.New(vfs.NewMemoryBackend())
	appID := string(cfg.AID)
	if err := bringup.Seed(fs, appID, cfg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	aid, err := fs.ReadFile(appID, 0x004F, vfs.File)
	if err != nil {
		t.Fatalf("read AID: %v", err)
	}
	if !bytes.Equal(aid, cfg.AID) {
		t.Fatalf("expected stored AID to match config, got %x", aid)
	}

	caps, err := fs.ReadFile(appID, 0x00C0, vfs.File)
	if err != nil {
		t.Fatalf("read extended capabilities: %v", err)
	}
	if !bytes.Equal(caps, cfg.ExtendedCapability) {
		t.Fatalf("expected stored capabilities to match config, got %x", caps)
	}
}

func TestSeedSetsFactoryDefaultPasswordsAndActivatesCard(t *testing.T) {
	cfg := bringup.DefaultConfig()
	fs := vfs.New(vfs.NewMemoryBackend())
	appID := string(cfg.AID)
	if err := bringup.Seed(fs, appID, cfg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	sec := security.New(fs, appID, security.DefaultPolicy())
	if _, err := sec.VerifyPassword(security.PW1User, []byte("123456"), false); err != nil {
		t.Fatalf("expected factory PW1 to verify: %v", err)
	}
	if _, err := sec.VerifyPassword(security.PW3Admin, []byte("12345678"), false); err != nil {
		t.Fatalf("expected factory PW3 to verify: %v", err)
	}

	terminated, err := sec.IsTerminated()
	if err != nil {
		t.Fatalf("IsTerminated: %v", err)
	}
	if terminated {
		t.Fatalf("expected freshly seeded card to be activated")
	}
}

func TestNewAppletMatchesConfiguredAID(t *testing.T) {
	cfg := bringup.DefaultConfig()
	applet := bringup.NewApplet(cfg)
	if !applet.Matches(cfg.AID[:6]) {
		t.Fatalf("expected applet to match its own AID family prefix")
	}
}
