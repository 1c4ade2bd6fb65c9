package executor_test

import (
	"bytes"
	"testing"

	"github.com/cardsim/openpgpcard/bringup"
	"github.com/cardsim/openpgpcard/cryptoengine"
	"github.com/cardsim/openpgpcard/cryptoengine/software"
	"github.com/cardsim/openpgpcard/executor"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/openpgp"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/vfs"
)

func newTestCard(t *testing.T) (*executor.Executor, *openpgp.Services) {
	t.Helper()
	cfg := bringup.DefaultConfig()
	fs := vfs.New(vfs.NewMemoryBackend())
	if err := bringup.Seed(fs, string(cfg.AID), cfg); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	store := keystore.New(fs, string(cfg.AID))
	crypto := cryptoengine.New(software.New(), store)
	svc := openpgp.NewServices(fs, string(cfg.AID), crypto)
	applet := bringup.NewApplet(cfg)
	return executor.New(applet, svc), svc
}

func selectApplet(t *testing.T, e *executor.Executor) {
	t.Helper()
	resp := e.Execute([]byte{0x00, 0xA4, 0x04, 0x00, 0x06, 0xD2, 0x76, 0x00, 0x01, 0x24, 0x01})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("SELECT failed: %x", resp)
	}
}

func TestScenarioSelectOpenPGPApplet(t *testing.T) {
	e, _ := newTestCard(t)
	resp := e.Execute([]byte{0x00, 0xA4, 0x04, 0x00, 0x06, 0xD2, 0x76, 0x00, 0x01, 0x24, 0x01})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000, got %x", resp)
	}
	if !bytes.Contains(resp, []byte{0x6F}) {
		t.Fatalf("expected FCI template in response, got %x", resp)
	}
}

func TestScenarioVerifyWrongThenCorrect(t *testing.T) {
	e, _ := newTestCard(t)
	selectApplet(t, e)

	resp := e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x37})
	if !bytes.HasSuffix(resp, []byte{0x63, 0xC2}) {
		t.Fatalf("expected 63C2 (2 tries left), got %x", resp)
	}

	resp = e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 on correct PIN, got %x", resp)
	}

	resp = e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x00})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 on already-verified status query, got %x", resp)
	}
}

func TestScenarioChangeReferenceData(t *testing.T) {
	e, _ := newTestCard(t)
	selectApplet(t, e)

	resp := e.Execute([]byte{
		0x00, 0x24, 0x00, 0x82, 0x0C,
		0x31, 0x32, 0x33, 0x34, 0x35, 0x36,
		0x61, 0x62, 0x63, 0x64, 0x65, 0x66,
	})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000, got %x", resp)
	}

	resp = e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66})
	if !bytes.HasSuffix(resp, []byte{0x90, 0x00}) {
		t.Fatalf("expected new PIN to verify, got %x", resp)
	}
}

func TestScenarioGenerateAndReadPublicKey(t *testing.T) {
	e, _ := newTestCard(t)
	selectApplet(t, e)

	verify := e.Execute([]byte{0x00, 0x20, 0x00, 0x83, 0x08, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38})
	if !bytes.HasSuffix(verify, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 verifying PW3, got %x", verify)
	}

	generate := e.Execute([]byte{0x00, 0x47, 0x80, 0x00, 0x02, 0xB6, 0x00})
	if !bytes.HasSuffix(generate, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 generating keypair, got %x", generate)
	}
	if generate[0] != 0x7F || generate[1] != 0x49 {
		t.Fatalf("expected 7F49 template, got %x", generate)
	}

	readPublic := e.Execute([]byte{0x00, 0x47, 0x81, 0x00, 0x02, 0xB6, 0x00})
	if !bytes.HasSuffix(readPublic, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 reading public key, got %x", readPublic)
	}
	if readPublic[0] != 0x7F || readPublic[1] != 0x49 {
		t.Fatalf("expected 7F49 template, got %x", readPublic)
	}
}

func TestScenarioCDSWithoutVerifyIsDenied(t *testing.T) {
	e, _ := newTestCard(t)
	selectApplet(t, e)

	digest := bytes.Repeat([]byte{0xAB}, 32)
	req := append([]byte{0x00, 0x2A, 0x9E, 0x9A, byte(len(digest))}, digest...)
	resp := e.Execute(req)
	if !bytes.HasSuffix(resp, []byte{0x69, 0x82}) {
		t.Fatalf("expected 6982 AccessDenied, got %x", resp)
	}
}

func TestScenarioPutDataGetDataRoundtrip(t *testing.T) {
	e, _ := newTestCard(t)
	selectApplet(t, e)

	put := e.Execute([]byte{0x00, 0xDA, 0x00, 0x5E, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F})
	if !bytes.HasSuffix(put, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 on PutData, got %x", put)
	}

	get := e.Execute([]byte{0x00, 0xCA, 0x00, 0x5E, 0x00})
	want := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x90, 0x00}
	if !bytes.Equal(get, want) {
		t.Fatalf("expected %x, got %x", want, get)
	}
}

func TestUnselectedAppletReturnsConditionsNotSatisfied(t *testing.T) {
	e, _ := newTestCard(t)
	resp := e.Execute([]byte{0x00, 0xCA, 0x00, 0x5E, 0x00})
	if !bytes.HasSuffix(resp, []byte{0x69, 0x85}) {
		t.Fatalf("expected 6985, got %x", resp)
	}
}

func TestResetClearsSelectionAndAuth(t *testing.T) {
	e, svc := newTestCard(t)
	selectApplet(t, e)
	e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})

	e.Reset()

	if svc.Security.IsVerified(security.PW1User) {
		t.Fatalf("expected PW1 auth cleared after reset")
	}

	resp := e.Execute([]byte{0x00, 0xCA, 0x00, 0x5E, 0x00})
	if !bytes.HasSuffix(resp, []byte{0x69, 0x85}) {
		t.Fatalf("expected 6985 after reset clears selection, got %x", resp)
	}
}

func TestTerminateAndActivateLifecycle(t *testing.T) {
	e, svc := newTestCard(t)
	selectApplet(t, e)

	for i := 0; i < 3; i++ {
		e.Execute([]byte{0x00, 0x20, 0x00, 0x83, 0x08, 0x30, 0x30, 0x30, 0x30, 0x30, 0x30, 0x30, 0x30})
	}
	if !svc.Security.AllPW3TriesExhausted() {
		t.Fatalf("expected PW3 tries exhausted")
	}

	term := e.Execute([]byte{0x00, 0xE6, 0x00, 0x00})
	if !bytes.HasSuffix(term, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 on TERMINATE after PW3 exhausted, got %x", term)
	}

	blocked := e.Execute([]byte{0x00, 0xCA, 0x00, 0x5E, 0x00})
	if !bytes.HasSuffix(blocked, []byte{0x69, 0x85}) {
		t.Fatalf("expected 6985 while terminated, got %x", blocked)
	}

	activate := e.Execute([]byte{0x00, 0x44, 0x00, 0x00})
	if !bytes.HasSuffix(activate, []byte{0x90, 0x00}) {
		t.Fatalf("expected 9000 on ACTIVATE, got %x", activate)
	}
}
