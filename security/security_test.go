package security

import (
	"testing"

	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/vfs"
)

func newTestSecurity(t *testing.T) *Security {
	t.Helper()
	fs := vfs.New(vfs.NewMemoryBackend())
	return New(fs, "D2760001240103040000000000000000", DefaultPolicy())
}

func kindOf(t *testing.T, err error) pgperr.Kind {
	t.Helper()
	pe, ok := err.(*pgperr.Error)
	if !ok {
		t.Fatalf("expected *pgperr.Error, got %T (%v)", err, err)
	}
	return pe.Kind
}

func TestVerifyPasswordMatchSetsVerifiedAndResetsTries(t *testing.T) {
	s := newTestSecurity(t)
	if err := s.ChangePassword(PW1User, []byte("123456")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := s.VerifyPassword(PW1User, []byte("000000"), false); err == nil {
		t.Fatalf("expected wrong-password error")
	}
	status, _ := s.LoadPWStatus()
	if status.PW1Tries != 2 {
		t.Fatalf("expected 2 tries left, got %d", status.PW1Tries)
	}

	if _, err := s.VerifyPassword(PW1User, []byte("123456"), false); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !s.IsVerified(PW1User) {
		t.Fatalf("expected PW1User verified")
	}
	status, _ = s.LoadPWStatus()
	if status.PW1Tries != 3 {
		t.Fatalf("expected tries reset to 3, got %d", status.PW1Tries)
	}
}

func TestVerifyPasswordLocksAfterThreeFailures(t *testing.T) {
	s := newTestSecurity(t)
	if err := s.ChangePassword(PW3Admin, []byte("12345678")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := s.VerifyPassword(PW3Admin, []byte("wrong"), false)
		if err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}

	_, err := s.VerifyPassword(PW3Admin, []byte("12345678"), false)
	if kindOf(t, err) != pgperr.PasswordLocked {
		t.Fatalf("expected PasswordLocked after exhausting tries, got %v", err)
	}
}

func TestVerifyPasswordStrictModeFindsPrefix(t *testing.T) {
	s := newTestSecurity(t)
	if err := s.ChangePassword(RC, []byte("resetcode")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	combined := append([]byte("resetcode"), []byte("newpw123")...)
	consumed, err := s.VerifyPassword(RC, combined, true)
	if err != nil {
		t.Fatalf("VerifyPassword strict: %v", err)
	}
	if consumed != len("resetcode") {
		t.Fatalf("expected consumed=%d, got %d", len("resetcode"), consumed)
	}
}

func TestDSCounterMonotonic(t *testing.T) {
	s := newTestSecurity(t)
	for expect := uint32(1); expect <= 3; expect++ {
		got, err := s.IncDSCounter()
		if err != nil {
			t.Fatalf("IncDSCounter: %v", err)
		}
		if got != expect {
			t.Fatalf("expected counter %d, got %d", expect, got)
		}
	}
	cur, err := s.GetDSCounter()
	if err != nil {
		t.Fatalf("GetDSCounter: %v", err)
	}
	if cur != 3 {
		t.Fatalf("expected 3, got %d", cur)
	}
}

func TestKDFDOChangesVerifierStorage(t *testing.T) {
	s := newTestSecurity(t)
	kdf := &KDFDO{
		Algorithm:      KDFIteratedSalted,
		HashAlgorithm:  HashSHA256,
		IterationCount: 1024,
		SaltPW1:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	if err := s.SaveKDFDO(kdf); err != nil {
		t.Fatalf("SaveKDFDO: %v", err)
	}
	if err := s.ChangePassword(PW1User, []byte("123456")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	stored, err := s.storedVerifier(PW1User)
	if err != nil {
		t.Fatalf("storedVerifier: %v", err)
	}
	if len(stored) != 32 {
		t.Fatalf("expected 32-byte SHA-256 digest, got %d bytes", len(stored))
	}

	if _, err := s.VerifyPassword(PW1User, []byte("123456"), false); err != nil {
		t.Fatalf("VerifyPassword with KDF-DO active: %v", err)
	}
}

func TestPowerUpResetClearsAuth(t *testing.T) {
	s := newTestSecurity(t)
	if err := s.ChangePassword(PW1User, []byte("123456")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := s.VerifyPassword(PW1User, []byte("123456"), false); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	s.PowerUpReset()
	if s.IsVerified(PW1User) {
		t.Fatalf("expected verified flag cleared after power-up reset")
	}
}

func TestAllowListDisabledByDefault(t *testing.T) {
	s := newTestSecurity(t)
	if !s.DataObjectInAllowedList(0x5E) {
		t.Fatalf("expected allow-list disabled by default")
	}
}

func TestSecureAreaRouting(t *testing.T) {
	s := newTestSecurity(t)
	if !s.DataObjectInSecureArea(0x00D5) {
		t.Fatalf("expected AES key tag 0x00D5 routed to secure area")
	}
	if s.DataObjectInSecureArea(0x005E) {
		t.Fatalf("expected login-data tag not routed to secure area")
	}
}
