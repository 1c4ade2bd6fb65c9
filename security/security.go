// Package security owns the applet's three password contexts, their
// retry counters and KDF-DO derived verification, the DS signature
// counter, and the PutData access-control tables. It is the only
// component that flips the volatile "verified" flags handlers check.
package security

import (
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/vfs"
)

// Context identifies one of the applet's password contexts. RC (the
// resetting code) is not independently authenticable but can be
// verified to unlock a PW1 reset.
type Context int

const (
	PW1CDS Context = iota
	PW1User
	PW3Admin
	RC
)

// Real OpenPGP data object tags this package owns.
const (
	TagPWStatusBytes uint32 = 0x00C4
	TagKDFDO         uint32 = 0x00F9
)

// Internal (non-DO) storage tags for the password verifiers and DS
// counter, chosen outside the 16-bit BER tag space.
const (
	tagVerifierPW1 uint32 = 0x00020001
	tagVerifierRC  uint32 = 0x00020002
	tagVerifierPW3 uint32 = 0x00020003
	tagDSCounter   uint32 = 0x00020010
	tagTerminated  uint32 = 0x00020020
)

// Policy configures the PutData allow-list and secure-region routing.
// Whether the allow-list is enforced is a runtime configuration bit
// here, not a compile-time switch.
type Policy struct {
	EnforceAllowList bool
	AllowedTags      map[uint32]bool
	SecureTags       map[uint32]bool
}

// DefaultPolicy routes the private/sensitive tags to the Secure region
// and leaves the allow-list disabled (any tag may be written, subject
// to the per-tag validation every PutData call still performs).
//
// Algorithm attributes (0x00C1-0x00C3) are not confidential in
// OpenPGP 3.3.1 and every reader (algoattr.Load, bringup.Seed,
// handleGetData) reads them from the File region, so they stay out of
// SecureTags: routing them to Secure here would make a PutData write
// invisible to GetData and to key generation until the mismatch is
// also fixed on every read path.
func DefaultPolicy() Policy {
	return Policy{
		EnforceAllowList: false,
		AllowedTags:      map[uint32]bool{},
		SecureTags: map[uint32]bool{
			0x00D5: true, // AES key
			0x00F9: true, // KDF-DO
		},
	}
}

// Security is the applet-wide, process-wide singleton that owns auth
// state, retry counters, the DS counter and the ACL tables.
type Security struct {
	fs       *vfs.FS
	appID    string
	policy   Policy
	verified map[Context]bool
}

// New constructs a Security instance scoped to appID.
func New(fs *vfs.FS, appID string, policy Policy) *Security {
	return &Security{fs: fs, appID: appID, policy: policy, verified: make(map[Context]bool)}
}

// PowerUpReset clears every volatile auth flag: PW contexts reset to
// unverified on every power-up.
func (s *Security) PowerUpReset() {
	s.verified = make(map[Context]bool)
}

// IsVerified reports whether ctx currently has an active authorization.
func (s *Security) IsVerified(ctx Context) bool {
	return s.verified[ctx]
}

// ClearAuth explicitly clears ctx's verified flag (VERIFY P1=0xFF, and
// the implicit clears ResetRetryCounter performs).
func (s *Security) ClearAuth(ctx Context) {
	s.verified[ctx] = false
}

// LoadPWStatus reads the PW Status Bytes, returning the factory
// defaults (without storing them) if none are stored yet.
func (s *Security) LoadPWStatus() (*PWStatusBytes, error) {
	raw, err := s.fs.ReadFile(s.appID, TagPWStatusBytes, vfs.File)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.InternalError, err)
	}
	if len(raw) == 0 {
		return DefaultPWStatusBytes(), nil
	}
	return DecodePWStatusBytes(raw)
}

// SavePWStatus persists the PW Status Bytes.
func (s *Security) SavePWStatus(p *PWStatusBytes) error {
	if err := s.fs.WriteFile(s.appID, TagPWStatusBytes, vfs.File, p.Encode()); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

// RemainingTries reports ctx's current retry counter, for VERIFY's
// status-query form (P1=0x00, empty data).
func (s *Security) RemainingTries(ctx Context) (byte, error) {
	status, err := s.LoadPWStatus()
	if err != nil {
		return 0, err
	}
	return status.tries(ctx), nil
}

// ResetTries resets ctx's retry counter back to its maximum, used by
// ResetRetryCounter once the RC (or PW3) gate has been satisfied.
func (s *Security) ResetTries(ctx Context) error {
	status, err := s.LoadPWStatus()
	if err != nil {
		return err
	}
	status.setTries(ctx, maxTriesFor(ctx))
	return s.SavePWStatus(status)
}

// HasVerifier reports whether ctx has ever had a password set.
func (s *Security) HasVerifier(ctx Context) (bool, error) {
	raw, err := s.storedVerifier(ctx)
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// LoadKDFDO reads the KDF-DO configuration. installed is false when no
// KDF-DO has ever been written (algorithm defaults to KDFNone either
// way, but installed distinguishes "never configured" from "explicitly
// disabled").
func (s *Security) LoadKDFDO() (kdf *KDFDO, installed bool, err error) {
	raw, err := s.fs.ReadFile(s.appID, TagKDFDO, vfs.Secure)
	if err != nil {
		return nil, false, pgperr.Wrap(pgperr.InternalError, err)
	}
	if len(raw) == 0 {
		return &KDFDO{Algorithm: KDFNone}, false, nil
	}
	kdf, err = DecodeKDFDO(raw)
	if err != nil {
		return nil, false, err
	}
	return kdf, true, nil
}

// SaveKDFDO persists a new KDF-DO configuration.
func (s *Security) SaveKDFDO(kdf *KDFDO) error {
	if err := s.fs.WriteFile(s.appID, TagKDFDO, vfs.Secure, kdf.Encode()); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

func (s *Security) verifierTag(ctx Context) uint32 {
	switch ctx {
	case PW1CDS, PW1User:
		return tagVerifierPW1
	case RC:
		return tagVerifierRC
	case PW3Admin:
		return tagVerifierPW3
	default:
		return 0
	}
}

// storedVerifier returns the stored verifier bytes for ctx (raw
// password, or KDF-derived digest, depending on what was last written
// by ChangePassword/Reset).
func (s *Security) storedVerifier(ctx Context) ([]byte, error) {
	raw, err := s.fs.ReadFile(s.appID, s.verifierTag(ctx), vfs.Secure)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.InternalError, err)
	}
	return raw, nil
}

func (s *Security) setVerifier(ctx Context, verifier []byte) error {
	if err := s.fs.WriteFile(s.appID, s.verifierTag(ctx), vfs.Secure, verifier); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

// computeVerifier produces the byte string to compare against (or to
// store): the KDF-derived digest when a KDF-DO is installed for the
// algorithm ≠ none, otherwise the raw password bytes.
func (s *Security) computeVerifier(ctx Context, password []byte) ([]byte, error) {
	kdf, installed, err := s.LoadKDFDO()
	if err != nil {
		return nil, err
	}
	if !installed || kdf.Algorithm == KDFNone {
		return password, nil
	}
	digest, err := kdf.derive(ctx, password)
	if err != nil {
		return nil, pgperr.Wrap(pgperr.CryptoDataError, err)
	}
	return digest, nil
}

// VerifyPassword runs the standard 5-step verification algorithm
// against data. In strict mode (used by ChangeReferenceData / ResetRetryCounter,
// which receive old-password||new-password or RC||new-PW1 with no
// explicit separator) it tries successively longer prefixes of data
// as the candidate password and, on the first one that verifies,
// returns how many bytes were consumed.
func (s *Security) VerifyPassword(ctx Context, data []byte, strict bool) (consumed int, err error) {
	status, err := s.LoadPWStatus()
	if err != nil {
		return 0, err
	}
	if status.tries(ctx) == 0 {
		return 0, pgperr.New(pgperr.PasswordLocked)
	}

	if !strict {
		if err := s.tryOne(ctx, status, data); err != nil {
			return 0, err
		}
		return len(data), nil
	}

	maxLen := int(status.maxLen(ctx))
	if maxLen <= 0 || maxLen > len(data) {
		maxLen = len(data)
	}
	for n := 1; n <= maxLen; n++ {
		if s.verifies(ctx, data[:n]) {
			if err := s.tryOne(ctx, status, data[:n]); err != nil {
				return 0, err
			}
			return n, nil
		}
	}
	// No prefix verified: still counts as one failed attempt against
	// the full candidate. tryOne always returns a non-nil error on
	// this path since verifies(data) already failed inside the loop
	// above.
	err = s.tryOne(ctx, status, data)
	if err == nil {
		err = pgperr.New(pgperr.WrongPassword)
	}
	return 0, err
}

// verifies checks candidate without mutating retry counters, used by
// strict-mode prefix search.
func (s *Security) verifies(ctx Context, candidate []byte) bool {
	stored, err := s.storedVerifier(ctx)
	if err != nil || len(stored) == 0 {
		return false
	}
	computed, err := s.computeVerifier(ctx, candidate)
	if err != nil {
		return false
	}
	return constantTimeEqual(stored, computed)
}

// tryOne performs one verification attempt against the full counter
// update and verified-flag side effects.
func (s *Security) tryOne(ctx Context, status *PWStatusBytes, candidate []byte) error {
	if s.verifies(ctx, candidate) {
		status.setTries(ctx, maxTriesFor(ctx))
		if err := s.SavePWStatus(status); err != nil {
			return err
		}
		if ctx != RC {
			s.verified[ctx] = true
		}
		return nil
	}

	remaining := status.tries(ctx)
	if remaining > 0 {
		remaining--
	}
	status.setTries(ctx, remaining)
	if err := s.SavePWStatus(status); err != nil {
		return err
	}
	if remaining == 0 {
		return pgperr.New(pgperr.PasswordLocked)
	}
	return pgperr.WrongPasswordErr(int(remaining))
}

// maxTriesFor is the retry ceiling a successful verify resets to.
// Matches the factory default; a real deployment could make this
// configurable per-context, but OpenPGP Card does not expose a
// separate "max tries" DO distinct from the live counter.
func maxTriesFor(ctx Context) byte { return 3 }

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// ChangePassword stores newPassword as ctx's verifier (hashed through
// the active KDF-DO, if any) and leaves retry counters untouched
// (ChangeReferenceData only runs after a successful verify).
func (s *Security) ChangePassword(ctx Context, newPassword []byte) error {
	verifier, err := s.computeVerifier(ctx, newPassword)
	if err != nil {
		return err
	}
	return s.setVerifier(ctx, verifier)
}

// DataObjectInAllowedList reports whether tag may be written via
// PutData under the current policy.
func (s *Security) DataObjectInAllowedList(tag uint32) bool {
	if !s.policy.EnforceAllowList {
		return true
	}
	return s.policy.AllowedTags[tag]
}

// DataObjectInSecureArea reports whether tag's blob belongs in the
// Secure filesystem region rather than File.
func (s *Security) DataObjectInSecureArea(tag uint32) bool {
	return s.policy.SecureTags[tag]
}

// AfterSaveFileLogic refreshes any derived state following a PutData
// write. Presently a hook point only: algorithm-attribute and KDF-DO
// writes take effect purely by being re-read on next use, so there is
// nothing to recompute eagerly, but the hook exists so PutData's
// persist-then-refresh contract has somewhere for a future derived
// value to plug in.
func (s *Security) AfterSaveFileLogic(tag uint32) error {
	return nil
}

// IncDSCounter atomically increments the persisted 24-bit DS counter
// and returns its new value. A write failure is fatal: the caller must
// abort rather than report success with a stale counter.
func (s *Security) IncDSCounter() (uint32, error) {
	cur, err := s.GetDSCounter()
	if err != nil {
		return 0, err
	}
	next := (cur + 1) & 0x00FFFFFF
	raw := []byte{byte(next >> 16), byte(next >> 8), byte(next)}
	if err := s.fs.WriteFile(s.appID, tagDSCounter, vfs.File, raw); err != nil {
		return 0, pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return next, nil
}

// GetDSCounter returns the current DS counter value without mutating
// it.
func (s *Security) GetDSCounter() (uint32, error) {
	raw, err := s.fs.ReadFile(s.appID, tagDSCounter, vfs.File)
	if err != nil {
		return 0, pgperr.Wrap(pgperr.InternalError, err)
	}
	if len(raw) != 3 {
		return 0, nil
	}
	return uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2]), nil
}

// IsTerminated reports whether the applet is in the terminated
// (TERMINATE DF) lifecycle state, in which only ACTIVATE FILE and
// SELECT are meaningful.
func (s *Security) IsTerminated() (bool, error) {
	raw, err := s.fs.ReadFile(s.appID, tagTerminated, vfs.File)
	if err != nil {
		return false, pgperr.Wrap(pgperr.InternalError, err)
	}
	return len(raw) == 1 && raw[0] == 1, nil
}

// SetTerminated flips the terminated lifecycle flag.
func (s *Security) SetTerminated(terminated bool) error {
	v := byte(0)
	if terminated {
		v = 1
	}
	if err := s.fs.WriteFile(s.appID, tagTerminated, vfs.File, []byte{v}); err != nil {
		return pgperr.Wrap(pgperr.FileWriteError, err)
	}
	return nil
}

// AllPW3TriesExhausted reports whether PW3-admin has 0 retries left,
// the bricked-card condition TERMINATE DF is meant to recover from.
func (s *Security) AllPW3TriesExhausted() bool {
	status, err := s.LoadPWStatus()
	if err != nil {
		return false
	}
	return status.PW3Tries == 0
}

// PW1ValidSeveralCDS reports whether PW1-CDS remains verified across
// multiple PSO:CDS operations rather than being single-use.
func (s *Security) PW1ValidSeveralCDS() bool {
	status, err := s.LoadPWStatus()
	if err != nil {
		return false
	}
	return status.PW1ValidSeveralCDS != 0
}
