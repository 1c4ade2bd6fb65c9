package openpgp

import (
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/security"
)

// handleTerminate implements TERMINATE DF (INS=0xE6), a bricked-card
// recovery path: reachable once PW3 has no tries left, or when PW3 is
// currently verified (an admin-initiated wipe). OpenPGP 3.3.1 implies
// this lifecycle recovery path without pinning its APDU encoding, so
// this applet settles on GlobalPlatform's TERMINATE DF / ACTIVATE
// FILE instruction pair for it.
func handleTerminate(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if !validCLA(cla) {
		return nil, pgperr.New(pgperr.WrongAPDUCLA)
	}
	if p1 != 0x00 || p2 != 0x00 {
		return nil, pgperr.New(pgperr.WrongAPDUP1P2)
	}
	if !svc.Security.IsVerified(security.PW3Admin) && !svc.Security.AllPW3TriesExhausted() {
		return nil, pgperr.New(pgperr.ConditionsNotSatisfied)
	}
	svc.Security.PowerUpReset()
	return nil, svc.Security.SetTerminated(true)
}

// handleActivate implements ACTIVATE FILE (INS=0x44): clears the
// terminated flag, returning the card to normal operation over its
// existing data objects. Factory re-seeding is a bring-up concern, not
// a handler one; callers that want a full wipe-and-reseed drive the
// bringup package directly after observing the terminated state.
func handleActivate(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if !validCLA(cla) {
		return nil, pgperr.New(pgperr.WrongAPDUCLA)
	}
	if p1 != 0x00 || p2 != 0x00 {
		return nil, pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil, svc.Security.SetTerminated(false)
}
