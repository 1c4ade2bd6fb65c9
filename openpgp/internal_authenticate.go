package openpgp

import (
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/security"
)

func checkInternalAuthenticate(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x88 {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x00 || p2 != 0x00 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleInternalAuthenticate implements INTERNAL AUTHENTICATE
// (INS 0x88).
func handleInternalAuthenticate(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkInternalAuthenticate(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	if !svc.Security.IsVerified(security.PW1User) {
		return nil, pgperr.New(pgperr.AccessDenied)
	}
	return svc.Crypto.Sign(keystore.Authentication, data)
}
