package openpgp

import (
	"github.com/cardsim/openpgpcard/pgperr"
)

// checkVerify validates VERIFY's (CLA,INS,P1,P2), independent of data.
func checkVerify(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x20 {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x00 && p1 != 0xFF {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	if _, ok := pwContext(p2); !ok {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleVerify implements VERIFY (INS 0x20).
func handleVerify(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkVerify(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	ctx, _ := pwContext(p2)

	if p1 == 0xFF {
		if len(data) != 0 {
			return nil, pgperr.New(pgperr.WrongAPDUDataLength)
		}
		svc.Security.ClearAuth(ctx)
		return nil, nil
	}

	// p1 == 0x00
	if len(data) == 0 {
		if svc.Security.IsVerified(ctx) {
			return nil, nil
		}
		tries, err := svc.Security.RemainingTries(ctx)
		if err != nil {
			return nil, err
		}
		return nil, pgperr.WrongPasswordErr(int(tries))
	}

	if _, err := svc.Security.VerifyPassword(ctx, data, false); err != nil {
		return nil, err
	}
	return nil, nil
}
