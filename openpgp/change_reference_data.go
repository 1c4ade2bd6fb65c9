package openpgp

import (
	"github.com/cardsim/openpgpcard/pgperr"
)

func checkChangeReferenceData(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x24 {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x00 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	if _, ok := pwContext(p2); !ok {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleChangeReferenceData implements CHANGE REFERENCE DATA
// (INS 0x24): data is current-password||new-password with the split
// inferred by a strict verify against the current verifier.
func handleChangeReferenceData(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkChangeReferenceData(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	ctx, _ := pwContext(p2)

	consumed, err := svc.Security.VerifyPassword(ctx, data, true)
	if err != nil {
		return nil, err
	}
	newPassword := data[consumed:]
	if err := svc.Security.ChangePassword(ctx, newPassword); err != nil {
		return nil, err
	}
	return nil, nil
}
