package openpgp

import (
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/security"
)

func checkResetRetryCounter(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x2C {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x00 && p1 != 0x02 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	if p2 != 0x81 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleResetRetryCounter implements RESET RETRY COUNTER (INS 0x2C).
func handleResetRetryCounter(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkResetRetryCounter(cla, ins, p1, p2); err != nil {
		return nil, err
	}

	var newPW1 []byte
	switch p1 {
	case 0x02:
		if !svc.Security.IsVerified(security.PW3Admin) {
			return nil, pgperr.New(pgperr.ConditionsNotSatisfied)
		}
		newPW1 = data
	case 0x00:
		consumed, err := svc.Security.VerifyPassword(security.RC, data, true)
		if err != nil {
			return nil, err
		}
		newPW1 = data[consumed:]
	}

	if err := svc.Security.ChangePassword(security.PW1User, newPW1); err != nil {
		return nil, err
	}
	if err := svc.Security.ResetTries(security.PW1User); err != nil {
		return nil, err
	}
	svc.Security.ClearAuth(security.PW1User)
	svc.Security.ClearAuth(security.PW1CDS)

	hasPW3, err := svc.Security.HasVerifier(security.PW3Admin)
	if err != nil {
		return nil, err
	}
	if !hasPW3 {
		svc.Security.ClearAuth(security.PW3Admin)
	}
	return nil, nil
}
