package openpgp

import "github.com/cardsim/openpgpcard/pgperr"

func checkGetChallenge(cla, ins, p1, p2 byte) error {
	if cla != 0x00 {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x84 {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x00 || p2 != 0x00 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleGetChallenge implements GET CHALLENGE (INS 0x84): Le=0 is
// interpreted as 255 random bytes, per ISO 7816-4 short-form Le
// convention.
func handleGetChallenge(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkGetChallenge(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	if len(data) != 0 {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	n := le
	if n == 0 {
		n = 255
	}
	return svc.Crypto.RandomBytes(n)
}
