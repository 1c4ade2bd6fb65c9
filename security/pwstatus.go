package security

import "github.com/cardsim/openpgpcard/pgperr"

// PWStatusBytes is the packed 7-byte record stored at data object tag
// 0x00C4, per OpenPGP Card §4.4.2.
type PWStatusBytes struct {
	PW1ValidSeveralCDS byte
	PW1MaxLen          byte
	RCMaxLen           byte
	PW3MaxLen          byte
	PW1Tries           byte
	RCTries            byte
	PW3Tries           byte
}

// DefaultPWStatusBytes returns the factory-default status record: a
// single-use PW1-CDS, 127-byte max lengths, and 3 retries for every
// context.
func DefaultPWStatusBytes() *PWStatusBytes {
	return &PWStatusBytes{
		PW1ValidSeveralCDS: 0x00,
		PW1MaxLen:          127,
		RCMaxLen:           127,
		PW3MaxLen:          127,
		PW1Tries:           3,
		RCTries:            3,
		PW3Tries:           3,
	}
}

// Encode serializes the record to its 7-byte wire form.
func (p *PWStatusBytes) Encode() []byte {
	return []byte{
		p.PW1ValidSeveralCDS, p.PW1MaxLen, p.RCMaxLen, p.PW3MaxLen,
		p.PW1Tries, p.RCTries, p.PW3Tries,
	}
}

// DecodePWStatusBytes parses a 7-byte blob.
func DecodePWStatusBytes(raw []byte) (*PWStatusBytes, error) {
	if len(raw) != 7 {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	return &PWStatusBytes{
		PW1ValidSeveralCDS: raw[0],
		PW1MaxLen:          raw[1],
		RCMaxLen:           raw[2],
		PW3MaxLen:          raw[3],
		PW1Tries:           raw[4],
		RCTries:            raw[5],
		PW3Tries:           raw[6],
	}, nil
}

func (p *PWStatusBytes) tries(ctx Context) byte {
	switch ctx {
	case PW1CDS, PW1User:
		return p.PW1Tries
	case RC:
		return p.RCTries
	case PW3Admin:
		return p.PW3Tries
	default:
		return 0
	}
}

func (p *PWStatusBytes) setTries(ctx Context, v byte) {
	switch ctx {
	case PW1CDS, PW1User:
		p.PW1Tries = v
	case RC:
		p.RCTries = v
	case PW3Admin:
		p.PW3Tries = v
	}
}

func (p *PWStatusBytes) maxLen(ctx Context) byte {
	switch ctx {
	case PW1CDS, PW1User:
		return p.PW1MaxLen
	case RC:
		return p.RCMaxLen
	case PW3Admin:
		return p.PW3MaxLen
	default:
		return 0
	}
}
