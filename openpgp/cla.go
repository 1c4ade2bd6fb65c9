package openpgp

import "github.com/cardsim/openpgpcard/security"

// validCLA accepts CLA=0x00 plus the command-chaining (0x10) and
// secure-messaging (0x0C) bits set in any combination. Secure
// messaging bodies are out of scope, but the bit itself must not
// cause undefined behavior, so it is accepted and ignored, never
// interpreted as an encrypted channel.
func validCLA(cla byte) bool {
	return cla&^0x1C == 0x00
}

// pwContext maps a VERIFY/CHANGE/PSO P2 byte to its security.Context.
func pwContext(p2 byte) (ctx security.Context, ok bool) {
	switch p2 {
	case 0x81:
		return security.PW1CDS, true
	case 0x82:
		return security.PW1User, true
	case 0x83:
		return security.PW3Admin, true
	default:
		return 0, false
	}
}
