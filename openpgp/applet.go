package openpgp

import (
	"bytes"

	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/tlv"
)

// AIDPrefix is the OpenPGP applet family prefix (RID + OpenPGP
// application identifier).
var AIDPrefix = []byte{0xD2, 0x76, 0x00, 0x01, 0x24, 0x01}

// Handler is a pure function over one APDU's parameters and the
// shared Services, returning the response body (without SW) or an
// error the executor maps to a status word.
type Handler func(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error)

// Applet is the single OpenPGP application this card hosts, closed
// over a static INS->Handler table.
type Applet struct {
	AID      []byte
	handlers map[byte]Handler
}

// NewApplet builds the OpenPGP applet with its full instance AID
// (family prefix + version + manufacturer + serial) and its static
// handler table.
func NewApplet(aid []byte) *Applet {
	return &Applet{
		AID: aid,
		handlers: map[byte]Handler{
			0x20: handleVerify,
			0x24: handleChangeReferenceData,
			0x2C: handleResetRetryCounter,
			0xCA: handleGetData,
			0xCB: handleGetData,
			0xDA: handlePutData,
			0xDB: handlePutData,
			0x2A: handlePSO,
			0x88: handleInternalAuthenticate,
			0x47: handleGenerateAsymmetricKeyPair,
			0x84: handleGetChallenge,
			0xE6: handleTerminate,
			0x44: handleActivate,
		},
	}
}

// Matches reports whether candidate (the SELECT command's data field)
// names this applet, by AID-family prefix.
func (a *Applet) Matches(candidate []byte) bool {
	return len(candidate) >= len(AIDPrefix) && bytes.Equal(candidate[:len(AIDPrefix)], AIDPrefix)
}

// Select builds the FCI template returned on a successful SELECT.
func (a *Applet) Select(data []byte) ([]byte, error) {
	if !a.Matches(data) {
		return nil, pgperr.New(pgperr.ApplicationNotFound)
	}
	aidTag := tlv.Build([]byte{0x4F}, a.AID)
	return tlv.BuildNested([]byte{0x6F}, aidTag), nil
}

// Handler looks up the handler for ins, or WrongAPDUINS if none is
// registered.
func (a *Applet) Handler(ins byte) (Handler, error) {
	h, ok := a.handlers[ins]
	if !ok {
		return nil, pgperr.New(pgperr.WrongAPDUINS)
	}
	return h, nil
}
