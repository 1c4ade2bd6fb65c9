// Package executor parses raw APDU byte strings, routes SELECT and
// dispatches everything else to the currently selected applet's
// handler table, and maps the first error a handler returns to its
// status word.
package executor

import (
	"github.com/cardsim/openpgpcard/openpgp"
	"github.com/cardsim/openpgpcard/pgperr"
)

// Executor holds the process-wide selection state: exactly one applet
// selected at a time, persisting across APDUs until overwritten or
// the card is reset.
type Executor struct {
	applet   *openpgp.Applet
	services *openpgp.Services
	selected bool
}

// New builds an Executor over applet and services. The applet starts
// unselected, matching its state right after power-up.
func New(applet *openpgp.Applet, services *openpgp.Services) *Executor {
	return &Executor{applet: applet, services: services}
}

// Reset clears selection and volatile auth state, modeling a card
// reset / power-up.
func (e *Executor) Reset() {
	e.selected = false
	e.services.Security.PowerUpReset()
}

// caseOneCommand reports whether ins carries neither input data nor a
// response body (TERMINATE DF / ACTIVATE FILE): its APDU is either
// exactly the 4-byte header or the header plus a single trailing Le.
func caseOneCommand(ins byte) bool {
	return ins == 0xE6 || ins == 0x44
}

// caseTwoCommand reports whether ins expects no input data but does
// return a response body (GET DATA, GET CHALLENGE): its 5th byte is
// always Le, never Lc, per ISO 7816-4's case-2 command shape.
func caseTwoCommand(ins byte) bool {
	return ins == 0xCA || ins == 0xCB || ins == 0x84
}

type header struct {
	cla, ins, p1, p2 byte
	data             []byte
	le               int
}

func parseHeader(apdu []byte) (header, error) {
	if len(apdu) < 4 {
		return header{}, pgperr.New(pgperr.WrongAPDUStructure)
	}
	h := header{cla: apdu[0], ins: apdu[1], p1: apdu[2], p2: apdu[3]}

	switch {
	case caseOneCommand(h.ins):
		switch len(apdu) {
		case 4:
		case 5:
			h.le = int(apdu[4])
		default:
			return header{}, pgperr.New(pgperr.WrongAPDULength)
		}
	case caseTwoCommand(h.ins):
		if len(apdu) != 5 {
			return header{}, pgperr.New(pgperr.WrongAPDULength)
		}
		h.le = int(apdu[4])
	default:
		if len(apdu) < 5 {
			return header{}, pgperr.New(pgperr.WrongAPDUStructure)
		}
		lc := int(apdu[4])
		dataEnd := 5 + lc
		switch {
		case len(apdu) == dataEnd:
			h.data = apdu[5:dataEnd]
		case len(apdu) == dataEnd+1:
			h.data = apdu[5:dataEnd]
			h.le = int(apdu[dataEnd])
		default:
			return header{}, pgperr.New(pgperr.WrongAPDULength)
		}
	}
	return h, nil
}

// Execute runs one APDU to completion and returns its response,
// always ending in a well-formed SW1SW2.
func (e *Executor) Execute(apdu []byte) []byte {
	h, err := parseHeader(apdu)
	if err != nil {
		return appendSW(nil, err)
	}

	if h.ins == 0xA4 {
		return e.executeSelect(h)
	}

	terminated, err := e.terminatedUnlessBypassed(h)
	if err != nil {
		return appendSW(nil, err)
	}
	if terminated {
		return appendSW(nil, pgperr.New(pgperr.ApplicationTerminated))
	}

	if !e.selected {
		return appendSW(nil, pgperr.New(pgperr.ConditionsNotSatisfied))
	}

	handler, err := e.applet.Handler(h.ins)
	if err != nil {
		return appendSW(nil, err)
	}
	body, err := handler(e.services, h.cla, h.ins, h.p1, h.p2, h.data, h.le)
	if err != nil {
		if pe, ok := err.(*pgperr.Error); ok && pe.Kind == pgperr.ErrorPutInData {
			return body
		}
		return appendSW(body, err)
	}
	return appendSW(body, nil)
}

// terminatedUnlessBypassed reports whether the applet is in the
// TERMINATE DF state for any command other than ACTIVATE FILE, which
// must remain reachable to recover from it.
func (e *Executor) terminatedUnlessBypassed(h header) (bool, error) {
	if h.ins == 0x44 {
		return false, nil
	}
	return e.services.Security.IsTerminated()
}

func (e *Executor) executeSelect(h header) []byte {
	if h.cla != 0x00 || h.p1 != 0x04 || h.p2 != 0x00 {
		return appendSW(nil, pgperr.New(pgperr.WrongAPDUP1P2))
	}
	fci, err := e.applet.Select(h.data)
	if err != nil {
		e.selected = false
		return appendSW(nil, err)
	}
	e.selected = true
	return appendSW(fci, nil)
}

func appendSW(body []byte, err error) []byte {
	sw := pgperr.ToSW(err)
	sw1, sw2 := pgperr.SplitSW(sw)
	return append(append([]byte{}, body...), sw1, sw2)
}
