package openpgp

import (
	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/pgperr"
)

func checkGenerateAsymmetricKeyPair(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x47 {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if p1 != 0x80 && p1 != 0x81 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	if p2 != 0x00 {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handleGenerateAsymmetricKeyPair implements GENERATE ASYMMETRIC KEY
// PAIR (INS 0x47). data is a 2-byte control reference template
// (0xB6/0xB8/0xA4, length 0) naming the slot.
func handleGenerateAsymmetricKeyPair(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkGenerateAsymmetricKeyPair(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	if len(data) < 1 {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	slot, ok := crtTagToSlot(uint32(data[0]))
	if !ok {
		return nil, pgperr.New(pgperr.WrongAPDUP1P2)
	}

	var km *keystore.KeyMaterial
	if p1 == 0x80 {
		attr, err := algoattr.Load(svc.FS, svc.AppID, slot.FileID())
		if err != nil {
			return nil, err
		}
		km, err = svc.Crypto.GenerateKeyPair(slot, attr)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		km, err = svc.Crypto.PublicKey(slot)
		if err != nil {
			return nil, err
		}
	}
	return keystore.PublicKeyTemplate(km)
}
