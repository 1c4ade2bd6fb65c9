package openpgp

import (
	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/tlv"
)

const (
	psoModeRSADecrypt = 0x00
	psoModeAESDecrypt = 0x02
	psoModeECDH       = 0xA6
)

func checkPSO(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0x2A {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	isCDS := p1 == 0x9E && p2 == 0x9A
	isDecipher := p1 == 0x80 && p2 == 0x86
	isEncipher := p1 == 0x86 && p2 == 0x80
	if !isCDS && !isDecipher && !isEncipher {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handlePSO implements PERFORM SECURITY OPERATION (INS 0x2A).
func handlePSO(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkPSO(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	switch {
	case p1 == 0x9E && p2 == 0x9A:
		return psoComputeDigitalSignature(svc, data)
	case p1 == 0x80 && p2 == 0x86:
		return psoDecipher(svc, data)
	case p1 == 0x86 && p2 == 0x80:
		return psoEncipher(svc, data)
	default:
		return nil, pgperr.New(pgperr.WrongAPDUP1P2)
	}
}

// psoComputeDigitalSignature signs data with the DigitalSignature key.
// The DS counter increments and (when PW1ValidSeveralCDS=0) the
// PW1-CDS auth flag clears *even if signing fails*, before the sign
// error is surfaced, so a caller can't probe whether auth was already
// stale versus the sign itself failing.
func psoComputeDigitalSignature(svc *Services, data []byte) ([]byte, error) {
	if !svc.Security.IsVerified(security.PW1CDS) {
		return nil, pgperr.New(pgperr.AccessDenied)
	}
	if _, err := algoattr.Load(svc.FS, svc.AppID, keystore.DigitalSignature.FileID()); err != nil {
		return nil, err
	}

	if _, err := svc.Security.IncDSCounter(); err != nil {
		return nil, err
	}
	if !svc.Security.PW1ValidSeveralCDS() {
		svc.Security.ClearAuth(security.PW1CDS)
	}

	sig, err := svc.Crypto.Sign(keystore.DigitalSignature, data)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func psoDecipher(svc *Services, data []byte) ([]byte, error) {
	if !svc.Security.IsVerified(security.PW1User) {
		return nil, pgperr.New(pgperr.AccessDenied)
	}
	if len(data) < 1 {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	mode, rest := data[0], data[1:]
	switch mode {
	case psoModeRSADecrypt:
		return svc.Crypto.RSADecrypt(rest)
	case psoModeAESDecrypt:
		if len(rest)%16 != 0 {
			return nil, pgperr.New(pgperr.WrongAPDUDataLength)
		}
		return svc.Crypto.AESDecrypt(rest)
	case psoModeECDH:
		// mode (0xA6) is the cipher DO's own constructed tag, not a
		// strippable mode byte like the RSA/AES cases: the point is
		// wrapped inside it (A6 -> 7F49 -> 86), so the search must
		// start at data, not the byte-stripped rest.
		node, ok := tlv.Find(data, 0x86)
		if !ok {
			return nil, pgperr.New(pgperr.TLVDecodeError)
		}
		return svc.Crypto.ECDH(node.Data)
	default:
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
}

func psoEncipher(svc *Services, data []byte) ([]byte, error) {
	if !svc.Security.IsVerified(security.PW1User) {
		return nil, pgperr.New(pgperr.AccessDenied)
	}
	if len(data)%16 != 0 {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	ct, err := svc.Crypto.AESEncrypt(data)
	if err != nil {
		return nil, err
	}
	return append([]byte{psoModeAESDecrypt}, ct...), nil
}
