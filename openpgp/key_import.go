package openpgp

import (
	"math/big"

	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/tlv"
)

// crtTagToSlot maps the key-reference control template's outer tag
// to the key slot it targets, per the standard's key reference
// template (0xB6 signature, 0xB8 decipherment, 0xA4 authentication).
func crtTagToSlot(tag uint32) (keystore.Slot, bool) {
	switch tag {
	case 0xB6:
		return keystore.DigitalSignature, true
	case 0xB8:
		return keystore.Confidentiality, true
	case 0xA4:
		return keystore.Authentication, true
	default:
		return 0, false
	}
}

// handleExtendedKeyTemplate imports private key material via PUT DATA
// (odd INS 0xDB), P1=3F P2=FF: an outer CRT selecting the slot,
// followed by a 7F48 component-length template and a 5F48 blob
// holding the components concatenated in the order the template
// lists them.
//
// Supported layouts: RSA CRT import (components e, p, q — n and d are
// derived) or RSA standard import (components n, e, d); EC import
// (components privScalar, pubPoint). Any other component count or
// order is rejected as StoredKeyParamsError — this applet does not
// attempt to guess an unfamiliar encoding.
func handleExtendedKeyTemplate(svc *Services, data []byte) error {
	nodes := tlv.Parse(data)
	if len(nodes) == 0 {
		return pgperr.New(pgperr.WrongAPDUDataLength)
	}
	var slot keystore.Slot
	var found bool
	var lengthsNode, valuesNode *tlv.Node
	for _, n := range nodes {
		if s, ok := crtTagToSlot(n.Tag); ok {
			slot, found = s, true
		}
		if n.Tag == 0x7F48 {
			lengthsNode = n
		}
		if n.Tag == 0x5F48 {
			valuesNode = n
		}
		for _, child := range n.Children() {
			if child.Tag == 0x7F48 {
				lengthsNode = child
			}
			if child.Tag == 0x5F48 {
				valuesNode = child
			}
		}
	}
	if !found || lengthsNode == nil || valuesNode == nil {
		return pgperr.New(pgperr.StoredKeyParamsError)
	}

	lengths := lengthsNode.Children()
	components := make([][]byte, 0, len(lengths))
	values := valuesNode.Data
	offset := 0
	for _, c := range lengths {
		n := len(c.Data)
		length := 0
		for _, b := range c.Data {
			length = length<<8 | int(b)
		}
		_ = n
		if offset+length > len(values) {
			return pgperr.New(pgperr.StoredKeyParamsError)
		}
		components = append(components, values[offset:offset+length])
		offset += length
	}

	attr, err := algoattr.Load(svc.FS, svc.AppID, slot.FileID())
	if err != nil {
		return err
	}

	var km *keystore.KeyMaterial
	switch attr.Algorithm {
	case algoattr.AlgoRSA:
		km, err = importRSA(attr, components)
	case algoattr.AlgoECDH, algoattr.AlgoECDSA, algoattr.AlgoEdDSA:
		km, err = importEC(attr, components)
	default:
		err = pgperr.New(pgperr.StoredKeyParamsError)
	}
	if err != nil {
		return err
	}

	if err := svc.Keys.Save(slot, km); err != nil {
		return err
	}
	return svc.Security.AfterSaveFileLogic(slot.FileID())
}

func importRSA(attr *algoattr.Attr, components [][]byte) (*keystore.KeyMaterial, error) {
	switch attr.ImportFormat {
	case algoattr.RSAImportCRT, algoattr.RSAImportCRTNoMods:
		if len(components) != 3 {
			return nil, pgperr.New(pgperr.StoredKeyParamsError)
		}
		e := new(big.Int).SetBytes(components[0])
		p := new(big.Int).SetBytes(components[1])
		q := new(big.Int).SetBytes(components[2])
		n := new(big.Int).Mul(p, q)
		phi := new(big.Int).Mul(
			new(big.Int).Sub(p, big.NewInt(1)),
			new(big.Int).Sub(q, big.NewInt(1)),
		)
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			return nil, pgperr.New(pgperr.StoredKeyParamsError)
		}
		return &keystore.KeyMaterial{
			Algorithm: algoattr.AlgoRSA,
			RSA: &keystore.RSAMaterial{
				N: n.Bytes(), E: int(e.Int64()), D: d.Bytes(),
				P: p.Bytes(), Q: q.Bytes(),
			},
		}, nil
	case algoattr.RSAImportStandard, algoattr.RSAImportStdCRT:
		if len(components) != 3 {
			return nil, pgperr.New(pgperr.StoredKeyParamsError)
		}
		return &keystore.KeyMaterial{
			Algorithm: algoattr.AlgoRSA,
			RSA: &keystore.RSAMaterial{
				N: components[0],
				E: int(new(big.Int).SetBytes(components[1]).Int64()),
				D: components[2],
			},
		}, nil
	default:
		return nil, pgperr.New(pgperr.StoredKeyParamsError)
	}
}

func importEC(attr *algoattr.Attr, components [][]byte) (*keystore.KeyMaterial, error) {
	if len(components) != 2 {
		return nil, pgperr.New(pgperr.StoredKeyParamsError)
	}
	return &keystore.KeyMaterial{
		Algorithm: attr.Algorithm,
		EC: &keystore.ECMaterial{
			OID:        attr.OID,
			PrivScalar: components[0],
			PubPoint:   components[1],
		},
	}, nil
}
