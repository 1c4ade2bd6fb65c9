package openpgp

import (
	"github.com/cardsim/openpgpcard/algoattr"
	"github.com/cardsim/openpgpcard/pgperr"
	"github.com/cardsim/openpgpcard/vfs"
)

// blobSizeCap returns the maximum blob length PutData accepts for
// tag, or 0 if tag carries no declared cap.
func blobSizeCap(tag uint32) (limit int, capped bool) {
	switch tag {
	case 0x7F21:
		return 2048, true
	case 0x0101, 0x0102, 0x0103, 0x0104, 0x005E, 0x0F50, 0x00F9, 0x00C1, 0x00C2, 0x00C3:
		return 256, true
	default:
		return 0, false
	}
}

func checkGetData(cla, ins, p1, p2 byte) error {
	if !validCLA(cla) {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0xCA && ins != 0xCB {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	return nil
}

// handleGetData implements GET DATA / GET NEXT DATA (INS 0xCA/0xCB).
// Tag-not-found yields empty data and SW=9000, matching OpenPGP
// 3.3.1's GetData behavior and the vfs contract of reading a missing
// file as empty with no error.
func handleGetData(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkGetData(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	tag := uint32(p1)<<8 | uint32(p2)
	return svc.FS.ReadFile(svc.AppID, tag, vfs.File)
}

func checkPutData(cla, ins, p1, p2 byte) error {
	if cla != 0x00 && cla != 0x0C && cla != 0x10 {
		return pgperr.New(pgperr.WrongAPDUCLA)
	}
	if ins != 0xDA && ins != 0xDB {
		return pgperr.New(pgperr.WrongAPDUINS)
	}
	if ins == 0xDB && (p1 != 0x3F || p2 != 0xFF) {
		return pgperr.New(pgperr.WrongAPDUP1P2)
	}
	return nil
}

// handlePutData implements PUT DATA (INS 0xDA/0xDB).
func handlePutData(svc *Services, cla, ins, p1, p2 byte, data []byte, le int) ([]byte, error) {
	if err := checkPutData(cla, ins, p1, p2); err != nil {
		return nil, err
	}
	if ins == 0xDB {
		return nil, handleExtendedKeyTemplate(svc, data)
	}

	tag := uint32(p1)<<8 | uint32(p2)
	if limit, capped := blobSizeCap(tag); capped && len(data) > limit {
		return nil, pgperr.New(pgperr.WrongAPDUDataLength)
	}
	switch tag {
	case 0x00C1, 0x00C2, 0x00C3:
		if err := algoattr.ValidateEncoding(data); err != nil {
			return nil, err
		}
	case 0x00D5:
		if len(data) != 16 && len(data) != 24 && len(data) != 32 {
			return nil, pgperr.New(pgperr.WrongAPDUDataLength)
		}
	}
	if !svc.Security.DataObjectInAllowedList(tag) {
		return nil, pgperr.New(pgperr.AccessDenied)
	}

	region := vfs.File
	if svc.Security.DataObjectInSecureArea(tag) {
		region = vfs.Secure
	}
	if err := svc.FS.WriteFile(svc.AppID, tag, region, data); err != nil {
		return nil, err
	}
	if tag == 0x00D5 {
		if err := svc.Keys.SaveAES(data); err != nil {
			return nil, err
		}
	}
	if err := svc.Security.AfterSaveFileLogic(tag); err != nil {
		return nil, err
	}
	return nil, nil
}
