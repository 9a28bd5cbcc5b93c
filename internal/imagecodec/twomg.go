package imagecodec

import (
	"encoding/binary"
	"fmt"
)

// twoMGFmt is the 2MG header's img_fmt field (spec §4.2, §9 notes the
// format's write-protect flag bit position is ambiguous across
// real-world files; this codec follows the original's documented bit
// 31-of-flags-as-byte-3 convention).
const (
	twoMGFmtDO  = 0
	twoMGFmtPO  = 1
	twoMGFmtNib = 2
)

// twoMGImage wraps either a doImage or a poImage, per the original's
// "wrap another disk image" strategy; only DO/PO payloads are
// accepted on read (nibble payloads are rejected, matching spec §9's
// note that the NIB variant is not supported).
type twoMGImage struct {
	fmtByte      byte
	volume       byte
	writeProtect bool
	comment      string
	creatorInfo  string

	do *doImage
	po *poImage
}

func (t *twoMGImage) readSector(track, sector int) ([]byte, error) {
	if t.do != nil {
		return t.do.readSector(track, sector)
	}
	return nil, fmt.Errorf("%w: 2MG/PO images are block-addressed, not sector-addressed", ErrImageTypeMismatch)
}

func (t *twoMGImage) writeSector(track, sector int, data []byte) error {
	if t.writeProtect {
		return fmt.Errorf("%w: 2MG image", ErrWriteProtected)
	}
	if t.do != nil {
		return t.do.writeSector(track, sector, data)
	}
	return fmt.Errorf("%w: 2MG/PO images are block-addressed, not sector-addressed", ErrImageTypeMismatch)
}

func (t *twoMGImage) readBlock(num int) ([]byte, error) {
	if t.po != nil {
		return t.po.readBlock(num)
	}
	return t.do.readBlock(num)
}

func (t *twoMGImage) writeBlock(num int, data []byte) error {
	if t.writeProtect {
		return fmt.Errorf("%w: 2MG image", ErrWriteProtected)
	}
	if t.po != nil {
		return t.po.writeBlock(num, data)
	}
	return t.do.writeBlock(num, data)
}

func (t *twoMGImage) rawBytes() []byte {
	if t.po != nil {
		return t.po.toBytes()
	}
	return t.do.toBytes()
}

// toBytes serializes the 64-byte 2MG header followed by the raw image
// data, then the comment and creator-info trailers (spec §4.2).
func (t *twoMGImage) toBytes() ([]byte, error) {
	raw := t.rawBytes()
	header := make([]byte, 64)
	copy(header[0:4], []byte{'2', 'I', 'M', 'G'})
	copy(header[4:8], []byte{'2', 'K', 'I', 'T'})
	binary.LittleEndian.PutUint16(header[8:10], 64)
	binary.LittleEndian.PutUint16(header[10:12], 1)
	binary.LittleEndian.PutUint32(header[12:16], uint32(t.fmtByte))
	flags := uint32(t.volume) | 1<<8
	if t.writeProtect {
		flags |= 1 << 31
	}
	binary.LittleEndian.PutUint32(header[16:20], flags)
	blocks := uint32(len(raw) / blockSize)
	binary.LittleEndian.PutUint32(header[20:24], blocks)
	binary.LittleEndian.PutUint32(header[24:28], 64)
	binary.LittleEndian.PutUint32(header[28:32], uint32(len(raw)))
	commentOff := uint32(64 + len(raw))
	binary.LittleEndian.PutUint32(header[32:36], commentOff)
	binary.LittleEndian.PutUint32(header[36:40], uint32(len(t.comment)))
	creatorOff := commentOff + uint32(len(t.comment))
	binary.LittleEndian.PutUint32(header[40:44], creatorOff)
	binary.LittleEndian.PutUint32(header[44:48], uint32(len(t.creatorInfo)))

	out := make([]byte, 0, len(header)+len(raw)+len(t.comment)+len(t.creatorInfo))
	out = append(out, header...)
	out = append(out, raw...)
	out = append(out, []byte(t.comment)...)
	out = append(out, []byte(t.creatorInfo)...)
	return out, nil
}

func twoMGFromBytes(data []byte) (*twoMGImage, bool) {
	if len(data) < 64 {
		return nil, false
	}
	h := data[0:64]
	if string(h[0:4]) != "2IMG" {
		return nil, false
	}
	fmtField := binary.LittleEndian.Uint32(h[12:16])
	if fmtField > 2 {
		return nil, false
	}
	flags := binary.LittleEndian.Uint32(h[16:20])
	blocks := binary.LittleEndian.Uint32(h[20:24])
	offset := binary.LittleEndian.Uint32(h[24:28])
	length := binary.LittleEndian.Uint32(h[28:32])
	if int(offset+length) > len(data) {
		return nil, false
	}
	payload := data[offset : offset+length]

	vol := byte(254)
	if flags&(1<<8) != 0 {
		vol = byte(flags & 0xff)
	}
	t := &twoMGImage{
		fmtByte:      byte(fmtField),
		volume:       vol,
		writeProtect: flags&(1<<31) != 0,
	}
	switch fmtField {
	case twoMGFmtDO:
		do, ok := doFromBytes(payload)
		if !ok {
			return nil, false
		}
		t.do = do
	case twoMGFmtPO:
		po, ok := poFromBytes(payload)
		if !ok {
			return nil, false
		}
		t.po = po
	default:
		// NIB-backed 2MG payloads are not accepted (spec §9).
		return nil, false
	}
	if uint32(len(payload)) != blocks*blockSize {
		return nil, false
	}

	commentOff := binary.LittleEndian.Uint32(h[32:36])
	commentLen := binary.LittleEndian.Uint32(h[36:40])
	if int(commentOff+commentLen) <= len(data) {
		t.comment = string(data[commentOff : commentOff+commentLen])
	}
	creatorOff := binary.LittleEndian.Uint32(h[40:44])
	creatorLen := binary.LittleEndian.Uint32(h[44:48])
	if int(creatorOff+creatorLen) <= len(data) {
		t.creatorInfo = string(data[creatorOff : creatorOff+creatorLen])
	}
	return t, true
}
