// Package dos3x implements the DOS 3.x filesystem driver (spec §4.3):
// VTOC-rooted catalog traversal, track/sector-list file chains, and
// the Text/Integer/Applesoft/Binary packing policy.
package dos3x

import (
	"fmt"
	"strings"

	"a2disk/internal/diskfs"
	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

// VTOCTrack is the fixed track holding the Volume Table of Contents
// (spec §3, §4.3), grounded on original_source/src/fs/dos3x/types.rs.
const VTOCTrack = 17

const maxDirectoryReps = 100
const maxTSListReps = 1000
const entrySize = 35
const entriesPerSector = 7
const tsPairsPerSector = 122

// FileType mirrors the DOS 3.x on-disk type byte's low bits (spec §3).
type FileType byte

const (
	TypeText      FileType = 0x00
	TypeInteger   FileType = 0x01
	TypeApplesoft FileType = 0x02
	TypeBinary    FileType = 0x04
)

func (t FileType) String() string {
	switch t {
	case TypeText:
		return "txt"
	case TypeInteger:
		return "itok"
	case TypeApplesoft:
		return "atok"
	case TypeBinary:
		return "bin"
	default:
		return fmt.Sprintf("0x%02x", byte(t))
	}
}

// FS implements diskfs.DiskFS for a DOS 3.3 (or 3.2/13-sector) volume.
type FS struct {
	img      *imagecodec.Image
	tracks   int
	sectors  int
	catTrack int
	catSec   int
}

// Open parses the VTOC and returns an FS bound to img.
func Open(img *imagecodec.Image) (*FS, error) {
	vtoc, err := img.ReadSector(VTOCTrack, 0)
	if err != nil {
		return nil, fmt.Errorf("reading VTOC: %w", err)
	}
	fs := &FS{
		img:      img,
		catTrack: int(vtoc[1]),
		catSec:   int(vtoc[2]),
		tracks:   int(vtoc[0x34]),
		sectors:  int(vtoc[0x35]),
	}
	if fs.tracks == 0 {
		fs.tracks = 35
	}
	if fs.sectors == 0 {
		fs.sectors = 16
	}
	return fs, nil
}

// Format writes a blank VTOC and an empty, fully-allocated-free
// bitmap onto img, then writes an empty catalog sector chain starting
// at track 17 sector 15 (the conventional DOS 3.3 layout).
func Format(img *imagecodec.Image, tracks, sectors, volume int) (*FS, error) {
	vtoc := make([]byte, 256)
	vtoc[1] = VTOCTrack
	vtoc[2] = 15
	vtoc[3] = 3 // DOS release 3
	vtoc[6] = byte(volume)
	vtoc[0x27] = tsPairsPerSector
	vtoc[0x30] = VTOCTrack
	vtoc[0x31] = 0xff // direction: search tracks downward from T17
	vtoc[0x34] = byte(tracks)
	vtoc[0x35] = byte(sectors)
	vtoc[0x36] = 0
	vtoc[0x37] = 1 // 256 bytes/sector

	fs := &FS{img: img, tracks: tracks, sectors: sectors, catTrack: VTOCTrack, catSec: 15}
	fs.initBitmap(vtoc)
	fs.markUsed(vtoc, VTOCTrack, 0)
	for s := 1; s <= 15; s++ {
		fs.markUsed(vtoc, VTOCTrack, s)
	}
	if err := img.WriteSector(VTOCTrack, 0, vtoc); err != nil {
		return nil, err
	}
	catSector := make([]byte, 256)
	if err := img.WriteSector(VTOCTrack, 15, catSector); err != nil {
		return nil, err
	}
	return fs, nil
}

// bitmapOffset returns the VTOC byte offset of track's 4-byte free map;
// callers derive a sector's bit within it. DOS stores one 4-byte,
// big-endian-within-byte bitmap per track starting at 0x38.
func bitmapOffset(track int) int { return 0x38 + track*4 }

func (fs *FS) initBitmap(vtoc []byte) {
	for t := 0; t < fs.tracks; t++ {
		off := bitmapOffset(t)
		if off+4 > len(vtoc) {
			continue
		}
		for i := 0; i < fs.sectors; i++ {
			byteIdx := off + i/8
			bit := uint(7 - i%8)
			vtoc[byteIdx] |= 1 << bit
		}
	}
}

func (fs *FS) markUsed(vtoc []byte, track, sector int) {
	off := bitmapOffset(track)
	byteIdx := off + sector/8
	bit := uint(7 - sector%8)
	vtoc[byteIdx] &^= 1 << bit
}

// Entry is one parsed directory-sector slot (spec §3).
type Entry struct {
	Track, Sector int // first T/S list sector
	Type          FileType
	Locked        bool
	Name          string
	LengthSectors int
	deleted       bool
	neverUsed     bool
	dirTrack      int
	dirSector     int
	dirIndex      int
}

// walkCatalog visits every occupied directory slot across the catalog
// sector chain, bounded by maxDirectoryReps against corrupt circular
// chains (spec §9's defensive-traversal note).
func (fs *FS) walkCatalog(visit func(Entry) (stop bool)) error {
	track, sector := fs.catTrack, fs.catSec
	for rep := 0; rep < maxDirectoryReps && (track != 0 || sector != 0); rep++ {
		buf, err := fs.img.ReadSector(track, sector)
		if err != nil {
			return err
		}
		nextTrack, nextSector := int(buf[1]), int(buf[2])
		for i := 0; i < entriesPerSector; i++ {
			off := 0x0b + i*entrySize
			if off+entrySize > len(buf) {
				continue
			}
			raw := buf[off : off+entrySize]
			e := Entry{
				Track: int(raw[0]), Sector: int(raw[1]),
				dirTrack: track, dirSector: sector, dirIndex: i,
			}
			if e.Track == 0xff {
				e.deleted = true
				continue
			}
			if e.Track == 0 && e.Sector == 0 {
				e.neverUsed = true
				continue
			}
			e.Type = FileType(raw[2] & 0x7f)
			e.Locked = raw[2]&0x80 != 0
			e.Name = decodeName(raw[3:33])
			e.LengthSectors = int(raw[33]) | int(raw[34])<<8
			if visit(e) {
				return nil
			}
		}
		if nextTrack == track && nextSector == sector {
			break
		}
		track, sector = nextTrack, nextSector
	}
	return nil
}

func decodeName(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c & 0x7f
	}
	return strings.TrimRight(string(out), " ")
}

func encodeName(name string) [30]byte {
	var out [30]byte
	for i := range out {
		out[i] = 0xa0
	}
	for i := 0; i < len(name) && i < 30; i++ {
		out[i] = name[i] | 0x80
	}
	return out
}

func (fs *FS) findEntry(path string) (Entry, error) {
	name := strings.TrimPrefix(path, "/")
	var found Entry
	ok := false
	fs.walkCatalog(func(e Entry) bool {
		if e.Name == name {
			found, ok = e, true
			return true
		}
		return false
	})
	if !ok {
		return Entry{}, diskfs.ErrNotFound
	}
	return found, nil
}

// CatalogToVec lists every occupied directory slot.
func (fs *FS) CatalogToVec() ([]diskfs.CatalogEntry, error) {
	var out []diskfs.CatalogEntry
	err := fs.walkCatalog(func(e Entry) bool {
		out = append(out, diskfs.CatalogEntry{
			Path:   e.Name,
			Type:   e.Type.String(),
			Blocks: e.LengthSectors,
			Locked: e.Locked,
		})
		return false
	})
	return out, err
}

// readChain follows a file's T/S list chain and returns the
// concatenated sector data in file order (spec §4.3).
func (fs *FS) readChain(firstTrack, firstSector int) ([]byte, error) {
	var out []byte
	track, sector := firstTrack, firstSector
	for rep := 0; rep < maxTSListReps && !(track == 0 && sector == 0); rep++ {
		tsList, err := fs.img.ReadSector(track, sector)
		if err != nil {
			return nil, err
		}
		nextTrack, nextSector := int(tsList[1]), int(tsList[2])
		for i := 0; i < tsPairsPerSector; i++ {
			off := 0x0c + i*2
			if off+2 > len(tsList) {
				break
			}
			dt, ds := int(tsList[off]), int(tsList[off+1])
			if dt == 0 && ds == 0 {
				continue
			}
			sec, err := fs.img.ReadSector(dt, ds)
			if err != nil {
				return nil, err
			}
			out = append(out, sec...)
		}
		track, sector = nextTrack, nextSector
	}
	return out, nil
}

// Get reads a file's raw sector data into a FileImage, chunked at the
// DOS sector size (256 bytes/chunk, spec §3).
func (fs *FS) Get(path string) (*fileimage.FileImage, error) {
	e, err := fs.findEntry(path)
	if err != nil {
		return nil, err
	}
	data, err := fs.readChain(e.Track, e.Sector)
	if err != nil {
		return nil, err
	}
	fimg := fs.NewFimg(256)
	fimg.FsType = []byte{byte(e.Type)}
	if e.Locked {
		fimg.Access = []byte{1}
	}
	fimg.FullPath = e.Name
	fimg.Desequence(data)
	return fimg, nil
}

// NewFimg returns an empty DOS-tagged FileImage.
func (fs *FS) NewFimg(chunkLen int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSDos, chunkLen, 0)
}

// readVTOC reads and returns the current VTOC sector for bitmap edits.
func (fs *FS) readVTOC() ([]byte, error) {
	return fs.img.ReadSector(VTOCTrack, 0)
}

// isFree reports whether a track/sector's bitmap bit is set (free).
func isFree(vtoc []byte, track, sector int) bool {
	off := bitmapOffset(track)
	byteIdx := off + sector/8
	if byteIdx >= len(vtoc) {
		return false
	}
	bit := uint(7 - sector%8)
	return vtoc[byteIdx]&(1<<bit) != 0
}

// allocSector finds a free track/sector, marks it used in vtoc, and
// returns it. Tracks are searched from VTOCTrack-1 down to track 0,
// then from VTOCTrack+1 upward, and each track from its highest sector
// down; the VTOC's direction byte at 0x31 is not consulted.
func (fs *FS) allocSector(vtoc []byte) (track, sector int, err error) {
	order := allocTrackOrder(fs.tracks)
	for _, t := range order {
		for s := fs.sectors - 1; s >= 0; s-- {
			if isFree(vtoc, t, s) {
				fs.markUsed(vtoc, t, s)
				return t, s, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("dos3x: disk full")
}

func allocTrackOrder(tracks int) []int {
	order := make([]int, 0, tracks)
	for t := VTOCTrack - 1; t >= 0; t-- {
		order = append(order, t)
	}
	for t := VTOCTrack + 1; t < tracks; t++ {
		order = append(order, t)
	}
	return order
}

// findFreeDirSlot walks the catalog chain for a deleted or never-used
// slot, extending the chain with a freshly allocated sector if every
// existing sector is full.
func (fs *FS) findFreeDirSlot(vtoc []byte) (track, sector, index int, err error) {
	track, sector = fs.catTrack, fs.catSec
	var lastTrack, lastSector int
	var lastBuf []byte
	for rep := 0; rep < maxDirectoryReps; rep++ {
		buf, err := fs.img.ReadSector(track, sector)
		if err != nil {
			return 0, 0, 0, err
		}
		for i := 0; i < entriesPerSector; i++ {
			off := 0x0b + i*entrySize
			if off+entrySize > len(buf) {
				continue
			}
			if buf[off] == 0xff || (buf[off] == 0 && buf[off+1] == 0) {
				return track, sector, i, nil
			}
		}
		nextTrack, nextSector := int(buf[1]), int(buf[2])
		lastTrack, lastSector, lastBuf = track, sector, buf
		if nextTrack == 0 && nextSector == 0 {
			break
		}
		track, sector = nextTrack, nextSector
	}
	newTrack, newSector, err := fs.allocSector(vtoc)
	if err != nil {
		return 0, 0, 0, err
	}
	lastBuf[1] = byte(newTrack)
	lastBuf[2] = byte(newSector)
	if err := fs.img.WriteSector(lastTrack, lastSector, lastBuf); err != nil {
		return 0, 0, 0, err
	}
	newSec := make([]byte, 256)
	for i := 0; i < entriesPerSector; i++ {
		newSec[0x0b+i*entrySize] = 0xff
	}
	if err := fs.img.WriteSector(newTrack, newSector, newSec); err != nil {
		return 0, 0, 0, err
	}
	return newTrack, newSector, 0, nil
}

// writeChain allocates T/S list sector(s) and data sectors for data,
// chunked at the sector size, and returns the first T/S list sector
// plus the sector count consumed (spec §4.3's "track/sector-list file
// chains").
func (fs *FS) writeChain(vtoc []byte, data []byte) (firstTrack, firstSector, sectorCount int, err error) {
	const sectorLen = 256
	var dataSectors [][2]int
	for off := 0; off < len(data) || (off == 0 && len(data) == 0); off += sectorLen {
		end := off + sectorLen
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, sectorLen)
		copy(chunk, data[off:end])
		t, s, err := fs.allocSector(vtoc)
		if err != nil {
			return 0, 0, 0, err
		}
		if err := fs.img.WriteSector(t, s, chunk); err != nil {
			return 0, 0, 0, err
		}
		dataSectors = append(dataSectors, [2]int{t, s})
		if end == len(data) {
			break
		}
	}
	var tsTrack, tsSector int
	var prevTSTrack, prevTSSector int
	tsCount := 0
	for base := 0; base == 0 || base < len(dataSectors); base += tsPairsPerSector {
		t, s, err := fs.allocSector(vtoc)
		if err != nil {
			return 0, 0, 0, err
		}
		tsCount++
		tsBuf := make([]byte, 256)
		end := base + tsPairsPerSector
		if end > len(dataSectors) {
			end = len(dataSectors)
		}
		for i, pair := range dataSectors[base:end] {
			tsBuf[0x0c+i*2] = byte(pair[0])
			tsBuf[0x0c+i*2+1] = byte(pair[1])
		}
		if err := fs.img.WriteSector(t, s, tsBuf); err != nil {
			return 0, 0, 0, err
		}
		if prevTSTrack != 0 || prevTSSector != 0 {
			prevBuf, err := fs.img.ReadSector(prevTSTrack, prevTSSector)
			if err != nil {
				return 0, 0, 0, err
			}
			prevBuf[1] = byte(t)
			prevBuf[2] = byte(s)
			if err := fs.img.WriteSector(prevTSTrack, prevTSSector, prevBuf); err != nil {
				return 0, 0, 0, err
			}
		} else {
			tsTrack, tsSector = t, s
		}
		prevTSTrack, prevTSSector = t, s
		if end >= len(dataSectors) {
			break
		}
	}
	return tsTrack, tsSector, len(dataSectors) + tsCount, nil
}

// Put packs fimg's chunks into a fresh T/S-list chain and writes a
// directory entry for it, allocating from the VTOC's free-sector
// bitmap (spec §4.3). An existing file at path is not overwritten;
// callers must Delete first.
func (fs *FS) Put(path string, fimg *fileimage.FileImage) error {
	name := strings.TrimPrefix(path, "/")
	if !isNameValid(name) {
		return diskfs.ErrNameInvalid
	}
	if _, err := fs.findEntry(path); err == nil {
		return fmt.Errorf("dos3x: %s already exists", name)
	}
	vtoc, err := fs.readVTOC()
	if err != nil {
		return err
	}
	dirTrack, dirSector, dirIndex, err := fs.findFreeDirSlot(vtoc)
	if err != nil {
		return err
	}
	firstTrack, firstSector, sectorCount, err := fs.writeChain(vtoc, fimg.Sequence())
	if err != nil {
		return err
	}
	if err := fs.img.WriteSector(VTOCTrack, 0, vtoc); err != nil {
		return err
	}
	dirBuf, err := fs.img.ReadSector(dirTrack, dirSector)
	if err != nil {
		return err
	}
	off := 0x0b + dirIndex*entrySize
	dirBuf[off] = byte(firstTrack)
	dirBuf[off+1] = byte(firstSector)
	typeByte := byte(fimg.GetFType())
	if len(fimg.Access) > 0 && fimg.Access[0] != 0 {
		typeByte |= 0x80
	}
	dirBuf[off+2] = typeByte
	nameBytes := encodeName(name)
	copy(dirBuf[off+3:off+33], nameBytes[:])
	dirBuf[off+33] = byte(sectorCount)
	dirBuf[off+34] = byte(sectorCount >> 8)
	return fs.img.WriteSector(dirTrack, dirSector, dirBuf)
}

func (fs *FS) Delete(path string) error {
	e, err := fs.findEntry(path)
	if err != nil {
		return err
	}
	buf, err := fs.img.ReadSector(e.dirTrack, e.dirSector)
	if err != nil {
		return err
	}
	off := 0x0b + e.dirIndex*entrySize
	origTrack := buf[off]
	buf[off] = 0xff
	buf[off+32] = origTrack // DOS preserves the original track in byte 32 of a deleted slot
	return fs.img.WriteSector(e.dirTrack, e.dirSector, buf)
}

func (fs *FS) Rename(oldPath, newPath string) error {
	if !isNameValid(newPath) {
		return diskfs.ErrNameInvalid
	}
	e, err := fs.findEntry(oldPath)
	if err != nil {
		return err
	}
	buf, err := fs.img.ReadSector(e.dirTrack, e.dirSector)
	if err != nil {
		return err
	}
	off := 0x0b + e.dirIndex*entrySize
	nameBytes := encodeName(strings.TrimPrefix(newPath, "/"))
	copy(buf[off+3:off+33], nameBytes[:])
	return fs.img.WriteSector(e.dirTrack, e.dirSector, buf)
}

func isNameValid(name string) bool {
	name = strings.TrimPrefix(name, "/")
	if len(name) < 1 || len(name) > 30 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 127 {
			return false
		}
	}
	return true
}

func (fs *FS) ReadText(path string) (string, error) {
	fimg, err := fs.Get(path)
	if err != nil {
		return "", err
	}
	return UnpackText(fimg)
}

// WriteText packs txt as a sequential text file and Puts it, replacing
// any existing file at path first (spec §4.3's write_text, derived from
// Put the same way ReadText is derived from Get).
func (fs *FS) WriteText(path, txt string) error {
	fimg := fs.NewFimg(256)
	if err := PackText(fimg, txt); err != nil {
		return err
	}
	return fs.putReplacing(path, fimg)
}

func (fs *FS) ReadRecords(path string, recordLen int) (*fileimage.Records, error) {
	fimg, err := fs.Get(path)
	if err != nil {
		return nil, err
	}
	return fileimage.FromFileImage(fimg, recordLen, textConverter{})
}

// WriteRecords packs recs into a random-access text file's sparse chunk
// layout and Puts it, replacing any existing file at path first.
func (fs *FS) WriteRecords(path string, recs *fileimage.Records) error {
	fimg := fs.NewFimg(256)
	fimg.FsType = []byte{byte(TypeText)}
	if err := recs.UpdateFileImage(fimg, false, textConverter{}, true); err != nil {
		return err
	}
	return fs.putReplacing(path, fimg)
}

// putReplacing deletes any existing entry at path before calling Put,
// since Put itself refuses to overwrite.
func (fs *FS) putReplacing(path string, fimg *fileimage.FileImage) error {
	if _, err := fs.findEntry(path); err == nil {
		if err := fs.Delete(path); err != nil {
			return err
		}
	}
	return fs.Put(path, fimg)
}

func (fs *FS) ReadBlock(num int) ([]byte, error)        { return fs.img.ReadBlock(num) }
func (fs *FS) WriteBlock(num int, data []byte) error    { return fs.img.WriteBlock(num, data) }

func (fs *FS) Stat(path string) (diskfs.CatalogEntry, error) {
	e, err := fs.findEntry(path)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	return diskfs.CatalogEntry{Path: e.Name, Type: e.Type.String(), Blocks: e.LengthSectors, Locked: e.Locked}, nil
}

// Standardize is a no-op for DOS 3.x: there is no slack padding
// convention to normalize beyond what Format already zeroes.
func (fs *FS) Standardize() error { return nil }
