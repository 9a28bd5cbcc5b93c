// Package cpm implements the CP/M filesystem driver (spec §4.3): the
// DPB-governed directory of 32-byte extents and their block chains.
//
// Scope note: CP/M-on-Apple-II disks interleave CP/M's own logical
// sector order with DOS 3.3's physical sector skew (a second,
// CP/M-specific permutation historically kept in the BIOS). That
// permutation table is not present in this build's grounding sources
// (see DESIGN.md), so this driver addresses storage through
// imagecodec.Image's block interface (ProDOS-style 512-byte blocks)
// rather than reconstructing DOS track/sector order itself. It works
// against PO- or IMG-backed CP/M images; a DO-backed (skewed) CP/M
// image needs that missing permutation and is out of scope here.
package cpm

import (
	"fmt"
	"strings"

	"a2disk/internal/diskfs"
	"a2disk/internal/dpb"
	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

const imgBlockSize = 512
const dirEntrySize = 32
const deletedStatus = 0xe5
const userEnd = 0x10

// FS implements diskfs.DiskFS for a CP/M volume.
type FS struct {
	img *imagecodec.Image
	dpb dpb.DPB
	// user is the CP/M user number (0-15) this FS view operates under;
	// CatalogToVec/Get/etc. only see extents tagged with this user.
	user int
}

// Open binds an FS to img under the given DPB, defaulting to user 0.
func Open(img *imagecodec.Image, d dpb.DPB) (*FS, error) {
	if err := d.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", diskfs.ErrVolumeMismatch, err)
	}
	return &FS{img: img, dpb: d, user: 0}, nil
}

// WithUser returns a copy of fs scoped to a different CP/M user number.
func (fs *FS) WithUser(user int) *FS {
	cp := *fs
	cp.user = user
	return &cp
}

// Format writes a blank directory (every entry filled with the
// deleted-status byte 0xe5) and returns an FS bound to it.
func Format(img *imagecodec.Image, d dpb.DPB) (*FS, error) {
	if err := d.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", diskfs.ErrVolumeMismatch, err)
	}
	fs := &FS{img: img, dpb: d, user: 0}
	blank := make([]byte, d.BlockSize())
	for i := range blank {
		blank[i] = deletedStatus
	}
	for b := 0; b < d.DirBlocks(); b++ {
		if err := fs.writeCPMBlock(b, blank); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// readCPMBlock reads one DPB-sized allocation block, composed from
// however many 512-byte image blocks that takes.
func (fs *FS) readCPMBlock(block int) ([]byte, error) {
	blocksPer := fs.dpb.BlockSize() / imgBlockSize
	if blocksPer < 1 {
		blocksPer = 1
	}
	var out []byte
	base := block * blocksPer
	for i := 0; i < blocksPer; i++ {
		blk, err := fs.img.ReadBlock(base + i)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func (fs *FS) writeCPMBlock(block int, data []byte) error {
	blocksPer := fs.dpb.BlockSize() / imgBlockSize
	if blocksPer < 1 {
		blocksPer = 1
	}
	base := block * blocksPer
	for i := 0; i < blocksPer; i++ {
		start := i * imgBlockSize
		if err := fs.img.WriteBlock(base+i, data[start:start+imgBlockSize]); err != nil {
			return err
		}
	}
	return nil
}

// extent is one parsed 32-byte directory slot (spec §3).
type extent struct {
	user        int
	name, ext   string
	readOnly    bool
	system      bool
	extentLo    int
	extentHi    int
	recordCount int
	blocks      []int
	dirBlock    int
	dirOffset   int
}

func (fs *FS) ptrSize() int { return fs.dpb.PtrSize() }

func parseExtent(raw []byte, ptrSize int) extent {
	e := extent{
		user:     int(raw[0]),
		extentLo: int(raw[12]),
		extentHi: int(raw[14]),
		recordCount: int(raw[15]),
	}
	nameBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		nameBytes[i] = raw[1+i] & 0x7f
	}
	e.name = strings.TrimRight(string(nameBytes), " ")
	extBytes := make([]byte, 3)
	for i := 0; i < 3; i++ {
		extBytes[i] = raw[9+i] & 0x7f
	}
	e.ext = strings.TrimRight(string(extBytes), " ")
	e.readOnly = raw[9]&0x80 != 0
	e.system = raw[10]&0x80 != 0
	ptrArea := raw[16:32]
	for i := 0; i*ptrSize < len(ptrArea); i++ {
		var v int
		if ptrSize == 1 {
			v = int(ptrArea[i])
		} else {
			v = int(ptrArea[2*i]) | int(ptrArea[2*i+1])<<8
		}
		if v != 0 {
			e.blocks = append(e.blocks, v)
		}
	}
	return e
}

// walkDirectory visits every non-deleted extent in the directory
// region (the first dpb.DirBlocks() allocation blocks).
func (fs *FS) walkDirectory(visit func(extent) (stop bool)) error {
	ptrSize := fs.ptrSize()
	entriesPerBlock := fs.dpb.BlockSize() / dirEntrySize
	for b := 0; b < fs.dpb.DirBlocks(); b++ {
		blk, err := fs.readCPMBlock(b)
		if err != nil {
			return err
		}
		for i := 0; i < entriesPerBlock; i++ {
			off := i * dirEntrySize
			if off+dirEntrySize > len(blk) {
				break
			}
			raw := blk[off : off+dirEntrySize]
			if raw[0] == deletedStatus || raw[0] >= userEnd {
				continue
			}
			e := parseExtent(raw, ptrSize)
			e.dirBlock, e.dirOffset = b, off
			if visit(e) {
				return nil
			}
		}
	}
	return nil
}

// fileName joins an entry's 8.3 components the way CP/M's xname
// convention does (spec §3), e.g. "FOO.TXT".
func fileName(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// collectExtents groups every directory slot belonging to one file
// under fs.user, ordered by (extentHi<<5 | extentLo).
func (fs *FS) collectExtents(name, ext string) ([]extent, error) {
	var all []extent
	err := fs.walkDirectory(func(e extent) bool {
		if e.user == fs.user && e.name == name && e.ext == ext {
			all = append(all, e)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, diskfs.ErrNotFound
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			oi := all[i].extentHi<<5 | all[i].extentLo
			oj := all[j].extentHi<<5 | all[j].extentLo
			if oj < oi {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	return all, nil
}

func splitName(path string) (name, ext string, err error) {
	path = strings.TrimPrefix(path, "/")
	path = strings.ToUpper(path)
	parts := strings.SplitN(path, ".", 2)
	name = parts[0]
	if len(parts) == 2 {
		ext = parts[1]
	}
	if !isNameValid(name, ext) {
		return "", "", diskfs.ErrNameInvalid
	}
	return name, ext, nil
}

func isNameValid(name, ext string) bool {
	if len(name) == 0 || len(name) > 8 || len(ext) > 3 {
		return false
	}
	const invalid = " <>.,;:=?*[]"
	for _, c := range name + ext {
		if c > 127 || c < 0x20 || strings.ContainsRune(invalid, c) {
			return false
		}
	}
	return true
}

func (fs *FS) CatalogToVec() ([]diskfs.CatalogEntry, error) {
	seen := map[string]bool{}
	var out []diskfs.CatalogEntry
	err := fs.walkDirectory(func(e extent) bool {
		if e.user != fs.user {
			return false
		}
		key := fileName(e.name, e.ext)
		if seen[key] {
			return false
		}
		seen[key] = true
		out = append(out, diskfs.CatalogEntry{
			Path: key, Type: "", Locked: e.readOnly,
		})
		return false
	})
	return out, err
}

// Get reads a file's full block chain across all its extents.
func (fs *FS) Get(path string) (*fileimage.FileImage, error) {
	name, ext, err := splitName(path)
	if err != nil {
		return nil, err
	}
	extents, err := fs.collectExtents(name, ext)
	if err != nil {
		return nil, err
	}
	var data []byte
	for _, e := range extents {
		for _, blk := range e.blocks {
			raw, err := fs.readCPMBlock(blk)
			if err != nil {
				return nil, err
			}
			data = append(data, raw...)
		}
	}
	fimg := fs.NewFimg(fs.dpb.BlockSize())
	fimg.FullPath = fileName(name, ext)
	if extents[0].readOnly {
		fimg.Access = []byte{1}
	}
	fimg.Desequence(data)
	return fimg, nil
}

func (fs *FS) NewFimg(chunkLen int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSCPM, chunkLen, 0)
}

// usedBlocks collects every allocation block referenced by any
// directory entry (across every user number — block allocation is
// volume-wide, spec §4.3) plus the directory's own reserved blocks.
func (fs *FS) usedBlocks() (map[int]bool, error) {
	used := map[int]bool{}
	for b := 0; b < fs.dpb.DirBlocks(); b++ {
		used[b] = true
	}
	err := fs.walkDirectory(func(e extent) bool {
		for _, b := range e.blocks {
			used[b] = true
		}
		return false
	})
	return used, err
}

func (fs *FS) allocBlock(used map[int]bool) (int, error) {
	for b := fs.dpb.DirBlocks(); b < fs.dpb.UserBlocks(); b++ {
		if !used[b] {
			used[b] = true
			return b, nil
		}
	}
	return 0, fmt.Errorf("cpm: volume full")
}

// findFreeDirSlot returns the block/offset of the first directory slot
// whose status byte marks it deleted (free for reuse).
func (fs *FS) findFreeDirSlot() (block, offset int, err error) {
	entriesPerBlock := fs.dpb.BlockSize() / dirEntrySize
	for b := 0; b < fs.dpb.DirBlocks(); b++ {
		blk, err := fs.readCPMBlock(b)
		if err != nil {
			return 0, 0, err
		}
		for i := 0; i < entriesPerBlock; i++ {
			off := i * dirEntrySize
			if off+dirEntrySize > len(blk) {
				break
			}
			if blk[off] == deletedStatus {
				return b, off, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("cpm: directory is full (%d entries)", fs.dpb.DirEntries())
}

// Put splits fimg's data across fresh allocation blocks, grouping them
// into one directory extent per `16/PtrSize` blocks (the fixed size of
// an extent's 16-byte pointer area), and writes one directory entry
// per extent (spec §4.3). An existing file at path is not overwritten;
// callers must Delete first.
func (fs *FS) Put(path string, fimg *fileimage.FileImage) error {
	name, ext, err := splitName(path)
	if err != nil {
		return err
	}
	if _, err := fs.collectExtents(name, ext); err == nil {
		return fmt.Errorf("cpm: %s already exists", fileName(name, ext))
	}
	blockSize := fs.dpb.BlockSize()
	ptrSize := fs.ptrSize()
	pointersPerExtent := 16 / ptrSize
	data := fimg.Sequence()
	used, err := fs.usedBlocks()
	if err != nil {
		return err
	}
	var blocks []int
	for off := 0; off < len(data) || (off == 0 && len(data) == 0); off += blockSize {
		end := off + blockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, blockSize)
		copy(chunk, data[off:end])
		b, err := fs.allocBlock(used)
		if err != nil {
			return err
		}
		if err := fs.writeCPMBlock(b, chunk); err != nil {
			return err
		}
		blocks = append(blocks, b)
		if end == len(data) {
			break
		}
	}
	readOnly := len(fimg.Access) > 0 && fimg.Access[0] != 0
	totalRecords := (len(data) + 127) / 128
	recordsWritten, extentIndex := 0, 0
	for base := 0; base == 0 || base < len(blocks); base += pointersPerExtent {
		end := base + pointersPerExtent
		if end > len(blocks) {
			end = len(blocks)
		}
		extBlocks := blocks[base:end]
		recordsHere := totalRecords - recordsWritten
		if recordsHere > 128 {
			recordsHere = 128
		}
		if recordsHere < 0 {
			recordsHere = 0
		}
		recordsWritten += recordsHere
		dirBlock, dirOffset, err := fs.findFreeDirSlot()
		if err != nil {
			return err
		}
		raw := make([]byte, dirEntrySize)
		raw[0] = byte(fs.user)
		nameBytes := make([]byte, 8)
		copy(nameBytes, name)
		copy(raw[1:9], nameBytes)
		extBytes := make([]byte, 3)
		copy(extBytes, ext)
		copy(raw[9:12], extBytes)
		if readOnly {
			raw[9] |= 0x80
		}
		raw[12] = byte(extentIndex & 0x1f)
		raw[14] = byte(extentIndex >> 5)
		raw[15] = byte(recordsHere)
		for i, b := range extBlocks {
			if ptrSize == 1 {
				raw[16+i] = byte(b)
			} else {
				raw[16+2*i], raw[16+2*i+1] = byte(b), byte(b>>8)
			}
		}
		blk, err := fs.readCPMBlock(dirBlock)
		if err != nil {
			return err
		}
		copy(blk[dirOffset:dirOffset+dirEntrySize], raw)
		if err := fs.writeCPMBlock(dirBlock, blk); err != nil {
			return err
		}
		extentIndex++
		if end >= len(blocks) {
			break
		}
	}
	return nil
}

func (fs *FS) Delete(path string) error {
	name, ext, err := splitName(path)
	if err != nil {
		return err
	}
	extents, err := fs.collectExtents(name, ext)
	if err != nil {
		return err
	}
	for _, e := range extents {
		blk, err := fs.readCPMBlock(e.dirBlock)
		if err != nil {
			return err
		}
		blk[e.dirOffset] = deletedStatus
		if err := fs.writeCPMBlock(e.dirBlock, blk); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) Rename(oldPath, newPath string) error {
	name, ext, err := splitName(oldPath)
	if err != nil {
		return err
	}
	newName, newExt, err := splitName(newPath)
	if err != nil {
		return err
	}
	extents, err := fs.collectExtents(name, ext)
	if err != nil {
		return err
	}
	for _, e := range extents {
		blk, err := fs.readCPMBlock(e.dirBlock)
		if err != nil {
			return err
		}
		nameField := make([]byte, 8)
		copy(nameField, newName)
		copy(blk[e.dirOffset+1:e.dirOffset+9], nameField)
		extField := make([]byte, 3)
		copy(extField, newExt)
		copy(blk[e.dirOffset+9:e.dirOffset+12], extField)
		if err := fs.writeCPMBlock(e.dirBlock, blk); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) ReadText(path string) (string, error) {
	fimg, err := fs.Get(path)
	if err != nil {
		return "", err
	}
	return UnpackText(fimg)
}

// WriteText packs txt as CP/M sequential text (CRLF line endings,
// Ctrl-Z EOF marker) and Puts it, replacing any existing file first.
func (fs *FS) WriteText(path, txt string) error {
	fimg := fs.NewFimg(fs.dpb.BlockSize())
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

// WriteRecords packs recs into the sparse chunk layout and Puts it,
// replacing any existing file at path first.
func (fs *FS) WriteRecords(path string, recs *fileimage.Records) error {
	fimg := fs.NewFimg(fs.dpb.BlockSize())
	if err := recs.UpdateFileImage(fimg, false, textConverter{}, true); err != nil {
		return err
	}
	return fs.putReplacing(path, fimg)
}

// putReplacing deletes any existing entry at path before calling Put,
// since Put itself refuses to overwrite.
func (fs *FS) putReplacing(path string, fimg *fileimage.FileImage) error {
	name, ext, err := splitName(path)
	if err != nil {
		return err
	}
	if _, err := fs.collectExtents(name, ext); err == nil {
		if err := fs.Delete(path); err != nil {
			return err
		}
	}
	return fs.Put(path, fimg)
}

func (fs *FS) ReadBlock(num int) ([]byte, error)     { return fs.readCPMBlock(num) }
func (fs *FS) WriteBlock(num int, data []byte) error { return fs.writeCPMBlock(num, data) }

func (fs *FS) Stat(path string) (diskfs.CatalogEntry, error) {
	name, ext, err := splitName(path)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	extents, err := fs.collectExtents(name, ext)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	blocks := 0
	for _, e := range extents {
		blocks += len(e.blocks)
	}
	return diskfs.CatalogEntry{Path: fileName(name, ext), Blocks: blocks, Locked: extents[0].readOnly}, nil
}

func (fs *FS) Standardize() error { return nil }
