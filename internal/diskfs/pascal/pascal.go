// Package pascal implements the Apple Pascal filesystem driver (spec
// §4.3): the flat, fixed-size directory at blocks 2-5 and its
// contiguous-block file storage.
package pascal

import (
	"fmt"
	"strings"

	"a2disk/internal/diskfs"
	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

// VolHeaderBlock is the first directory block, grounded on
// original_source/src/fs/pascal/types.rs.
const VolHeaderBlock = 2
const blockSize = 512
const entrySize = 26
const dirBlocks = 4 // directory occupies blocks 2-5
const maxFiles = 77 // (dirBlocks*blockSize)/entrySize - 1, header entry included
const invalidChars = " $=?,[#:"

// FileType mirrors the Pascal file-kind byte (spec §3).
type FileType byte

const (
	TypeNone   FileType = 0x00
	TypeBad    FileType = 0x01
	TypeCode   FileType = 0x02
	TypeText   FileType = 0x03
	TypeInfo   FileType = 0x04
	TypeData   FileType = 0x05
	TypeGraf   FileType = 0x06
	TypeFoto   FileType = 0x07
	TypeSecure FileType = 0x08
)

func (t FileType) String() string {
	switch t {
	case TypeBad:
		return "BAD"
	case TypeCode:
		return "pcode"
	case TypeText:
		return "txt"
	case TypeInfo:
		return "INFO"
	case TypeData:
		return "bin"
	case TypeGraf:
		return "GRAF"
	case TypeFoto:
		return "FOTO"
	case TypeSecure:
		return "SECURE"
	default:
		return "NONE"
	}
}

// FS implements diskfs.DiskFS for a Pascal volume.
//
// The directory layout below (field offsets within the 26-byte volume
// header and file entries) follows the Apple Pascal Filer's
// documented on-disk format; original_source's pack.rs/types.rs cover
// the name/date packing and text encoding but not the directory
// struct itself.
type FS struct {
	img        *imagecodec.Image
	volumeName string
	totalBlock int
	numFiles   int
}

func Open(img *imagecodec.Image) (*FS, error) {
	hdr, err := img.ReadBlock(VolHeaderBlock)
	if err != nil {
		return nil, fmt.Errorf("reading directory header: %w", err)
	}
	nameLen := int(hdr[5])
	if nameLen > 7 {
		return nil, fmt.Errorf("%w: implausible volume name length", diskfs.ErrVolumeMismatch)
	}
	name := string(hdr[6 : 6+nameLen])
	total := int(hdr[14]) | int(hdr[15])<<8
	numFiles := int(hdr[16]) | int(hdr[17])<<8
	return &FS{img: img, volumeName: name, totalBlock: total, numFiles: numFiles}, nil
}

// Format writes a blank directory (header entry only, zero files).
func Format(img *imagecodec.Image, totalBlocks int, volumeName string) (*FS, error) {
	if !isNameValid(volumeName, true) {
		return nil, diskfs.ErrNameInvalid
	}
	hdr := make([]byte, blockSize)
	hdr[2] = byte(2 + dirBlocks)
	nameBytes := []byte(strings.ToUpper(volumeName))
	hdr[5] = byte(len(nameBytes))
	copy(hdr[6:13], nameBytes)
	hdr[14] = byte(totalBlocks & 0xff)
	hdr[15] = byte(totalBlocks >> 8)
	if err := img.WriteBlock(VolHeaderBlock, hdr); err != nil {
		return nil, err
	}
	for b := VolHeaderBlock + 1; b < VolHeaderBlock+dirBlocks; b++ {
		if err := img.WriteBlock(b, make([]byte, blockSize)); err != nil {
			return nil, err
		}
	}
	return &FS{img: img, volumeName: volumeName, totalBlock: totalBlocks}, nil
}

func isNameValid(s string, isVol bool) bool {
	if len(s) < 1 {
		return false
	}
	if isVol && len(s) > 7 {
		return false
	}
	if !isVol && len(s) > 15 {
		return false
	}
	for _, c := range s {
		if c > 127 || strings.ContainsRune(invalidChars, c) || c < 0x20 {
			return false
		}
	}
	return true
}

// entry is one parsed 26-byte directory slot.
type entry struct {
	firstBlock, nextBlock int
	kind                  FileType
	name                  string
	bytesInLastBlock      int
	slotIndex             int
}

// dirBytes reads the full 4-block directory as one contiguous buffer.
func (fs *FS) dirBytes() ([]byte, error) {
	var out []byte
	for b := VolHeaderBlock; b < VolHeaderBlock+dirBlocks; b++ {
		blk, err := fs.img.ReadBlock(b)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func (fs *FS) writeDirBytes(dir []byte) error {
	for i := 0; i < dirBlocks; i++ {
		start := i * blockSize
		if err := fs.img.WriteBlock(VolHeaderBlock+i, dir[start:start+blockSize]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) walkEntries(visit func(entry) (stop bool)) error {
	dir, err := fs.dirBytes()
	if err != nil {
		return err
	}
	for i := 1; i <= maxFiles; i++ {
		off := i * entrySize
		if off+entrySize > len(dir) {
			break
		}
		raw := dir[off : off+entrySize]
		kind := FileType(raw[4] & 0x7f)
		nameLen := int(raw[5])
		if kind == TypeNone || nameLen == 0 || nameLen > 15 {
			continue
		}
		e := entry{
			firstBlock:       int(raw[0]) | int(raw[1])<<8,
			nextBlock:        int(raw[2]) | int(raw[3])<<8,
			kind:             kind,
			name:             string(raw[6 : 6+nameLen]),
			bytesInLastBlock: int(raw[21]) | int(raw[22])<<8,
			slotIndex:        i,
		}
		if visit(e) {
			return nil
		}
	}
	return nil
}

func (fs *FS) findEntry(path string) (entry, error) {
	name := strings.TrimPrefix(path, "/")
	var found entry
	ok := false
	fs.walkEntries(func(e entry) bool {
		if strings.EqualFold(e.name, name) {
			found, ok = e, true
			return true
		}
		return false
	})
	if !ok {
		return entry{}, diskfs.ErrNotFound
	}
	return found, nil
}

func (fs *FS) CatalogToVec() ([]diskfs.CatalogEntry, error) {
	var out []diskfs.CatalogEntry
	err := fs.walkEntries(func(e entry) bool {
		blocks := e.nextBlock - e.firstBlock
		bytes := 0
		if blocks > 0 {
			bytes = (blocks-1)*blockSize + e.bytesInLastBlock
		}
		out = append(out, diskfs.CatalogEntry{
			Path: e.name, Type: e.kind.String(), Bytes: bytes, Blocks: blocks,
		})
		return false
	})
	return out, err
}

func (fs *FS) Get(path string) (*fileimage.FileImage, error) {
	e, err := fs.findEntry(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	for b := e.firstBlock; b < e.nextBlock; b++ {
		blk, err := fs.img.ReadBlock(b)
		if err != nil {
			return nil, err
		}
		data = append(data, blk...)
	}
	fimg := fs.NewFimg(blockSize)
	fimg.FsType = []byte{byte(e.kind)}
	fimg.FullPath = e.name
	total := (e.nextBlock-e.firstBlock-1)*blockSize + e.bytesInLastBlock
	if total < 0 || total > len(data) {
		total = len(data)
	}
	fimg.Desequence(data[:total])
	return fimg, nil
}

func (fs *FS) NewFimg(chunkLen int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSPascal, chunkLen, 2)
}

// findFreeExtent scans the gaps between existing files' contiguous
// block extents (and between the directory and the first file, and
// the last file and the volume end) for the first gap holding at
// least neededBlocks free blocks — first-fit over a sorted extent
// list, since Pascal volumes carry no separate free-block bitmap and
// free space is only ever the complement of what the directory itself
// already claims (spec §4.3).
func (fs *FS) findFreeExtent(neededBlocks int) (int, error) {
	var used [][2]int // [start, end) pairs
	err := fs.walkEntries(func(e entry) bool {
		used = append(used, [2]int{e.firstBlock, e.nextBlock})
		return false
	})
	if err != nil {
		return 0, err
	}
	sortExtents(used)
	cursor := VolHeaderBlock + dirBlocks
	for _, u := range used {
		if u[0]-cursor >= neededBlocks {
			return cursor, nil
		}
		if u[1] > cursor {
			cursor = u[1]
		}
	}
	if fs.totalBlock-cursor >= neededBlocks {
		return cursor, nil
	}
	return 0, fmt.Errorf("pascal: no contiguous extent of %d blocks is free", neededBlocks)
}

func sortExtents(extents [][2]int) {
	for i := 1; i < len(extents); i++ {
		for j := i; j > 0 && extents[j][0] < extents[j-1][0]; j-- {
			extents[j], extents[j-1] = extents[j-1], extents[j]
		}
	}
}

func (fs *FS) findFreeDirSlot() (int, error) {
	used := map[int]bool{}
	err := fs.walkEntries(func(e entry) bool {
		used[e.slotIndex] = true
		return false
	})
	if err != nil {
		return 0, err
	}
	for i := 1; i <= maxFiles; i++ {
		if !used[i] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("pascal: directory is full (%d entries)", maxFiles)
}

// Put writes fimg's data into a freshly chosen contiguous block extent
// and a new directory entry (spec §4.3). An existing file at path is
// not overwritten; callers must Delete first.
func (fs *FS) Put(path string, fimg *fileimage.FileImage) error {
	name := strings.TrimPrefix(path, "/")
	if !isNameValid(name, false) {
		return diskfs.ErrNameInvalid
	}
	if _, err := fs.findEntry(path); err == nil {
		return fmt.Errorf("pascal: %s already exists", name)
	}
	data := fimg.Sequence()
	blocksNeeded := (len(data) + blockSize - 1) / blockSize
	if blocksNeeded == 0 {
		blocksNeeded = 1
	}
	firstBlock, err := fs.findFreeExtent(blocksNeeded)
	if err != nil {
		return err
	}
	slot, err := fs.findFreeDirSlot()
	if err != nil {
		return err
	}
	for i := 0; i < blocksNeeded; i++ {
		chunk := make([]byte, blockSize)
		start := i * blockSize
		end := start + blockSize
		if end > len(data) {
			end = len(data)
		}
		copy(chunk, data[start:end])
		if err := fs.img.WriteBlock(firstBlock+i, chunk); err != nil {
			return err
		}
	}
	dir, err := fs.dirBytes()
	if err != nil {
		return err
	}
	nextBlock := firstBlock + blocksNeeded
	bytesInLastBlock := len(data) - (blocksNeeded-1)*blockSize
	if bytesInLastBlock <= 0 || bytesInLastBlock > blockSize {
		bytesInLastBlock = blockSize
	}
	off := slot * entrySize
	dir[off], dir[off+1] = byte(firstBlock), byte(firstBlock>>8)
	dir[off+2], dir[off+3] = byte(nextBlock), byte(nextBlock>>8)
	dir[off+4] = byte(fimg.GetFType())
	nameBytes := []byte(strings.ToUpper(name))
	dir[off+5] = byte(len(nameBytes))
	nameField := make([]byte, 15)
	copy(nameField, nameBytes)
	copy(dir[off+6:off+21], nameField)
	dir[off+21], dir[off+22] = byte(bytesInLastBlock), byte(bytesInLastBlock>>8)
	return fs.writeDirBytes(dir)
}

func (fs *FS) Delete(path string) error {
	e, err := fs.findEntry(path)
	if err != nil {
		return err
	}
	dir, err := fs.dirBytes()
	if err != nil {
		return err
	}
	off := e.slotIndex * entrySize
	dir[off+4] = 0
	dir[off+5] = 0
	return fs.writeDirBytes(dir)
}

func (fs *FS) Rename(oldPath, newPath string) error {
	base := strings.TrimPrefix(newPath, "/")
	if !isNameValid(base, false) {
		return diskfs.ErrNameInvalid
	}
	e, err := fs.findEntry(oldPath)
	if err != nil {
		return err
	}
	dir, err := fs.dirBytes()
	if err != nil {
		return err
	}
	off := e.slotIndex * entrySize
	nameBytes := []byte(strings.ToUpper(base))
	dir[off+5] = byte(len(nameBytes))
	nameField := make([]byte, 15)
	copy(nameField, nameBytes)
	copy(dir[off+6:off+21], nameField)
	return fs.writeDirBytes(dir)
}

func (fs *FS) ReadText(path string) (string, error) {
	fimg, err := fs.Get(path)
	if err != nil {
		return "", err
	}
	return UnpackText(fimg)
}

// WriteText packs txt as Pascal's indent-compressed text format and
// Puts it, replacing any existing file at path first.
func (fs *FS) WriteText(path, txt string) error {
	fimg := fs.NewFimg(blockSize)
	if err := PackText(fimg, txt); err != nil {
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

func (fs *FS) ReadRecords(path string, recordLen int) (*fileimage.Records, error) {
	return nil, fmt.Errorf("%w: pascal has no random-access record file convention", diskfs.ErrTypeMismatch)
}

func (fs *FS) WriteRecords(path string, recs *fileimage.Records) error {
	return fmt.Errorf("%w: pascal has no random-access record file convention", diskfs.ErrTypeMismatch)
}

func (fs *FS) ReadBlock(num int) ([]byte, error)     { return fs.img.ReadBlock(num) }
func (fs *FS) WriteBlock(num int, data []byte) error { return fs.img.WriteBlock(num, data) }

func (fs *FS) Stat(path string) (diskfs.CatalogEntry, error) {
	e, err := fs.findEntry(path)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	blocks := e.nextBlock - e.firstBlock
	return diskfs.CatalogEntry{Path: e.name, Type: e.kind.String(), Blocks: blocks}, nil
}

func (fs *FS) Standardize() error { return nil }
