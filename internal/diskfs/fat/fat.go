// Package fat implements the FAT12/16 filesystem driver (spec §4.3):
// BIOS Parameter Block geometry, the file allocation table, and the
// root/subdirectory entry hierarchy.
//
// The BPB and directory-entry byte layouts are not covered by any file
// that survived the original_source/ filter for this component (see
// DESIGN.md) -- they are built from the public FAT12/16 on-disk format
// documentation, the same class of source imd.go's ImageDisk container
// layout already relies on. Name/date packing and directory attribute
// semantics (read-only/hidden/system/directory/volume-id) do come from
// original_source/src/fs/fat/{pack,display}.rs.
package fat

import (
	"encoding/binary"
	"fmt"
	"strings"

	"a2disk/internal/diskfs"
	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

const sectorSize = 512
const dirEntrySize = 32
const maxClusterReps = 65536

// attribute bits (spec §3; original_source's display.rs FileInfo
// mirrors exactly these flags).
const (
	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolumeID = 0x08
	attrDir      = 0x10
	attrArchive  = 0x20
)

// BPB is the subset of the BIOS Parameter Block this driver needs.
type BPB struct {
	BytesPerSector    int
	SectorsPerCluster int
	ReservedSectors   int
	NumFATs           int
	RootEntries       int
	TotalSectors      int
	FATSize           int
	Bits              int // 12 or 16
	Label             string
}

// parseBPB reads the boot sector layout documented for FAT12/16.
func parseBPB(boot []byte) (BPB, error) {
	if len(boot) < sectorSize {
		return BPB{}, fmt.Errorf("fat: boot sector shorter than %d bytes", sectorSize)
	}
	b := BPB{
		BytesPerSector:    int(binary.LittleEndian.Uint16(boot[11:13])),
		SectorsPerCluster: int(boot[13]),
		ReservedSectors:   int(binary.LittleEndian.Uint16(boot[14:16])),
		NumFATs:           int(boot[16]),
		RootEntries:       int(binary.LittleEndian.Uint16(boot[17:19])),
		FATSize:           int(binary.LittleEndian.Uint16(boot[22:24])),
	}
	total16 := int(binary.LittleEndian.Uint16(boot[19:21]))
	if total16 != 0 {
		b.TotalSectors = total16
	} else {
		b.TotalSectors = int(binary.LittleEndian.Uint32(boot[32:36]))
	}
	b.Label = strings.TrimRight(string(boot[43:54]), " ")
	if b.BytesPerSector == 0 || b.SectorsPerCluster == 0 {
		return BPB{}, fmt.Errorf("fat: boot sector has a zero bytes-per-sector or sectors-per-cluster field")
	}
	rootSectors := (b.RootEntries*dirEntrySize + b.BytesPerSector - 1) / b.BytesPerSector
	dataSectors := b.TotalSectors - b.ReservedSectors - b.NumFATs*b.FATSize - rootSectors
	clusterCount := dataSectors / b.SectorsPerCluster
	if clusterCount < 4085 {
		b.Bits = 12
	} else {
		b.Bits = 16
	}
	return b, nil
}

// FS implements diskfs.DiskFS for a FAT12/16 volume.
type FS struct {
	img            *imagecodec.Image
	bpb            BPB
	fatStartSec    int
	rootStartSec   int
	rootSectors    int
	dataStartSec   int
}

// Open parses the boot sector at block 0 and binds an FS to img.
func Open(img *imagecodec.Image) (*FS, error) {
	boot, err := img.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	bpb, err := parseBPB(boot)
	if err != nil {
		return nil, err
	}
	rootSectors := (bpb.RootEntries*dirEntrySize + bpb.BytesPerSector - 1) / bpb.BytesPerSector
	fs := &FS{
		img:          img,
		bpb:          bpb,
		fatStartSec:  bpb.ReservedSectors,
		rootStartSec: bpb.ReservedSectors + bpb.NumFATs*bpb.FATSize,
		rootSectors:  rootSectors,
	}
	fs.dataStartSec = fs.rootStartSec + rootSectors
	return fs, nil
}

// Format writes a minimal BPB, empty FATs, and an empty root
// directory, returning an FS bound to it.
func Format(img *imagecodec.Image, totalSectors, reservedSectors, numFATs, rootEntries, sectorsPerCluster, fatSize int, label string) (*FS, error) {
	boot := make([]byte, sectorSize)
	binary.LittleEndian.PutUint16(boot[11:13], uint16(sectorSize))
	boot[13] = byte(sectorsPerCluster)
	binary.LittleEndian.PutUint16(boot[14:16], uint16(reservedSectors))
	boot[16] = byte(numFATs)
	binary.LittleEndian.PutUint16(boot[17:19], uint16(rootEntries))
	if totalSectors <= 0xffff {
		binary.LittleEndian.PutUint16(boot[19:21], uint16(totalSectors))
	} else {
		binary.LittleEndian.PutUint32(boot[32:36], uint32(totalSectors))
	}
	boot[21] = 0xf0
	binary.LittleEndian.PutUint16(boot[22:24], uint16(fatSize))
	boot[38] = 0x29
	name := label
	if len(name) > 11 {
		name = name[:11]
	}
	copy(boot[43:54], []byte(strings.ToUpper(name)+strings.Repeat(" ", 11))[:11])
	if err := img.WriteBlock(0, boot); err != nil {
		return nil, err
	}
	for f := 0; f < numFATs; f++ {
		blank := make([]byte, sectorSize)
		for s := 0; s < fatSize; s++ {
			if err := img.WriteBlock(reservedSectors+f*fatSize+s, blank); err != nil {
				return nil, err
			}
		}
	}
	rootSectors := (rootEntries*dirEntrySize + sectorSize - 1) / sectorSize
	blankRoot := make([]byte, sectorSize)
	rootStart := reservedSectors + numFATs*fatSize
	for s := 0; s < rootSectors; s++ {
		if err := img.WriteBlock(rootStart+s, blankRoot); err != nil {
			return nil, err
		}
	}
	return Open(img)
}

func (fs *FS) clusterSize() int { return fs.bpb.BytesPerSector * fs.bpb.SectorsPerCluster }

func (fs *FS) clusterToSector(cluster int) int {
	return fs.dataStartSec + (cluster-2)*fs.bpb.SectorsPerCluster
}

func (fs *FS) readCluster(cluster int) ([]byte, error) {
	var out []byte
	base := fs.clusterToSector(cluster)
	for s := 0; s < fs.bpb.SectorsPerCluster; s++ {
		blk, err := fs.img.ReadBlock(base + s)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func (fs *FS) writeCluster(cluster int, data []byte) error {
	base := fs.clusterToSector(cluster)
	for s := 0; s < fs.bpb.SectorsPerCluster; s++ {
		start := s * sectorSize
		if err := fs.img.WriteBlock(base+s, data[start:start+sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// readFATEntry returns the next cluster (or an EOC/free marker) for
// cluster n, packed per FAT12's nibble-sharing or FAT16's flat words.
func (fs *FS) readFATEntry(n int) (int, error) {
	fatBytes, err := fs.fatBytes()
	if err != nil {
		return 0, err
	}
	if fs.bpb.Bits == 16 {
		off := n * 2
		return int(binary.LittleEndian.Uint16(fatBytes[off : off+2])), nil
	}
	off := n * 3 / 2
	v := binary.LittleEndian.Uint16(fatBytes[off : off+2])
	if n%2 == 0 {
		return int(v & 0xfff), nil
	}
	return int(v >> 4), nil
}

func (fs *FS) fatBytes() ([]byte, error) {
	var out []byte
	for s := 0; s < fs.bpb.FATSize; s++ {
		blk, err := fs.img.ReadBlock(fs.fatStartSec + s)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func isEOC(bits, v int) bool {
	if bits == 16 {
		return v >= 0xfff8
	}
	return v >= 0xff8
}

// clusterChain walks the FAT starting at the given first cluster,
// bounded by maxClusterReps against a corrupt circular chain.
func (fs *FS) clusterChain(first int) ([]int, error) {
	var chain []int
	cur := first
	for i := 0; i < maxClusterReps; i++ {
		if cur < 2 || isEOC(fs.bpb.Bits, cur) {
			break
		}
		chain = append(chain, cur)
		next, err := fs.readFATEntry(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return chain, nil
}

// dirEnt is one parsed 32-byte directory entry.
type dirEnt struct {
	name, ext    string
	attr         byte
	firstCluster int
	size         int
	createDate   []byte
	writeDate    []byte
	sector, off  int
}

func parseDirEnt(raw []byte) dirEnt {
	return dirEnt{
		name:         strings.TrimRight(string(raw[0:8]), " "),
		ext:          strings.TrimRight(string(raw[8:11]), " "),
		attr:         raw[11],
		createDate:   append([]byte{}, raw[14:18]...),
		firstCluster: int(binary.LittleEndian.Uint16(raw[26:28])),
		size:         int(binary.LittleEndian.Uint32(raw[28:32])),
		writeDate:    append([]byte{}, raw[22:26]...),
	}
}

func (e dirEnt) fullName() string {
	if e.ext == "" {
		return e.name
	}
	return e.name + "." + e.ext
}

// walkRegion parses every live directory entry in a flat byte region
// (the fixed root directory, or one subdirectory's cluster chain
// flattened to bytes).
func walkRegion(data []byte, sectorOf func(byteOffset int) (sector, off int), visit func(dirEnt) (stop bool)) {
	for i := 0; i+dirEntrySize <= len(data); i += dirEntrySize {
		raw := data[i : i+dirEntrySize]
		if raw[0] == 0x00 {
			return
		}
		if raw[0] == 0xe5 || raw[11] == 0x0f {
			continue
		}
		e := parseDirEnt(raw)
		e.sector, e.off = sectorOf(i)
		if visit(e) {
			return
		}
	}
}

func (fs *FS) rootBytes() ([]byte, error) {
	var out []byte
	for s := 0; s < fs.rootSectors; s++ {
		blk, err := fs.img.ReadBlock(fs.rootStartSec + s)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func (fs *FS) writeRootBytes(data []byte) error {
	for s := 0; s < fs.rootSectors; s++ {
		start := s * sectorSize
		if err := fs.img.WriteBlock(fs.rootStartSec+s, data[start:start+sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) subdirBytes(firstCluster int) ([]byte, []int, error) {
	chain, err := fs.clusterChain(firstCluster)
	if err != nil {
		return nil, nil, err
	}
	var out []byte
	for _, c := range chain {
		data, err := fs.readCluster(c)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, data...)
	}
	return out, chain, nil
}

// walkDir resolves a "/"-separated path to the directory entry list
// of its containing directory, dispatching to the root region or a
// subdirectory's cluster chain as needed.
func (fs *FS) walkDir(segments []string, visit func(dirEnt) (stop bool)) error {
	if len(segments) == 0 {
		data, err := fs.rootBytes()
		if err != nil {
			return err
		}
		walkRegion(data, func(off int) (int, int) {
			return fs.rootStartSec + off/sectorSize, off % sectorSize
		}, visit)
		return nil
	}
	var found *dirEnt
	err := fs.walkDir(segments[:len(segments)-1], func(e dirEnt) bool {
		if strings.EqualFold(e.fullName(), segments[len(segments)-1]) {
			cp := e
			found = &cp
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if found == nil || found.attr&attrDir == 0 {
		return diskfs.ErrNotFound
	}
	data, _, err := fs.subdirBytes(found.firstCluster)
	if err != nil {
		return err
	}
	walkRegion(data, func(off int) (int, int) { return -1, off }, visit)
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (fs *FS) findEntry(path string) (dirEnt, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return dirEnt{}, diskfs.ErrNotFound
	}
	var found *dirEnt
	err := fs.walkDir(segs[:len(segs)-1], func(e dirEnt) bool {
		if strings.EqualFold(e.fullName(), segs[len(segs)-1]) {
			cp := e
			found = &cp
			return true
		}
		return false
	})
	if err != nil {
		return dirEnt{}, err
	}
	if found == nil {
		return dirEnt{}, diskfs.ErrNotFound
	}
	return *found, nil
}

func (fs *FS) CatalogToVec() ([]diskfs.CatalogEntry, error) {
	var out []diskfs.CatalogEntry
	err := fs.walkDir(nil, func(e dirEnt) bool {
		if e.attr&attrVolumeID != 0 {
			return false
		}
		out = append(out, diskfs.CatalogEntry{
			Path:   e.fullName(),
			Bytes:  e.size,
			Locked: e.attr&attrReadOnly != 0,
			IsDir:  e.attr&attrDir != 0,
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
	chain, err := fs.clusterChain(e.firstCluster)
	if err != nil {
		return nil, err
	}
	var data []byte
	for _, c := range chain {
		raw, err := fs.readCluster(c)
		if err != nil {
			return nil, err
		}
		data = append(data, raw...)
	}
	if e.size > 0 && e.size < len(data) {
		data = data[:e.size]
	}
	fimg := fs.NewFimg(fs.clusterSize())
	fimg.FullPath = e.fullName()
	fimg.Created = e.createDate
	fimg.Modified = e.writeDate
	if e.attr&attrReadOnly != 0 {
		fimg.Access = []byte{1}
	}
	fimg.Desequence(data)
	return fimg, nil
}

func (fs *FS) NewFimg(chunkLen int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSFAT, chunkLen, 4)
}

// dataClusterCount returns the number of addressable data clusters,
// numbered 2..dataClusterCount()+1 per the FAT convention.
func (fs *FS) dataClusterCount() int {
	dataSectors := fs.bpb.TotalSectors - fs.dataStartSec
	return dataSectors / fs.bpb.SectorsPerCluster
}

func (fs *FS) getFATEntry(fatBytes []byte, n int) int {
	if fs.bpb.Bits == 16 {
		off := n * 2
		return int(binary.LittleEndian.Uint16(fatBytes[off : off+2]))
	}
	off := n * 3 / 2
	v := binary.LittleEndian.Uint16(fatBytes[off : off+2])
	if n%2 == 0 {
		return int(v & 0xfff)
	}
	return int(v >> 4)
}

// setFATEntry packs value into fatBytes at cluster n, honoring
// FAT12's nibble-shared encoding (the low and high 12 bits of a
// 16-bit word alternate between adjacent even/odd clusters).
func (fs *FS) setFATEntry(fatBytes []byte, n, value int) {
	if fs.bpb.Bits == 16 {
		off := n * 2
		binary.LittleEndian.PutUint16(fatBytes[off:off+2], uint16(value))
		return
	}
	off := n * 3 / 2
	v := binary.LittleEndian.Uint16(fatBytes[off : off+2])
	if n%2 == 0 {
		v = (v & 0xf000) | uint16(value&0xfff)
	} else {
		v = (v & 0x000f) | uint16(value&0xfff)<<4
	}
	binary.LittleEndian.PutUint16(fatBytes[off:off+2], v)
}

// flushFAT writes fatBytes out to every FAT copy the BPB declares.
func (fs *FS) flushFAT(fatBytes []byte) error {
	for f := 0; f < fs.bpb.NumFATs; f++ {
		for s := 0; s < fs.bpb.FATSize; s++ {
			start := s * sectorSize
			if err := fs.img.WriteBlock(fs.fatStartSec+f*fs.bpb.FATSize+s, fatBytes[start:start+sectorSize]); err != nil {
				return err
			}
		}
	}
	return nil
}

// allocClusters scans the FAT for count free (zero-valued) clusters,
// chains them together ending in an end-of-chain marker, and flushes
// the updated FAT to every copy.
func (fs *FS) allocClusters(count int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	fatBytes, err := fs.fatBytes()
	if err != nil {
		return nil, err
	}
	total := fs.dataClusterCount()
	var chain []int
	for n := 2; n < total+2 && len(chain) < count; n++ {
		if fs.getFATEntry(fatBytes, n) == 0 {
			chain = append(chain, n)
		}
	}
	if len(chain) < count {
		return nil, fmt.Errorf("fat: volume full, needed %d clusters but found %d free", count, len(chain))
	}
	eoc := 0xfff
	if fs.bpb.Bits == 16 {
		eoc = 0xffff
	}
	for i, c := range chain {
		if i == len(chain)-1 {
			fs.setFATEntry(fatBytes, c, eoc)
		} else {
			fs.setFATEntry(fatBytes, c, chain[i+1])
		}
	}
	if err := fs.flushFAT(fatBytes); err != nil {
		return nil, err
	}
	return chain, nil
}

// findFreeRootDirSlot scans the fixed root directory region for an
// unused (never-written or deleted) 32-byte slot.
func (fs *FS) findFreeRootDirSlot() (sector, off int, err error) {
	data, err := fs.rootBytes()
	if err != nil {
		return 0, 0, err
	}
	for i := 0; i+dirEntrySize <= len(data); i += dirEntrySize {
		raw := data[i : i+dirEntrySize]
		if raw[0] == 0x00 || raw[0] == 0xe5 {
			return fs.rootStartSec + i/sectorSize, i % sectorSize, nil
		}
	}
	return 0, 0, fmt.Errorf("fat: root directory is full")
}

// Put writes fimg as a new root-directory file. Writing into a
// subdirectory isn't supported, matching patchEntry's existing
// inability to rewrite a subdirectory-resident entry in place.
func (fs *FS) Put(path string, fimg *fileimage.FileImage) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return diskfs.ErrNameInvalid
	}
	if len(segs) > 1 {
		return fmt.Errorf("fat: Put only supports root directory files, not subdirectory paths")
	}
	name, ext, err := SplitName(segs[0])
	if err != nil {
		return err
	}
	if _, err := fs.findEntry(path); err == nil {
		return fmt.Errorf("fat: %s already exists", segs[0])
	}
	data := fimg.Sequence()
	clusterSize := fs.clusterSize()
	needed := 0
	if len(data) > 0 {
		needed = (len(data) + clusterSize - 1) / clusterSize
	}
	chain, err := fs.allocClusters(needed)
	if err != nil {
		return err
	}
	for i, c := range chain {
		start := i * clusterSize
		end := start + clusterSize
		buf := make([]byte, clusterSize)
		if end <= len(data) {
			copy(buf, data[start:end])
		} else {
			copy(buf, data[start:])
		}
		if err := fs.writeCluster(c, buf); err != nil {
			return err
		}
	}
	sector, off, err := fs.findFreeRootDirSlot()
	if err != nil {
		return err
	}
	blk, err := fs.img.ReadBlock(sector)
	if err != nil {
		return err
	}
	raw := blk[off : off+dirEntrySize]
	nameField := []byte("        ")
	copy(nameField, name)
	extField := []byte("   ")
	copy(extField, ext)
	copy(raw[0:8], nameField)
	copy(raw[8:11], extField)
	var attr byte
	if len(fimg.Access) > 0 && fimg.Access[0] != 0 {
		attr |= attrReadOnly
	}
	raw[11] = attr
	if len(fimg.Created) == 4 {
		copy(raw[14:18], fimg.Created)
	}
	if len(fimg.Modified) == 4 {
		copy(raw[22:26], fimg.Modified)
	} else if len(fimg.Created) == 4 {
		copy(raw[22:26], fimg.Created)
	}
	var firstCluster int
	if len(chain) > 0 {
		firstCluster = chain[0]
	}
	binary.LittleEndian.PutUint16(raw[26:28], uint16(firstCluster))
	binary.LittleEndian.PutUint32(raw[28:32], uint32(len(data)))
	return fs.img.WriteBlock(sector, blk)
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

func (fs *FS) patchEntry(e dirEnt, mutate func([]byte)) error {
	if e.sector >= 0 {
		blk, err := fs.img.ReadBlock(e.sector)
		if err != nil {
			return err
		}
		mutate(blk[e.off : e.off+dirEntrySize])
		return fs.img.WriteBlock(e.sector, blk)
	}
	return fmt.Errorf("fat: patching subdirectory entries is not yet implemented")
}

func (fs *FS) Delete(path string) error {
	e, err := fs.findEntry(path)
	if err != nil {
		return err
	}
	return fs.patchEntry(e, func(raw []byte) { raw[0] = 0xe5 })
}

func (fs *FS) Rename(oldPath, newPath string) error {
	e, err := fs.findEntry(oldPath)
	if err != nil {
		return err
	}
	name, ext, err := SplitName(newPath)
	if err != nil {
		return err
	}
	return fs.patchEntry(e, func(raw []byte) {
		nameField := make([]byte, 8)
		for i := range nameField {
			nameField[i] = ' '
		}
		copy(nameField, name)
		extField := make([]byte, 3)
		for i := range extField {
			extField[i] = ' '
		}
		copy(extField, ext)
		copy(raw[0:8], nameField)
		copy(raw[8:11], extField)
	})
}

func (fs *FS) ReadText(path string) (string, error) {
	fimg, err := fs.Get(path)
	if err != nil {
		return "", err
	}
	return UnpackText(fimg)
}

func (fs *FS) WriteText(path, txt string) error {
	fimg := fs.NewFimg(fs.clusterSize())
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

func (fs *FS) WriteRecords(path string, recs *fileimage.Records) error {
	fimg := fs.NewFimg(fs.clusterSize())
	if err := recs.UpdateFileImage(fimg, false, textConverter{}, true); err != nil {
		return err
	}
	return fs.putReplacing(path, fimg)
}

func (fs *FS) ReadBlock(num int) ([]byte, error)     { return fs.img.ReadBlock(num) }
func (fs *FS) WriteBlock(num int, data []byte) error { return fs.img.WriteBlock(num, data) }

func (fs *FS) Stat(path string) (diskfs.CatalogEntry, error) {
	e, err := fs.findEntry(path)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	chain, err := fs.clusterChain(e.firstCluster)
	if err != nil {
		return diskfs.CatalogEntry{}, err
	}
	return diskfs.CatalogEntry{
		Path: e.fullName(), Bytes: e.size, Blocks: len(chain),
		Locked: e.attr&attrReadOnly != 0, IsDir: e.attr&attrDir != 0,
	}, nil
}

func (fs *FS) Standardize() error { return nil }
