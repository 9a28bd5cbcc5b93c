// Package dpb implements the CP/M Disk Parameter Block from spec §3: the
// geometry descriptor CP/M's BDOS uses to address an arbitrary disk
// format. There is no on-disk standard for storing a DPB (it lived in the
// BIOS), so this toolkit keeps a small catalog of known-good DPBs, as
// the original a2kit does (see SPEC_FULL.md §C); the CLI uses A2525.
package dpb

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

const (
	DirEntrySize       = 32
	LogicalExtentSize  = 16384
	RecordSize         = 128
)

// DPB is the CP/M Disk Parameter Block. Field names match the historical
// BDOS mnemonics; see spec §3 for the meaning of each.
type DPB struct {
	Spt                    uint16
	Bsh                    uint8
	Blm                    uint8
	Exm                    uint8
	Dsm                    uint16
	Drm                    uint16
	Al0                    uint8
	Al1                    uint8
	Cks                    uint16
	Off                    uint16
	Psh                    uint8
	Phm                    uint8
	ReservedTrackCapacity  int
}

// Verify checks every inter-field constraint spec §3 requires of a DPB.
// Order matters: later checks assume earlier ones already hold.
func (d DPB) Verify() error {
	if d.Bsh < 3 || d.Bsh > 7 {
		return fmt.Errorf("bsh %d out of range [3,7]", d.Bsh)
	}
	if uint16(d.Blm) != (1<<d.Bsh)-1 {
		return fmt.Errorf("blm must equal 2^bsh-1")
	}
	if d.Dsm > 0x7fff {
		return fmt.Errorf("dsm %d exceeds maximum block count", d.Dsm)
	}
	if d.Bsh == 3 && d.Dsm > 0xff {
		return fmt.Errorf("dsm %d exceeds maximum for 1K blocks", d.Dsm)
	}
	bls := 128 << d.Bsh
	var maxExm int
	if d.Dsm < 256 {
		maxExm = 16*bls/LogicalExtentSize - 1
	} else {
		maxExm = 8*bls/LogicalExtentSize - 1
	}
	if int(d.Exm) > maxExm {
		return fmt.Errorf("exm %d exceeds capacity for this block size", d.Exm)
	}
	switch d.Exm {
	case 0, 1, 3, 7, 15:
	default:
		return fmt.Errorf("invalid extent mask %d", d.Exm)
	}
	if int(d.Drm)+1 > 16*bls/DirEntrySize {
		return fmt.Errorf("directory exceeds 16 blocks")
	}
	contiguous := d.contiguousDirBlocks()
	if contiguous < (int(d.Drm)+1)*DirEntrySize/bls {
		return fmt.Errorf("directory block map fails to cover drm+1 entries (got %d contiguous blocks)", contiguous)
	}
	if d.DirBlocks() > d.UserBlocks() {
		return fmt.Errorf("directory blocks (%d) exceed user blocks (%d)", d.DirBlocks(), d.UserBlocks())
	}
	return nil
}

// contiguousDirBlocks counts the leading run of set bits in the 16-bit
// al0||al1 bitmap, starting from its high bit, using a bitmap.Bitmap
// view over the two bytes.
func (d DPB) contiguousDirBlocks() int {
	bm := bitmap.NewSlice(16)
	packed := uint16(d.Al0)<<8 | uint16(d.Al1)
	for i := 0; i < 16; i++ {
		if packed&(0x8000>>i) != 0 {
			bm.Set(i, true)
		}
	}
	count := 0
	for i := 0; i < 16; i++ {
		if !bm.Get(i) {
			break
		}
		count++
	}
	return count
}

// BlockSize returns the block size in bytes: 128 << Bsh.
func (d DPB) BlockSize() int { return 128 << d.Bsh }

// PtrSize returns the width, in bytes, of a block pointer in the
// directory: 1 byte when Dsm < 256, else 2.
func (d DPB) PtrSize() int {
	if d.Dsm < 256 {
		return 1
	}
	return 2
}

// ExtentCapacity is the byte capacity addressed by one directory extent.
func (d DPB) ExtentCapacity() int { return (int(d.Exm) + 1) * LogicalExtentSize }

// UserBlocks is the total number of allocatable blocks.
func (d DPB) UserBlocks() int { return int(d.Dsm) + 1 }

// DirEntries is the maximum number of directory entries.
func (d DPB) DirEntries() int { return int(d.Drm) + 1 }

// DirBlocks is the number of blocks consumed by the directory, rounded up.
func (d DPB) DirBlocks() int {
	full := d.DirEntries() * DirEntrySize / d.BlockSize()
	if (d.DirEntries()*DirEntrySize)%d.BlockSize() == 0 {
		return full
	}
	return full + 1
}

// ReservedBlocks returns how many low-numbered blocks the al0/al1 bitmap
// reserves for the directory (as opposed to the OS-reserved tracks).
func (d DPB) ReservedBlocks() int { return d.contiguousDirBlocks() }

// IsReserved reports whether the given block index is marked reserved by
// the directory allocation bitmap.
func (d DPB) IsReserved(blk int) bool {
	if blk > 15 {
		return false
	}
	packed := uint16(d.Al0)<<8 | uint16(d.Al1)
	return packed<<uint(blk)&0x8000 != 0
}

// DiskCapacity is the total byte capacity including OS-reserved tracks and
// any unused remainder sectors on the final track.
func (d DPB) DiskCapacity() int {
	trackCapacity := int(d.Spt) * RecordSize
	user := d.UserBlocks() * d.BlockSize()
	remainder := user % trackCapacity
	if remainder > 0 {
		return d.ReservedTrackCapacity + user + trackCapacity - remainder
	}
	return d.ReservedTrackCapacity + user
}
