package geometry

import "errors"

var errOutOfRange = errors.New("block number out of range for this zoned geometry")

// Logical-to-physical (and inverse) sector skew maps for 5.25" Apple II
// media, transcribed from the DOS 3.3 and ProDOS read routines (Apple II
// DOS and ProDOS technical references; see UtA2 9-42/9-43). DO-ordered
// images are stored in DOS 3.3 logical order; PO-ordered images are
// stored in ProDOS logical order — both map through the same physical
// sector on disk.
var (
	Dos33LogicalToPhysical = [16]int{
		0x00, 0x0D, 0x0B, 0x09, 0x07, 0x05, 0x03, 0x01,
		0x0E, 0x0C, 0x0A, 0x08, 0x06, 0x04, 0x02, 0x0F,
	}
	Dos33PhysicalToLogical = [16]int{
		0x00, 0x07, 0x0E, 0x06, 0x0D, 0x05, 0x0C, 0x04,
		0x0B, 0x03, 0x0A, 0x02, 0x09, 0x01, 0x08, 0x0F,
	}
	ProDOSLogicalToPhysical = [16]int{
		0x00, 0x02, 0x04, 0x06, 0x08, 0x0A, 0x0C, 0x0E,
		0x01, 0x03, 0x05, 0x07, 0x09, 0x0B, 0x0D, 0x0F,
	}
	ProDOSPhysicalToLogical = [16]int{
		0x00, 0x08, 0x01, 0x09, 0x02, 0x0A, 0x03, 0x0B,
		0x04, 0x0C, 0x05, 0x0D, 0x06, 0x0E, 0x07, 0x0F,
	}
)

// prodos525Sector1/2 give the two DOS-logical-sector numbers making up
// ProDOS block (track*8 + block%8) on a 35-track, 16-sector volume.
var prodos525Sector1 = [8]int{0, 13, 11, 9, 7, 5, 3, 1}
var prodos525Sector2 = [8]int{14, 12, 10, 8, 6, 4, 2, 15}

// zonedSecsPerTrack and the cumulative block counts at each zone
// boundary describe the 3.5" 400K/800K sector layout (spec §4.1).
var zonedSecsPerTrack = [5]int{12, 11, 10, 9, 8}
var zoneBounds400K = [6]int{0, 192, 368, 528, 672, 800}
var zoneBounds800K = [6]int{0, 384, 736, 1056, 1344, 1600}

// TSFromProDOSBlock525 returns the two DOS-logical-sector [track,sector]
// pairs that make up one 512-byte ProDOS block on a 35-track, 16-sector
// 5.25" volume, in DOS logical-sector numbering (not yet skewed to
// physical).
func TSFromProDOSBlock525(block int) [2][2]int {
	track := block / 8
	rel := block % 8
	return [2][2]int{{track, prodos525Sector1[rel]}, {track, prodos525Sector2[rel]}}
}

// TSFromProDOSBlock35 returns the single [track,sector] pair for one
// 524-byte sector on a 3.5" zoned volume (400K: tracksPerZone=16,
// 800K: tracksPerZone=32).
func TSFromProDOSBlock35(block, tracksPerZone int) ([2]int, error) {
	bounds := zoneBounds400K
	if tracksPerZone == 32 {
		bounds = zoneBounds800K
	}
	zone := -1
	for z := 0; z < 5; z++ {
		if block < bounds[z+1] {
			zone = z
			break
		}
	}
	if zone < 0 {
		return [2]int{}, errOutOfRange
	}
	rel := block - bounds[zone]
	secsPerTrack := zonedSecsPerTrack[zone]
	track := tracksPerZone*zone + rel/secsPerTrack
	sector := rel % secsPerTrack
	return [2]int{track, sector}, nil
}
