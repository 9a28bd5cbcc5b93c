// Package geometry describes the physical track/sector layout of the media
// this toolkit reads and writes: DiskKind and TrackLayout from spec §3.
package geometry

import "fmt"

// DiskKind names a physical medium geometry. The zero value is Unknown.
type DiskKind int

const (
	Unknown DiskKind = iota
	A2525_13 // 5.25" 13-sector (DOS 3.2 era)
	A2525_16 // 5.25" 16-sector (DOS 3.3 / ProDOS)
	A2_35_400K
	A2_35_800K
	EightInchSSSD
	IBM525_SSDD
	IBM525_DSDD
	IBM525_DSHD
	IBM35_720K
	IBM35_1440K
	IBM35_2880K
	LogicalSectors // no physical geometry, sector-addressed only
)

func (k DiskKind) String() string {
	switch k {
	case A2525_13:
		return "5.25 in 13-sector"
	case A2525_16:
		return "5.25 in 16-sector"
	case A2_35_400K:
		return "3.5 in 400K"
	case A2_35_800K:
		return "3.5 in 800K"
	case EightInchSSSD:
		return "8 in SSSD"
	case IBM525_SSDD:
		return "5.25 in IBM SSDD"
	case IBM525_DSDD:
		return "5.25 in IBM DSDD"
	case IBM525_DSHD:
		return "5.25 in IBM DSHD"
	case IBM35_720K:
		return "3.5 in IBM 720K"
	case IBM35_1440K:
		return "3.5 in IBM 1.44M"
	case IBM35_2880K:
		return "3.5 in IBM 2.88M"
	case LogicalSectors:
		return "logical sectors only"
	default:
		return "unknown"
	}
}

// Zone is one contiguous run of cylinders sharing a sector layout. 3.5"
// Apple drives use five zones (see spec §4.1); everything else is a
// single-zone TrackLayout.
type Zone struct {
	CylinderLo     int
	CylinderHi     int // inclusive
	Sides          int
	SectorsPerTrk  int
	BytesPerSector int
}

// TrackLayout is the ordered list of zones making up a DiskKind's geometry.
type TrackLayout struct {
	Zones []Zone
}

// ZoneFor returns the zone covering the given cylinder, or an error if the
// cylinder falls outside every zone.
func (t TrackLayout) ZoneFor(cylinder int) (Zone, error) {
	for _, z := range t.Zones {
		if cylinder >= z.CylinderLo && cylinder <= z.CylinderHi {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("cylinder %d out of range for track layout", cylinder)
}

// TotalBytes sums the capacity of every zone in the layout.
func (t TrackLayout) TotalBytes() int {
	total := 0
	for _, z := range t.Zones {
		cyls := z.CylinderHi - z.CylinderLo + 1
		total += cyls * z.Sides * z.SectorsPerTrk * z.BytesPerSector
	}
	return total
}

// Layout returns the standard TrackLayout for a DiskKind. Kinds with no
// fixed geometry (LogicalSectors, Unknown) return an empty layout.
func Layout(kind DiskKind) TrackLayout {
	switch kind {
	case A2525_13:
		return TrackLayout{Zones: []Zone{{0, 34, 1, 13, 256}}}
	case A2525_16:
		return TrackLayout{Zones: []Zone{{0, 34, 1, 16, 256}}}
	case A2_35_400K:
		return TrackLayout{Zones: []Zone{
			{0, 15, 1, 12, 524},
			{16, 31, 1, 11, 524},
			{32, 47, 1, 10, 524},
			{48, 63, 1, 9, 524},
			{64, 79, 1, 8, 524},
		}}
	case A2_35_800K:
		return TrackLayout{Zones: []Zone{
			{0, 15, 2, 12, 524},
			{16, 31, 2, 11, 524},
			{32, 47, 2, 10, 524},
			{48, 63, 2, 9, 524},
			{64, 79, 2, 8, 524},
		}}
	case EightInchSSSD:
		return TrackLayout{Zones: []Zone{{0, 76, 1, 26, 128}}}
	case IBM525_SSDD:
		return TrackLayout{Zones: []Zone{{0, 39, 1, 9, 512}}}
	case IBM525_DSDD:
		return TrackLayout{Zones: []Zone{{0, 39, 2, 9, 512}}}
	case IBM525_DSHD:
		return TrackLayout{Zones: []Zone{{0, 79, 2, 15, 512}}}
	case IBM35_720K:
		return TrackLayout{Zones: []Zone{{0, 79, 2, 9, 512}}}
	case IBM35_1440K:
		return TrackLayout{Zones: []Zone{{0, 79, 2, 18, 512}}}
	case IBM35_2880K:
		return TrackLayout{Zones: []Zone{{0, 79, 2, 36, 512}}}
	default:
		return TrackLayout{}
	}
}

// IdentifyBySize finds the DiskKind whose standard layout produces exactly
// nbytes, as used by the IMG codec's "auto-identifies geometry from file
// size" rule (spec §4.2).
func IdentifyBySize(nbytes int) (DiskKind, bool) {
	candidates := []DiskKind{
		A2525_13, A2525_16, A2_35_400K, A2_35_800K, EightInchSSSD,
		IBM525_SSDD, IBM525_DSDD, IBM525_DSHD,
		IBM35_720K, IBM35_1440K, IBM35_2880K,
	}
	for _, k := range candidates {
		if Layout(k).TotalBytes() == nbytes {
			return k, true
		}
	}
	return Unknown, false
}
