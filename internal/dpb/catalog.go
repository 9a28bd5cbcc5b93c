package dpb

// Standard named DPBs, carried over from the original a2kit's heuristic
// catalog (see SPEC_FULL.md §C). There is no on-disk way to recover these
// from a bare CP/M image. mkdsk and the CLI's CP/M open path use A2525
// directly; no code path tries the others in turn.
var (
	// A2525 covers the Apple II 5.25" CP/M format (Apple/Microsoft
	// SoftCard and friends).
	A2525 = DPB{
		Spt: 32, Bsh: 3, Blm: 7, Exm: 0, Dsm: 127, Drm: 63,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 0x8000, Off: 3,
		ReservedTrackCapacity: 3 * 32 * RecordSize,
	}

	// CPM1 is the canonical 8" SSSD CP/M v1 format (26 sectors/track).
	CPM1 = DPB{
		Spt: 26, Bsh: 3, Blm: 7, Exm: 0, Dsm: 242, Drm: 63,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 0x8000, Off: 2,
		ReservedTrackCapacity: 2 * 26 * RecordSize,
	}

	// Osborne1SD covers standard Osborne 1 single-density disks.
	Osborne1SD = DPB{
		Spt: 20, Bsh: 4, Blm: 15, Exm: 1, Dsm: 45, Drm: 63,
		Al0: 0b10000000, Al1: 0b00000000, Cks: 16, Off: 3,
		ReservedTrackCapacity: 3 * 20 * RecordSize,
	}

	// Osborne1DD covers upgraded Osborne 1 double-density disks.
	Osborne1DD = DPB{
		Spt: 40, Bsh: 3, Blm: 7, Exm: 0, Dsm: 184, Drm: 63,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 16, Off: 3,
		ReservedTrackCapacity: 3 * 40 * RecordSize,
	}

	// KayproII covers Kaypro II disks: half of AL0's mapped blocks hold
	// the directory, the remainder are reserved OS blocks.
	KayproII = DPB{
		Spt: 40, Bsh: 3, Blm: 7, Exm: 0, Dsm: 194, Drm: 63,
		Al0: 0b11110000, Al1: 0b00000000, Cks: 16, Off: 1,
		ReservedTrackCapacity: 40 * RecordSize,
	}

	// Kaypro4 covers Kaypro 4 double-sided double-density disks.
	Kaypro4 = DPB{
		Spt: 40, Bsh: 4, Blm: 15, Exm: 1, Dsm: 196, Drm: 63,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 16, Off: 1,
		ReservedTrackCapacity: 40 * RecordSize,
	}

	// Amstrad184K covers Amstrad PCW9512 / PCW8256 184K disks.
	Amstrad184K = DPB{
		Spt: 36, Bsh: 3, Blm: 7, Exm: 0, Dsm: 174, Drm: 63,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 16, Off: 1,
		ReservedTrackCapacity: 36 * RecordSize,
	}

	// TRS80M2 covers the TRS-80 Model II CP/M format.
	TRS80M2 = DPB{
		Spt: 64, Bsh: 4, Blm: 15, Exm: 0, Dsm: 299, Drm: 127,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 16, Off: 2,
		ReservedTrackCapacity: 26*RecordSize + 16*512,
	}

	// NABU covers the NABU PC's CP/M disk format.
	NABU = DPB{
		Spt: 52, Bsh: 4, Blm: 15, Exm: 0, Dsm: 493, Drm: 127,
		Al0: 0b11000000, Al1: 0b00000000, Cks: 16, Off: 2,
		ReservedTrackCapacity: 2 * 26 * RecordSize,
	}
)

// StandardDPBs lists every named DPB above. The §8 property test checks
// that each one passes Verify; no image-size matching heuristic uses it.
var StandardDPBs = []DPB{
	A2525, CPM1, Osborne1SD, Osborne1DD, KayproII, Kaypro4, Amstrad184K, TRS80M2, NABU,
}
