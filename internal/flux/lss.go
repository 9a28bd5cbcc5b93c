package flux

import "time"

// fakeBits is the seed pool for non-deterministic fake-bit injection
// (spec §9: the hardware MC3470 pulse detector emits noise once the
// drive head has gone 96+ ticks without a real flux transition; a
// deterministic emulator substitutes a fixed pseudo-random byte pool).
var fakeBits = [32]byte{
	180, 2, 177, 40, 180, 160, 114, 96, 20, 1, 26, 45, 25, 96, 129, 70,
	3, 0, 0, 77, 140, 42, 8, 137, 2, 8, 68, 4, 225, 195, 141, 0,
}

// lssROM is the Disk II P6 LSS program, addressed as
// [Q6*2+Q7][latch high bit][pulse][sequence]. Each entry packs the next
// sequence number in its high nibble and the latch operation in its low
// nibble.
var lssROM = [4][2][2][16]byte{
	{ // Q6=0,Q7=0 (read)
		{ // high bit clear
			{0x18, 0x2d, 0x38, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0x29, 0xbd, 0x59, 0xd9, 0x08, 0xfd, 0x4d},
			{0x18, 0x2d, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xcd, 0xd9, 0xd9, 0xd8, 0xfd, 0xdd},
		},
		{ // high bit set
			{0x18, 0x38, 0x28, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0xa8, 0xb8, 0xc8, 0xa0, 0xe8, 0xf8, 0xe0},
			{0x18, 0x38, 0x08, 0x48, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xd8, 0xe8, 0xf8, 0xe0},
		},
	},
	{ // Q6=0,Q7=1 (shift for write, pulse does not affect)
		{
			{0x18, 0x28, 0x39, 0x48, 0x58, 0x68, 0x78, 0x08, 0x98, 0xa8, 0xb9, 0xc8, 0xd8, 0xe8, 0xf8, 0x88},
			{0x18, 0x28, 0x39, 0x48, 0x58, 0x68, 0x78, 0x08, 0x98, 0xa8, 0xb9, 0xc8, 0xd8, 0xe8, 0xf8, 0x88},
		},
		{
			{0x18, 0x28, 0x39, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0xa8, 0xb9, 0xc8, 0xd8, 0xe8, 0xf8, 0x08},
			{0x18, 0x28, 0x39, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0xa8, 0xb9, 0xc8, 0xd8, 0xe8, 0xf8, 0x08},
		},
	},
	{ // Q6=1,Q7=0 (check write protect)
		{
			{0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a},
			{0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a},
		},
		{
			{0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a},
			{0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a},
		},
	},
	{ // Q6=1,Q7=1 (load for write, pulse does not affect)
		{
			{0x18, 0x28, 0x3b, 0x48, 0x58, 0x68, 0x78, 0x08, 0x98, 0xa8, 0xbb, 0xc8, 0xd8, 0xe8, 0xf8, 0x88},
			{0x18, 0x28, 0x3b, 0x48, 0x58, 0x68, 0x78, 0x08, 0x98, 0xa8, 0xbb, 0xc8, 0xd8, 0xe8, 0xf8, 0x88},
		},
		{
			{0x18, 0x28, 0x3b, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0xa8, 0xbb, 0xc8, 0xd8, 0xe8, 0xf8, 0x08},
			{0x18, 0x28, 0x3b, 0x48, 0x58, 0x68, 0x78, 0x88, 0x98, 0xa8, 0xbb, 0xc8, 0xd8, 0xe8, 0xf8, 0x08},
		},
	},
}

func fakeBitsPool(all bool) []bool {
	out := make([]bool, 256)
	if !all {
		return out
	}
	for byteIdx, b := range fakeBits {
		for bit := 0; bit < 8; bit++ {
			out[byteIdx*8+bit] = (b>>(7-bit))&1 == 1
		}
	}
	return out
}

// State is the Disk II analog-board-plus-LSS emulation: it turns a flux
// stream into latch bytes one LSS cycle (4 ticks) at a time (spec §4.1,
// §9).
type State struct {
	seq           int
	latch         byte
	c08d          byte
	q6, q7        bool
	writeProtect  bool
	fakeBitPtr    int
	lastPulse     int
	fakeBitPool   []bool
}

// NewState returns a State at LSS sequence 0 with an empty latch. The
// fake-bit pointer starts at a wall-clock-derived offset so repeated runs
// against copy-protected flux don't all draw the same noise byte; call
// DisableFakeBits for deterministic tests.
func NewState() *State {
	return &State{
		fakeBitPtr:  int(time.Now().Unix() % 256),
		fakeBitPool: fakeBitsPool(true),
	}
}

// DisableFakeBits substitutes an all-zero pool, per spec §9's
// determinism toggle for tests.
func (s *State) DisableFakeBits() { s.fakeBitPool = fakeBitsPool(false) }

// EnableFakeBits restores the seeded pool.
func (s *State) EnableFakeBits() { s.fakeBitPool = fakeBitsPool(true) }

// Seq and Latch expose the machine's visible state for snapshot/restore
// (used when re-entering a track mid-read).
func (s *State) Seq() int      { return s.seq }
func (s *State) Latch() byte   { return s.latch }
func (s *State) Restore(seq int, latch byte) {
	s.seq = seq
	s.latch = latch
}

// StartRead clears Q6/Q7 to select the read arm of the LSS program.
func (s *State) StartRead() {
	s.q6 = false
	s.q7 = false
}

// mc3470Pulse samples one flux cell (every 32 ticks for 5.25", every 16
// for 3.5") and reports whether a pulse (real or fake) was seen,
// advancing the flux pointer by one LSS cycle regardless.
func (s *State) mc3470Pulse(cells *FluxCells) byte {
	pulse := false
	if cells.Ptr()&cells.fmask == 0 {
		newPulse := cells.Get(cells.Ptr())
		if newPulse {
			s.lastPulse = cells.time
		}
		if cells.TicksSince(s.lastPulse) > 96 {
			s.fakeBitPtr = (s.fakeBitPtr + 1) & 0xff
			newPulse = s.fakeBitPool[s.fakeBitPtr]
		}
		pulse = pulse || newPulse
	}
	cells.Fwd(4)
	if pulse {
		return 1
	}
	return 0
}

// Advance steps the state machine through ticks (a multiple of 4) of
// flux time, sampling cells along the way, and reports whether the
// latch was written to during that span.
func (s *State) Advance(ticks int, cells *FluxCells) bool {
	if ticks%4 != 0 {
		panic("flux: Advance requires a tick count divisible by 4")
	}
	touched := false
	cycles := ticks / 4
	for i := 0; i < cycles; i++ {
		pulse := s.mc3470Pulse(cells)
		q6q7 := 0
		if s.q6 {
			q6q7 += 2
		}
		if s.q7 {
			q6q7++
		}
		highBit := 0
		if s.latch&0x80 != 0 {
			highBit = 1
		}
		next := lssROM[q6q7][highBit][pulse][s.seq]
		nextOp := next & 0x0f
		nextSeq := (next & 0xf0) >> 4
		switch nextOp {
		case 0x00:
			s.latch = 0
		case 0x08:
			// no-op
		case 0x09:
			s.latch = s.latch << 1
		case 0x0a:
			if s.writeProtect {
				s.latch = 0xff
			} else {
				s.latch = s.latch >> 1
			}
		case 0x0b:
			s.latch = s.c08d
		case 0x0d:
			s.latch = (s.latch << 1) | 1
		default:
			panic("flux: illegal value in state machine ROM")
		}
		s.seq = int(nextSeq)
		touched = touched || nextOp != 0x08
	}
	return touched
}
