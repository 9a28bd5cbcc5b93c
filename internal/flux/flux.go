// Package flux implements the bit-cell track representation and Disk II
// Logic State Sequencer emulation described in spec §4.1 and §9: the
// common substrate underneath the NIB and WOZ1/WOZ2 codecs.
package flux

// FluxCells is a bit-addressable flux stream for one revolution of one
// track, advanced in 125ns ticks (spec §3). The bit stream itself is a
// self-sync GCR encoding; the cell's "pointer" tracks elapsed ticks, not
// bits, so callers can step the LSS at whatever tick grain it asks for.
type FluxCells struct {
	stream []bool // one bit per flux transition cell

	ptr    int // tick-resolution pointer into the track
	fshift uint
	fmask  int

	time int // monotonic tick counter, never wraps
}

// NewFluxCells builds a FluxCells over bits, where each bit occupies
// 1<<fshift ticks (fshift==5 is standard 4us bit cells at the 125ns tick
// rate used by WOZ).
func NewFluxCells(bits []bool, fshift uint) *FluxCells {
	return &FluxCells{
		stream: bits,
		fshift: fshift,
		fmask:  (1 << fshift) - 1,
	}
}

// Get reads the bit at tick-resolution pointer ptr without advancing.
func (c *FluxCells) Get(ptr int) bool {
	i := ptr >> c.fshift
	if i < 0 {
		return false
	}
	return c.stream[i%len(c.stream)]
}

// Fwd advances the pointer by ticks, wrapping at the track length. The
// pointer is monotonic within a revolution and wraps rather than
// overflowing, per spec §3's FluxCells invariant.
func (c *FluxCells) Fwd(ticks int) {
	trackTicks := len(c.stream) << c.fshift
	c.ptr = (c.ptr + ticks) % trackTicks
	c.time += ticks
}

// Ptr returns the current tick-resolution pointer.
func (c *FluxCells) Ptr() int { return c.ptr }

// TicksSince returns the number of ticks elapsed since some earlier
// recorded time value.
func (c *FluxCells) TicksSince(earlier int) int { return c.time - earlier }

// Len returns the track length in bits.
func (c *FluxCells) Len() int { return len(c.stream) }
