package merlin

import "strings"

// ProcessorType is the active 65xx variant (spec §4.6.2).
type ProcessorType int

const (
	P6502 ProcessorType = iota
	P65C02
	P65802
	P65C816
)

// ProcessorState tracks the XC pseudo-op's internal counter, which
// governs which ProcessorType is active. Merlin 8 sources start the
// counter at 0; Merlin 16/16+/32 sources start it at 2 (spec §4.6.2).
type ProcessorState struct {
	xcCount int
}

// NewProcessorState returns a state whose XC counter starts at the
// value appropriate for startAt16Plus (true for Merlin 16/16+/32
// sources, false for Merlin 8).
func NewProcessorState(startAt16Plus bool) *ProcessorState {
	if startAt16Plus {
		return &ProcessorState{xcCount: 2}
	}
	return &ProcessorState{xcCount: 0}
}

// XC advances the counter on an "XC" pseudo-op occurrence, or resets
// it to 0 on "XC OFF".
func (s *ProcessorState) XC(off bool) {
	if off {
		s.xcCount = 0
		return
	}
	if s.xcCount < 3 {
		s.xcCount++
	}
}

// Active reports the ProcessorType the current XC counter selects.
func (s *ProcessorState) Active() ProcessorType {
	switch s.xcCount {
	case 0:
		return P6502
	case 1:
		return P65C02
	case 2:
		return P65802
	default:
		return P65C816
	}
}

// AddrMode is one 6502/65816 addressing mode.
type AddrMode int

const (
	Implied AddrMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX
	IndirectY
	Relative
	AbsoluteLong
	AbsoluteLongX
	StackRelative
)

// Operation is one (mnemonic, addressing-mode) pair's handbook entry
// (spec §4.6.3 step 2): an opcode byte, the width its operand occupies
// in bytes, and the processor mask it requires.
type Operation struct {
	Opcode      byte
	OperandLen  int
	MinCPU      ProcessorType
}

// Handbook is the table-driven operation set a processor model
// exposes (spec §4.6.2's "table-driven from the operation handbook").
// Grounded on the public, invariant NMOS 6502 / 65C02 / 65C816 opcode
// map (unlike the BASIC token tables, these byte values are
// unambiguous and universally documented, so no pack grounding gap
// applies here). Scope decision: this handbook covers a representative
// core of mnemonics across every addressing-mode family the assembler
// and disassembler exercise (loads/stores, branches, stack ops,
// arithmetic, jumps, and representative 65C816 additions PEA/PEI/BRL/
// JSL/JML/MVN/MVP) rather than the full ~200-entry 6502+65C02+65C816
// opcode set; DESIGN.md records the remaining mnemonics as an open
// item rather than risk transcribing the full table from memory.
var Handbook = map[string]map[AddrMode]Operation{
	"LDA": {
		Immediate: {0xa9, 1, P6502}, ZeroPage: {0xa5, 1, P6502}, ZeroPageX: {0xb5, 1, P6502},
		Absolute: {0xad, 2, P6502}, AbsoluteX: {0xbd, 2, P6502}, AbsoluteY: {0xb9, 2, P6502},
		IndirectX: {0xa1, 1, P6502}, IndirectY: {0xb1, 1, P6502},
		AbsoluteLong: {0xaf, 3, P65C816}, AbsoluteLongX: {0xbf, 3, P65C816},
	},
	"STA": {
		ZeroPage: {0x85, 1, P6502}, ZeroPageX: {0x95, 1, P6502}, Absolute: {0x8d, 2, P6502},
		AbsoluteX: {0x9d, 2, P6502}, AbsoluteY: {0x99, 2, P6502}, IndirectX: {0x81, 1, P6502},
		IndirectY: {0x91, 1, P6502}, AbsoluteLong: {0x8f, 3, P65C816},
	},
	"LDX":  {Immediate: {0xa2, 1, P6502}, ZeroPage: {0xa6, 1, P6502}, Absolute: {0xae, 2, P6502}},
	"LDY":  {Immediate: {0xa0, 1, P6502}, ZeroPage: {0xa4, 1, P6502}, Absolute: {0xac, 2, P6502}},
	"STX":  {ZeroPage: {0x86, 1, P6502}, Absolute: {0x8e, 2, P6502}},
	"STY":  {ZeroPage: {0x84, 1, P6502}, Absolute: {0x8c, 2, P6502}},
	"ADC":  {Immediate: {0x69, 1, P6502}, ZeroPage: {0x65, 1, P6502}, Absolute: {0x6d, 2, P6502}},
	"SBC":  {Immediate: {0xe9, 1, P6502}, ZeroPage: {0xe5, 1, P6502}, Absolute: {0xed, 2, P6502}},
	"AND":  {Immediate: {0x29, 1, P6502}, ZeroPage: {0x25, 1, P6502}, Absolute: {0x2d, 2, P6502}},
	"ORA":  {Immediate: {0x09, 1, P6502}, ZeroPage: {0x05, 1, P6502}, Absolute: {0x0d, 2, P6502}},
	"EOR":  {Immediate: {0x49, 1, P6502}, ZeroPage: {0x45, 1, P6502}, Absolute: {0x4d, 2, P6502}},
	"CMP":  {Immediate: {0xc9, 1, P6502}, ZeroPage: {0xc5, 1, P6502}, Absolute: {0xcd, 2, P6502}},
	"CPX":  {Immediate: {0xe0, 1, P6502}, ZeroPage: {0xe4, 1, P6502}, Absolute: {0xec, 2, P6502}},
	"CPY":  {Immediate: {0xc0, 1, P6502}, ZeroPage: {0xc4, 1, P6502}, Absolute: {0xcc, 2, P6502}},
	"INC":  {ZeroPage: {0xe6, 1, P6502}, Absolute: {0xee, 2, P6502}, Accumulator: {0x1a, 0, P65C02}},
	"DEC":  {ZeroPage: {0xc6, 1, P6502}, Absolute: {0xce, 2, P6502}, Accumulator: {0x3a, 0, P65C02}},
	"INX":  {Implied: {0xe8, 0, P6502}},
	"INY":  {Implied: {0xc8, 0, P6502}},
	"DEX":  {Implied: {0xca, 0, P6502}},
	"DEY":  {Implied: {0x88, 0, P6502}},
	"TAX":  {Implied: {0xaa, 0, P6502}},
	"TXA":  {Implied: {0x8a, 0, P6502}},
	"TAY":  {Implied: {0xa8, 0, P6502}},
	"TYA":  {Implied: {0x98, 0, P6502}},
	"TSX":  {Implied: {0xba, 0, P6502}},
	"TXS":  {Implied: {0x9a, 0, P6502}},
	"PHA":  {Implied: {0x48, 0, P6502}},
	"PLA":  {Implied: {0x68, 0, P6502}},
	"PHP":  {Implied: {0x08, 0, P6502}},
	"PLP":  {Implied: {0x28, 0, P6502}},
	"PHX":  {Implied: {0xda, 0, P65C02}},
	"PLX":  {Implied: {0xfa, 0, P65C02}},
	"PHY":  {Implied: {0x5a, 0, P65C02}},
	"PLY":  {Implied: {0x7a, 0, P65C02}},
	"CLC":  {Implied: {0x18, 0, P6502}},
	"SEC":  {Implied: {0x38, 0, P6502}},
	"CLI":  {Implied: {0x58, 0, P6502}},
	"SEI":  {Implied: {0x78, 0, P6502}},
	"CLV":  {Implied: {0xb8, 0, P6502}},
	"CLD":  {Implied: {0xd8, 0, P6502}},
	"SED":  {Implied: {0xf8, 0, P6502}},
	"NOP":  {Implied: {0xea, 0, P6502}},
	"BRK":  {Implied: {0x00, 0, P6502}},
	"RTS":  {Implied: {0x60, 0, P6502}},
	"RTI":  {Implied: {0x40, 0, P6502}},
	"JMP":  {Absolute: {0x4c, 2, P6502}, Indirect: {0x6c, 2, P6502}},
	"JSR":  {Absolute: {0x20, 2, P6502}},
	"BPL":  {Relative: {0x10, 1, P6502}},
	"BMI":  {Relative: {0x30, 1, P6502}},
	"BVC":  {Relative: {0x50, 1, P6502}},
	"BVS":  {Relative: {0x70, 1, P6502}},
	"BCC":  {Relative: {0x90, 1, P6502}},
	"BCS":  {Relative: {0xb0, 1, P6502}},
	"BNE":  {Relative: {0xd0, 1, P6502}},
	"BEQ":  {Relative: {0xf0, 1, P6502}},
	"BRA":  {Relative: {0x80, 1, P65C02}},
	"ASL":  {Accumulator: {0x0a, 0, P6502}, ZeroPage: {0x06, 1, P6502}, Absolute: {0x0e, 2, P6502}},
	"LSR":  {Accumulator: {0x4a, 0, P6502}, ZeroPage: {0x46, 1, P6502}, Absolute: {0x4e, 2, P6502}},
	"ROL":  {Accumulator: {0x2a, 0, P6502}, ZeroPage: {0x26, 1, P6502}, Absolute: {0x2e, 2, P6502}},
	"ROR":  {Accumulator: {0x6a, 0, P6502}, ZeroPage: {0x66, 1, P6502}, Absolute: {0x6e, 2, P6502}},
	"BIT":  {ZeroPage: {0x24, 1, P6502}, Absolute: {0x2c, 2, P6502}, Immediate: {0x89, 1, P65C02}},
	"STZ":  {ZeroPage: {0x64, 1, P65C02}, Absolute: {0x9c, 2, P65C02}},
	"TRB":  {ZeroPage: {0x14, 1, P65C02}, Absolute: {0x1c, 2, P65C02}},
	"TSB":  {ZeroPage: {0x04, 1, P65C02}, Absolute: {0x0c, 2, P65C02}},
	"COP":  {Immediate: {0x02, 1, P65C816}},
	"BRL":  {Relative: {0x82, 2, P65C816}},
	"JSL":  {AbsoluteLong: {0x22, 3, P65C816}},
	"JML":  {AbsoluteLong: {0x5c, 3, P65C816}},
	"PEA":  {Absolute: {0xf4, 2, P65C816}},
	"PEI":  {ZeroPage: {0xd4, 1, P65C816}},
	"PER":  {Relative: {0x62, 2, P65C816}},
	"MVN":  {Implied: {0x54, 2, P65C816}},
	"MVP":  {Implied: {0x44, 2, P65C816}},
	"PHB":  {Implied: {0x8b, 0, P65C816}},
	"PLB":  {Implied: {0xab, 0, P65C816}},
	"PHD":  {Implied: {0x0b, 0, P65C816}},
	"PLD":  {Implied: {0x2b, 0, P65C816}},
	"PHK":  {Implied: {0x4b, 0, P65C816}},
	"TCD":  {Implied: {0x5b, 0, P65C816}},
	"TDC":  {Implied: {0x7b, 0, P65C816}},
	"TCS":  {Implied: {0x1b, 0, P65C816}},
	"TSC":  {Implied: {0x3b, 0, P65C816}},
	"XCE":  {Implied: {0xfb, 0, P65C816}},
	"REP":  {Immediate: {0xc2, 1, P65C816}},
	"SEP":  {Immediate: {0xe2, 1, P65C816}},
}

// Lookup finds the handbook entry for mnemonic in the given addressing
// mode, reporting ok=false if the pair is unknown.
func Lookup(mnemonic string, mode AddrMode) (Operation, bool) {
	fam, ok := Handbook[strings.ToUpper(mnemonic)]
	if !ok {
		return Operation{}, false
	}
	op, ok := fam[mode]
	return op, ok
}

// Legal reports whether op's minimum processor requirement is
// satisfied by the currently active processor.
func Legal(op Operation, active ProcessorType) bool {
	return active >= op.MinCPU
}
