package merlin

import (
	"fmt"
	"strconv"
	"strings"
)

// Directive is a pseudo-op this scoped assembler understands outside
// the mnemonic handbook: ORG sets the program counter, EQU binds a
// label to a computed value instead of the current address, XC/XC OFF
// drive the processor state, and MX mutates the register-width state.
const (
	dirORG = "ORG"
	dirEQU = "EQU"
	dirXC  = "XC"
	dirMX  = "MX"
)

// RegWidth is the 2-bit MX pseudo-op state (spec §4.6.3 step 3): one
// bit for the accumulator/memory width, one for the index-register
// width. true means 8-bit, false means 16-bit.
type RegWidth struct {
	M8 bool
	X8 bool
}

// AssembledLine is one source line's assembly result.
type AssembledLine struct {
	Line    Line
	Addr    int64
	Bytes   []byte
	IsLabel bool
}

// Assembler runs the scoped two-pass assembly described in DESIGN.md:
// it supports the Handbook's mnemonic set plus ORG/EQU/XC/MX, a forced
// long operand width via the `L` mnemonic suffix, and signed
// relative-branch displacement computation. The `>`/`|`/`<` operand
// prefixes do not force a width: the operand is sized by its value,
// and when it is emitted `>` and `<` select the high and low byte
// while `|` is dropped. Macro
// expansion (spec §4.6.3 step 1) is out of scope here — see DESIGN.md.
type Assembler struct {
	Proc *ProcessorState
	MX   RegWidth
	Syms SymbolTable
}

// NewAssembler returns an Assembler starting in 6502 mode (Merlin 8)
// with an empty symbol table.
func NewAssembler() *Assembler {
	return &Assembler{Proc: NewProcessorState(false), MX: RegWidth{M8: true, X8: true}, Syms: SymbolTable{}}
}

type pendingLine struct {
	line  Line
	addr  int64
	width int // forced instruction length (incl. opcode byte) from pass 1, 0 for directives
	mode  AddrMode
}

// Assemble runs both passes over program (one Merlin source line per
// slice element, already split into columns) and returns the emitted
// bytes per line in source order.
func (a *Assembler) Assemble(lines []Line) ([]AssembledLine, error) {
	pending, err := a.pass1(lines)
	if err != nil {
		return nil, fmt.Errorf("pass 1: %w", err)
	}
	return a.pass2(pending)
}

func (a *Assembler) pass1(lines []Line) ([]pendingLine, error) {
	var pc int64
	out := make([]pendingLine, 0, len(lines))
	for i, l := range lines {
		op := strings.ToUpper(l.Op)
		if l.Label != "" && op != dirEQU {
			a.Syms[strings.ToUpper(l.Label)] = pc
		}
		switch op {
		case "":
			out = append(out, pendingLine{line: l, addr: pc})
			continue
		case dirORG:
			v, err := evalExpr(l.Operand, a.Syms, NoSelector)
			if err != nil {
				return nil, fmt.Errorf("line %d: ORG: %w", i, err)
			}
			pc = v
			out = append(out, pendingLine{line: l, addr: pc})
			continue
		case dirEQU:
			v, err := evalExpr(l.Operand, a.Syms, NoSelector)
			if err != nil {
				return nil, fmt.Errorf("line %d: EQU: %w", i, err)
			}
			if l.Label != "" {
				a.Syms[strings.ToUpper(l.Label)] = v
			}
			out = append(out, pendingLine{line: l, addr: pc})
			continue
		case dirXC:
			a.Proc.XC(strings.EqualFold(strings.TrimSpace(l.Operand), "OFF"))
			out = append(out, pendingLine{line: l, addr: pc})
			continue
		case dirMX:
			if err := a.applyMX(l.Operand); err != nil {
				return nil, fmt.Errorf("line %d: MX: %w", i, err)
			}
			out = append(out, pendingLine{line: l, addr: pc})
			continue
		}
		mode, width, err := a.decideMode(l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		instrLen := 1 + width
		out = append(out, pendingLine{line: l, addr: pc, width: instrLen, mode: mode})
		pc += int64(instrLen)
	}
	return out, nil
}

func (a *Assembler) applyMX(operand string) error {
	operand = strings.TrimSpace(operand)
	v, err := strconv.ParseInt(strings.TrimPrefix(operand, "%"), 2, 64)
	if err != nil {
		return fmt.Errorf("bad MX operand %q: %w", operand, err)
	}
	a.MX.M8 = v&0x2 != 0
	a.MX.X8 = v&0x1 != 0
	return nil
}

// decideMode classifies the addressing mode for a handbook-eligible
// instruction line and reports the operand byte width (0, 1, 2, or 3).
// Forward references to not-yet-defined symbols default to absolute
// (2-byte) width, since pass 1 cannot know a later label's value; this
// is a scope decision, not a recovered fact about Merlin's own
// phase-one behavior, and is recorded in DESIGN.md.
func (a *Assembler) decideMode(l Line) (AddrMode, int, error) {
	mnem := strings.ToUpper(l.Op)
	forcedLong := strings.HasSuffix(mnem, "L") && len(mnem) > 3
	base := mnem
	if forcedLong {
		base = strings.TrimSuffix(mnem, "L")
	}
	operand := strings.TrimSpace(l.Operand)
	if operand == "" {
		if _, ok := Lookup(base, Accumulator); ok {
			return Accumulator, 0, nil
		}
		return Implied, 0, nil
	}
	if strings.HasPrefix(operand, "#") {
		return Immediate, a.immediateWidth(base), nil
	}
	if isBranchMnemonic(base) {
		if base == "BRL" {
			return Relative, 2, nil
		}
		return Relative, 1, nil
	}
	if strings.HasPrefix(operand, "(") && strings.HasSuffix(operand, ",X)") {
		return IndirectX, 1, nil
	}
	if strings.HasPrefix(operand, "(") && strings.HasSuffix(operand, "),Y") {
		return IndirectY, 1, nil
	}
	if strings.HasPrefix(operand, "(") && strings.HasSuffix(operand, ")") {
		return Indirect, 2, nil
	}
	expr, idx := splitIndex(operand)
	width, known := a.exprWidth(expr)
	if forcedLong {
		width = 3
	}
	switch idx {
	case "X":
		if width <= 1 && known {
			return ZeroPageX, 1, nil
		}
		return AbsoluteX, width, nil
	case "Y":
		if width <= 1 && known {
			return ZeroPageY, 1, nil
		}
		return AbsoluteY, width, nil
	default:
		if width <= 1 && known {
			if _, hasZP := Lookup(base, ZeroPage); hasZP {
				return ZeroPage, 1, nil
			}
		}
		if _, hasAbs := Lookup(base, Absolute); !hasAbs {
			if _, hasLong := Lookup(base, AbsoluteLong); hasLong {
				return AbsoluteLong, 3, nil
			}
		}
		if width == 3 {
			return AbsoluteLong, 3, nil
		}
		return Absolute, 2, nil
	}
}

func (a *Assembler) immediateWidth(mnem string) int {
	switch mnem {
	case "LDX", "LDY", "CPX", "CPY":
		if a.MX.X8 {
			return 1
		}
		return 2
	case "REP", "SEP", "COP":
		return 1
	default:
		if a.MX.M8 {
			return 1
		}
		return 2
	}
}

func isBranchMnemonic(m string) bool {
	switch m {
	case "BPL", "BMI", "BVC", "BVS", "BCC", "BCS", "BNE", "BEQ", "BRA", "BRL", "PER":
		return true
	}
	return false
}

// splitIndex strips a trailing ",X" or ",Y" index suffix from operand.
func splitIndex(operand string) (expr string, idx string) {
	up := strings.ToUpper(operand)
	if strings.HasSuffix(up, ",X") {
		return operand[:len(operand)-2], "X"
	}
	if strings.HasSuffix(up, ",Y") {
		return operand[:len(operand)-2], "Y"
	}
	return operand, ""
}

// exprWidth estimates the byte width an expression needs: 1 for a
// literal/resolved symbol under 0x100, 2 otherwise, 3 for values over
// 0x10000. known reports whether the value could be resolved yet (a
// forward-referenced symbol is not known in pass 1).
func (a *Assembler) exprWidth(expr string) (width int, known bool) {
	expr = stripForcedWidthPrefix(expr)
	v, err := evalExpr(expr, a.Syms, NoSelector)
	if err != nil {
		return 2, false
	}
	switch {
	case v < 0x100:
		return 1, true
	case v < 0x10000:
		return 2, true
	default:
		return 3, true
	}
}

func stripForcedWidthPrefix(expr string) string {
	if expr == "" {
		return expr
	}
	switch expr[0] {
	case '>', '|', '<', '^':
		return expr[1:]
	}
	return expr
}

func forcedSelector(expr string) ByteSelector {
	if expr == "" {
		return NoSelector
	}
	switch expr[0] {
	case '^':
		return BankByte
	case '>':
		return HighByte
	case '<':
		return LowByte
	}
	return NoSelector
}

func (a *Assembler) pass2(pending []pendingLine) ([]AssembledLine, error) {
	out := make([]AssembledLine, 0, len(pending))
	for i, p := range pending {
		op := strings.ToUpper(p.line.Op)
		switch op {
		case "", dirEQU:
			out = append(out, AssembledLine{Line: p.line, Addr: p.addr, IsLabel: p.line.Label != ""})
			continue
		case dirORG, dirXC, dirMX:
			out = append(out, AssembledLine{Line: p.line, Addr: p.addr})
			continue
		}
		bytes, err := a.emit(p)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, AssembledLine{Line: p.line, Addr: p.addr, Bytes: bytes})
	}
	return out, nil
}

func (a *Assembler) emit(p pendingLine) ([]byte, error) {
	l := p.line
	mnem := strings.ToUpper(l.Op)
	// mode/width are fixed in pass 1 so a symbol resolved by pass 2 (now
	// known to fit a shorter encoding) cannot shrink an instruction out
	// from under addresses pass 1 already committed to.
	mode := p.mode
	width := p.width - 1
	opInfo, ok := Lookup(strings.TrimSuffix(mnem, "L"), mode)
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic/mode pair %q/%v (scoped handbook)", mnem, mode)
	}
	if !Legal(opInfo, a.Proc.Active()) {
		return nil, fmt.Errorf("%s illegal on active processor", mnem)
	}
	out := []byte{opInfo.Opcode}
	if width == 0 {
		return out, nil
	}
	if mode == Relative {
		return a.emitRelative(l, p.addr, width, out)
	}
	operand := strings.TrimSpace(l.Operand)
	expr, _ := splitIndex(operand)
	expr = strings.TrimPrefix(expr, "#")
	if strings.HasPrefix(expr, "(") {
		expr = strings.TrimSuffix(strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")"), ",X")
	}
	sel := forcedSelector(expr)
	expr = stripForcedWidthPrefix(expr)
	v, err := evalExpr(expr, a.Syms, sel)
	if err != nil {
		return nil, err
	}
	for i := 0; i < width; i++ {
		out = append(out, byte((v>>(8*uint(i)))&0xff))
	}
	return out, nil
}

func (a *Assembler) emitRelative(l Line, pc int64, width int, out []byte) ([]byte, error) {
	target, err := evalExpr(l.Operand, a.Syms, NoSelector)
	if err != nil {
		return nil, err
	}
	disp := target - (pc + int64(len(out)) + int64(width))
	if width == 1 {
		if disp < -128 || disp > 127 {
			return nil, fmt.Errorf("branch target out of 8-bit range: %d", disp)
		}
		return append(out, byte(int8(disp))), nil
	}
	if disp < -32768 || disp > 32767 {
		return nil, fmt.Errorf("branch target out of 16-bit range: %d", disp)
	}
	return append(out, byte(disp&0xff), byte((disp>>8)&0xff)), nil
}
