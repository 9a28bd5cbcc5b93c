package merlin

import "fmt"

// LabelMode selects how the disassembler synthesizes labels for
// branch/jump/direct-page targets (spec §4.6.4).
type LabelMode int

const (
	// LabelNone emits no labels; targets appear as bare addresses.
	LabelNone LabelMode = iota
	// LabelAll synthesizes a "_XXXX" label for every branch/JSR/JMP
	// target and every direct-page reference.
	LabelAll
	// LabelSome only labels targets already present in a caller-supplied
	// symbol table, leaving everything else as a bare address.
	LabelSome
)

// DisassembledLine is one decoded instruction.
type DisassembledLine struct {
	Addr  int64
	Bytes []byte
	Line  Line
}

// Disassembler reverses Assembler's encoding over the scoped Handbook
// mnemonic set (spec §4.6.4).
type Disassembler struct {
	Proc  *ProcessorState
	Mode  LabelMode
	BRK   bool // when false, a 0x00 byte disassembles as DS 1,$00 rather than BRK
	Names map[int64]string
}

// NewDisassembler returns a Disassembler in the given label mode,
// starting in 6502 mode (Merlin 8) with BRK decoding enabled.
func NewDisassembler(mode LabelMode) *Disassembler {
	return &Disassembler{Proc: NewProcessorState(false), Mode: mode, BRK: true, Names: map[int64]string{}}
}

// reverseHandbook maps opcode byte -> (mnemonic, mode, operand length),
// built once from Handbook so disassembly and assembly never drift out
// of sync with each other.
var reverseHandbook = func() map[byte]struct {
	mnemonic string
	mode     AddrMode
	len      int
}{
	out := make(map[byte]struct {
		mnemonic string
		mode     AddrMode
		len      int
	})
	for mnem, modes := range Handbook {
		for mode, op := range modes {
			out[op.Opcode] = struct {
				mnemonic string
				mode     AddrMode
				len      int
			}{mnem, mode, op.OperandLen}
		}
	}
	return out
}()

// Disassemble decodes img starting at org, stopping when the bytes are
// exhausted. A 0x00 byte is BRK when d.BRK is true, else a one-byte
// DS 1,$00 pseudo-op (spec §4.6.4).
func (d *Disassembler) Disassemble(img []byte, org int64) ([]DisassembledLine, error) {
	if d.Mode == LabelAll {
		d.gatherLabels(img, org)
	}
	var out []DisassembledLine
	pc := org
	for i := 0; i < len(img); {
		b := img[i]
		if b == 0x00 && !d.BRK {
			out = append(out, DisassembledLine{Addr: pc, Bytes: img[i : i+1], Line: Line{Op: "DS", Operand: "1,$00"}})
			i++
			pc++
			continue
		}
		entry, ok := reverseHandbook[b]
		if !ok {
			return nil, fmt.Errorf("offset %#x: unknown opcode %#02x", i, b)
		}
		width := 1 + entry.len
		if i+width > len(img) {
			return nil, fmt.Errorf("offset %#x: truncated instruction for %s", i, entry.mnemonic)
		}
		operandBytes := img[i+1 : i+width]
		operand, err := d.formatOperand(entry.mnemonic, entry.mode, pc, width, operandBytes)
		if err != nil {
			return nil, fmt.Errorf("offset %#x: %w", i, err)
		}
		out = append(out, DisassembledLine{
			Addr:  pc,
			Bytes: img[i : i+width],
			Line:  Line{Label: d.labelAt(pc), Op: entry.mnemonic, Operand: operand},
		})
		i += width
		pc += int64(width)
	}
	return out, nil
}

// gatherLabels performs a single linear scan synthesizing "_XXXX"
// names for every branch/jump/direct-page target, per LabelAll's
// contract. Like a real disassembler operating without a control-flow
// graph, this treats the image as straight-line code; it does not
// distinguish code from embedded data.
func (d *Disassembler) gatherLabels(img []byte, org int64) {
	pc := org
	for i := 0; i < len(img); {
		b := img[i]
		entry, ok := reverseHandbook[b]
		if !ok {
			i++
			pc++
			continue
		}
		width := 1 + entry.len
		if i+width > len(img) {
			break
		}
		if entry.mode == Relative || entry.mode == Absolute || entry.mode == AbsoluteLong || entry.mode == ZeroPage {
			var target int64
			switch entry.len {
			case 1:
				if entry.mode == Relative {
					target = pc + 2 + int64(int8(img[i+1]))
				} else {
					target = int64(img[i+1])
				}
			case 2:
				target = int64(img[i+1]) | int64(img[i+2])<<8
				if entry.mode == Relative {
					target = pc + 3 + int64(int16(target))
				}
			case 3:
				target = int64(img[i+1]) | int64(img[i+2])<<8 | int64(img[i+3])<<16
			}
			if _, named := d.Names[target]; !named {
				d.Names[target] = fmt.Sprintf("_%04X", target&0xffff)
			}
		}
		i += width
		pc += int64(width)
	}
}

func (d *Disassembler) labelAt(addr int64) string {
	if d.Mode == LabelNone {
		return ""
	}
	return d.Names[addr]
}

func (d *Disassembler) formatOperand(mnemonic string, mode AddrMode, pc int64, width int, b []byte) (string, error) {
	switch mode {
	case Implied, Accumulator:
		return "", nil
	case Immediate:
		return fmt.Sprintf("#$%s", hexBytes(b)), nil
	case Relative:
		var target int64
		if len(b) == 1 {
			target = pc + int64(width) + int64(int8(b[0]))
		} else {
			target = pc + int64(width) + int64(int16(int64(b[0])|int64(b[1])<<8))
		}
		if name, ok := d.refName(target); ok {
			return name, nil
		}
		return fmt.Sprintf("$%04X", target&0xffff), nil
	case ZeroPage:
		return d.addrOperand(int64(b[0]), "$%02X"), nil
	case ZeroPageX:
		return d.addrOperand(int64(b[0]), "$%02X") + ",X", nil
	case ZeroPageY:
		return d.addrOperand(int64(b[0]), "$%02X") + ",Y", nil
	case Absolute:
		return d.addrOperand(le16(b), "$%04X"), nil
	case AbsoluteX:
		return d.addrOperand(le16(b), "$%04X") + ",X", nil
	case AbsoluteY:
		return d.addrOperand(le16(b), "$%04X") + ",Y", nil
	case AbsoluteLong:
		v := int64(b[0]) | int64(b[1])<<8 | int64(b[2])<<16
		return fmt.Sprintf("$%06X", v), nil
	case Indirect:
		return fmt.Sprintf("($%04X)", le16(b)), nil
	case IndirectX:
		return fmt.Sprintf("($%02X,X)", b[0]), nil
	case IndirectY:
		return fmt.Sprintf("($%02X),Y", b[0]), nil
	default:
		return "", fmt.Errorf("unsupported addressing mode %v for %s", mode, mnemonic)
	}
}

func (d *Disassembler) refName(target int64) (string, bool) {
	if d.Mode == LabelNone {
		return "", false
	}
	name, ok := d.Names[target]
	return name, ok
}

func (d *Disassembler) addrOperand(v int64, format string) string {
	if name, ok := d.refName(v); ok {
		return name
	}
	return fmt.Sprintf(format, v)
}

func le16(b []byte) int64 { return int64(b[0]) | int64(b[1])<<8 }

func hexBytes(b []byte) string {
	out := ""
	for i := len(b) - 1; i >= 0; i-- {
		out += fmt.Sprintf("%02X", b[i])
	}
	return out
}
