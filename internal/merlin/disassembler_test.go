package merlin

import "testing"

func TestDisassembleSimpleSequence(t *testing.T) {
	img := []byte{0xa9, 0x01, 0x85, 0x00, 0xd0, 0xfa}
	d := NewDisassembler(LabelNone)
	lines, err := d.Disassemble(img, 0x8000)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Line.Op != "LDA" || lines[0].Line.Operand != "#$01" {
		t.Fatalf("got %+v", lines[0].Line)
	}
	if lines[1].Line.Op != "STA" || lines[1].Line.Operand != "$00" {
		t.Fatalf("got %+v", lines[1].Line)
	}
	if lines[2].Line.Op != "BNE" || lines[2].Line.Operand != "$8000" {
		t.Fatalf("got %+v", lines[2].Line)
	}
}

func TestDisassembleBRKOptionSwitchesToDS(t *testing.T) {
	d := NewDisassembler(LabelNone)
	d.BRK = false
	lines, err := d.Disassemble([]byte{0x00}, 0x8000)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if lines[0].Line.Op != "DS" || lines[0].Line.Operand != "1,$00" {
		t.Fatalf("got %+v", lines[0].Line)
	}
}

func TestDisassembleLabelAllSynthesizesLabels(t *testing.T) {
	img := []byte{0x62, 0x02, 0x00, 0xd4, 0x06, 0xf4, 0x03, 0x80}
	d := NewDisassembler(LabelAll)
	d.Proc = NewProcessorState(true)
	d.Proc.XC(false) // advance to 65C816 for the PER/PEI/PEA trio
	lines, err := d.Disassemble(img, 0x8000)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Line.Op != "PER" || lines[0].Line.Operand != "_8005" {
		t.Fatalf("PER line: got %+v", lines[0].Line)
	}
	if lines[1].Line.Label != "_8003" || lines[1].Line.Op != "PEI" || lines[1].Line.Operand != "_0006" {
		t.Fatalf("PEI line: got %+v", lines[1].Line)
	}
	if lines[2].Line.Label != "_8005" || lines[2].Line.Op != "PEA" || lines[2].Line.Operand != "_8003" {
		t.Fatalf("PEA line: got %+v", lines[2].Line)
	}
}

func TestDisassembleUnknownOpcodeErrors(t *testing.T) {
	d := NewDisassembler(LabelNone)
	// 0xff is not assigned to any mnemonic in the scoped handbook.
	if _, err := d.Disassemble([]byte{0xff}, 0x8000); err == nil {
		t.Fatal("expected unknown-opcode error")
	}
}
