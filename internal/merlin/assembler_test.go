package merlin

import (
	"bytes"
	"testing"
)

func asmLines(rows ...Line) []Line { return rows }

func TestAssembleSimpleProgram(t *testing.T) {
	lines := asmLines(
		Line{Op: "ORG", Operand: "$8000"},
		Line{Label: "START", Op: "LDA", Operand: "#$01"},
		Line{Op: "STA", Operand: "$00"},
		Line{Op: "BNE", Operand: "START"},
	)
	a := NewAssembler()
	out, err := a.Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("got %d lines, want 4", len(out))
	}
	if !bytes.Equal(out[1].Bytes, []byte{0xa9, 0x01}) {
		t.Fatalf("LDA imm: got % x", out[1].Bytes)
	}
	if out[1].Addr != 0x8000 {
		t.Fatalf("START addr: got %#x, want 0x8000", out[1].Addr)
	}
	if !bytes.Equal(out[2].Bytes, []byte{0x85, 0x00}) {
		t.Fatalf("STA zp: got % x", out[2].Bytes)
	}
	if !bytes.Equal(out[3].Bytes, []byte{0xd0, 0xfa}) {
		t.Fatalf("BNE: got % x", out[3].Bytes)
	}
}

func TestAssembleEquBindsLabelToValue(t *testing.T) {
	lines := asmLines(
		Line{Label: "FOO", Op: "EQU", Operand: "$10"},
		Line{Op: "LDA", Operand: "FOO"},
	)
	a := NewAssembler()
	out, err := a.Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !bytes.Equal(out[1].Bytes, []byte{0xa5, 0x10}) {
		t.Fatalf("got % x", out[1].Bytes)
	}
}

func TestAssembleForwardReferenceDefaultsAbsolute(t *testing.T) {
	lines := asmLines(
		Line{Op: "JMP", Operand: "LATER"},
		Line{Label: "LATER", Op: "NOP"},
	)
	a := NewAssembler()
	out, err := a.Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(out[0].Bytes) != 3 {
		t.Fatalf("JMP should be 3 bytes (absolute), got % x", out[0].Bytes)
	}
	if out[0].Bytes[0] != 0x4c {
		t.Fatalf("got opcode %#x, want JMP absolute 0x4c", out[0].Bytes[0])
	}
}

func TestAssembleRejectsIllegalOnProcessor(t *testing.T) {
	lines := asmLines(Line{Op: "PEA", Operand: "$1234"})
	a := NewAssembler()
	if _, err := a.Assemble(lines); err == nil {
		t.Fatal("expected error: PEA requires 65816")
	}
}

func TestAssembleBranchOutOfRangeErrors(t *testing.T) {
	lines := []Line{{Op: "ORG", Operand: "$8000"}, {Op: "BNE", Operand: "$9000"}}
	a := NewAssembler()
	if _, err := a.Assemble(lines); err == nil {
		t.Fatal("expected out-of-range branch error")
	}
}
