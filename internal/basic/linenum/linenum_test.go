package linenum

import "testing"

func pos(line int) Position { return Position{Line: line, Col: 0} }
func rng(line int) Range    { return Range{Start: pos(line), End: pos(line)} }

func TestRenumberSimpleSequence(t *testing.T) {
	req := Request{
		Primaries: map[int]Label{
			10: {Range: rng(0)},
			20: {Range: rng(1)},
			30: {Range: rng(2)},
		},
		References: map[int][]Label{
			30: {{Range: rng(0)}}, // line 10's GOTO 30
		},
		Beg: 0, End: 100,
		Start: 100, Step: 10,
		MinNum: 0, MaxNum: 63999,
		UpdateRefs: true,
	}
	edits, err := Renumber(req)
	if err != nil {
		t.Fatalf("Renumber: %v", err)
	}
	if len(edits) != 4 { // 3 primaries + 1 reference
		t.Fatalf("got %d edits, want 4", len(edits))
	}
}

func TestRenumberRejectsExternalChange(t *testing.T) {
	req := Request{
		Primaries: map[int]Label{10: {Range: rng(0)}, 20: {Range: rng(1)}},
		Beg:       0, End: 100,
		Start: 100, Step: 10,
		MinNum: 0, MaxNum: 63999,
		External: map[int]bool{10: true},
	}
	if _, err := Renumber(req); err == nil {
		t.Fatalf("expected an error renumbering a line in the external reference set")
	}
}

func TestRenumberRejectsOutOfRange(t *testing.T) {
	req := Request{
		Primaries: map[int]Label{10: {Range: rng(0)}},
		Beg:       0, End: 100,
		Start: 64000, Step: 10,
		MinNum: 0, MaxNum: 63999,
	}
	if _, err := Renumber(req); err == nil {
		t.Fatalf("expected an error when the new number exceeds MaxNum")
	}
}

func TestRenumberRejectsInterleaving(t *testing.T) {
	// Line 5000 sits on row 1, physically between lines 10 (row 0) and
	// 20 (row 2), but its number falls outside the selected range
	// [0,21), so it is not renumbered along with them.
	req := Request{
		Primaries: map[int]Label{
			10:   {Range: rng(0)},
			5000: {Range: rng(1)},
			20:   {Range: rng(2)},
		},
		Beg: 0, End: 21,
		Start: 100, Step: 10,
		MinNum: 0, MaxNum: 63999,
	}
	if _, err := Renumber(req); err == nil {
		t.Fatalf("expected an interleaving error when an unselected line sits between two selected rows")
	}
}

func TestRenumberAllowsContiguousSelection(t *testing.T) {
	req := Request{
		Primaries: map[int]Label{
			10: {Range: rng(0)},
			12: {Range: rng(1)},
			20: {Range: rng(2)},
		},
		Beg: 0, End: 21,
		Start: 100, Step: 10,
		MinNum: 0, MaxNum: 63999,
	}
	if _, err := Renumber(req); err != nil {
		t.Fatalf("did not expect an interleaving error when all rows are selected: %v", err)
	}
}

func TestRenumberAllowMoveSkipsInterleavingCheck(t *testing.T) {
	req := Request{
		Primaries: map[int]Label{
			10:   {Range: rng(0)},
			5000: {Range: rng(1)},
			20:   {Range: rng(2)},
		},
		Beg: 0, End: 21,
		Start: 100, Step: 10,
		MinNum: 0, MaxNum: 63999,
		AllowMove: true,
	}
	if _, err := Renumber(req); err != nil {
		t.Fatalf("AllowMove should bypass the interleaving check: %v", err)
	}
}
