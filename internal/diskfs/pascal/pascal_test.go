package pascal

import (
	"testing"
	"time"

	"a2disk/internal/imagecodec"
)

func TestFormatProducesEmptyCatalog(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	entries, err := fs.CatalogToVec()
	if err != nil {
		t.Fatalf("CatalogToVec: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty catalog, got %d entries", len(entries))
	}
}

func TestDateRoundTrip(t *testing.T) {
	want := time.Date(1987, time.June, 15, 0, 0, 0, 0, time.UTC)
	got, ok := UnpackDate(PackDate(want))
	if !ok || !got.Equal(want) {
		t.Fatalf("got %v (ok=%v), want %v", got, ok, want)
	}
}

func TestTextConverterIndentRoundTrip(t *testing.T) {
	conv := textConverter{}
	native, ok := conv.FromUTF8("PROGRAM X;\n  WRITELN;\nEND.")
	if !ok {
		t.Fatalf("FromUTF8 failed")
	}
	got, ok := conv.ToUTF8(native)
	if !ok {
		t.Fatalf("ToUTF8 failed")
	}
	want := "PROGRAM X;\n  WRITELN;\nEND.\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPackTextHeaderIsOnePage(t *testing.T) {
	fimg := New()
	if err := PackText(fimg, "HI\n"); err != nil {
		t.Fatalf("PackText: %v", err)
	}
	if len(fimg.Sequence()) < textPageSize {
		t.Fatalf("packed text shorter than the mandatory header page")
	}
}

func TestWriteTextThenReadTextRoundTrips(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := fs.WriteText("GREETING.TEXT", "HELLO\nWORLD"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := fs.ReadText("GREETING.TEXT")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", got)
	}
	if err := fs.WriteText("GREETING.TEXT", "BYE"); err != nil {
		t.Fatalf("WriteText (overwrite): %v", err)
	}
	entries, err := fs.CatalogToVec()
	if err != nil {
		t.Fatalf("CatalogToVec: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one catalog entry after overwrite, got %d", len(entries))
	}
}

func TestPutRejectsDuplicateName(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	fimg := New()
	if err := PackText(fimg, "A"); err != nil {
		t.Fatalf("PackText: %v", err)
	}
	if err := fs.Put("DUP.TEXT", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Put("DUP.TEXT", fimg); err == nil {
		t.Fatalf("expected an error Putting a duplicate name")
	}
}

func TestPutAllocatesFromGapBetweenFiles(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	big := New()
	if err := PackText(big, ""); err != nil {
		t.Fatalf("PackText: %v", err)
	}
	if err := fs.Put("FIRST.TEXT", big); err != nil {
		t.Fatalf("Put FIRST: %v", err)
	}
	if err := fs.Delete("FIRST.TEXT"); err != nil {
		t.Fatalf("Delete FIRST: %v", err)
	}
	// the gap FIRST.TEXT occupied (blocks 6..dirBlocks+2+pages) must be
	// reusable by a later Put rather than always extending past the
	// volume end.
	second := New()
	if err := PackText(second, "X"); err != nil {
		t.Fatalf("PackText: %v", err)
	}
	if err := fs.Put("SECOND.TEXT", second); err != nil {
		t.Fatalf("Put SECOND: %v", err)
	}
	got, err := fs.ReadText("SECOND.TEXT")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "X\n" {
		t.Fatalf("got %q", got)
	}
}
