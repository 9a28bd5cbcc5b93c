package cpm

import (
	"testing"
	"time"

	"a2disk/internal/dpb"
	"a2disk/internal/imagecodec"
)

func TestOpenRejectsBadDPB(t *testing.T) {
	img := imagecodec.NewPO(280)
	bad := dpb.DPB{Bsh: 2}
	if _, err := Open(img, bad); err == nil {
		t.Fatalf("expected Open to reject an invalid DPB")
	}
}

func TestOpenEmptyCatalog(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Open(img, dpb.A2525)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entries, err := fs.CatalogToVec()
	if err != nil {
		t.Fatalf("CatalogToVec: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty catalog on a blank image, got %d entries", len(entries))
	}
}

func TestDateRoundTrip(t *testing.T) {
	want := time.Date(1985, time.March, 12, 14, 37, 0, 0, time.UTC)
	got, ok := UnpackDate(PackDate(want))
	if !ok || !got.Equal(want) {
		t.Fatalf("got %v (ok=%v), want %v", got, ok, want)
	}
}

func TestTextConverterRoundTrip(t *testing.T) {
	conv := textConverter{}
	native, ok := conv.FromUTF8("HELLO\nWORLD\n")
	if !ok {
		t.Fatalf("FromUTF8 failed")
	}
	if len(native)%recordSize != 0 {
		t.Fatalf("native text not padded to a record boundary: %d bytes", len(native))
	}
	got, ok := conv.ToUTF8(native)
	if !ok {
		t.Fatalf("ToUTF8 failed")
	}
	if got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitUserFilename(t *testing.T) {
	user, rest := splitUserFilename("2:FOO.TXT")
	if user != 2 || rest != "FOO.TXT" {
		t.Fatalf("got user=%d rest=%q", user, rest)
	}
	user, rest = splitUserFilename("FOO.TXT")
	if user != 0 || rest != "FOO.TXT" {
		t.Fatalf("got user=%d rest=%q", user, rest)
	}
}

func TestIsNameValid(t *testing.T) {
	if !isNameValid("FOO", "TXT") {
		t.Fatalf("expected FOO.TXT to be valid")
	}
	if isNameValid("TOOLONGNAME", "TXT") {
		t.Fatalf("expected an 11-char name to be rejected")
	}
	if isNameValid("FOO BAR", "TXT") {
		t.Fatalf("expected a space in the name to be rejected")
	}
}

func TestFormatProducesEmptyCatalog(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, dpb.A2525)
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

func TestWriteTextThenReadTextRoundTrips(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, dpb.A2525)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := fs.WriteText("GREET.TXT", "HELLO\nWORLD"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := fs.ReadText("GREET.TXT")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", got)
	}
	if err := fs.WriteText("GREET.TXT", "BYE"); err != nil {
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
	fs, err := Format(img, dpb.A2525)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	fimg := New(fs.dpb.BlockSize())
	if err := fs.Put("DUP.TXT", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Put("DUP.TXT", fimg); err == nil {
		t.Fatalf("expected an error Putting a duplicate name")
	}
}

func TestPutSpansMultipleExtents(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, dpb.A2525)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	blockSize := fs.dpb.BlockSize()
	pointersPerExtent := 16 / fs.ptrSize()
	payload := make([]byte, blockSize*pointersPerExtent*2+blockSize) // forces 3 extents
	for i := range payload {
		payload[i] = byte(i)
	}
	fimg := New(blockSize)
	fimg.Desequence(payload)
	if err := fs.Put("BIG.BIN", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := fs.Get("BIG.BIN")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	gotData := got.Sequence()
	if len(gotData) < len(payload) {
		t.Fatalf("payload truncated: got %d bytes, want at least %d", len(gotData), len(payload))
	}
	for i := range payload {
		if gotData[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, gotData[i], payload[i])
		}
	}
}

func TestGetNotFound(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Open(img, dpb.A2525)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := fs.Get("NOSUCH.TXT"); err == nil {
		t.Fatalf("expected an error reading a nonexistent file")
	}
}
