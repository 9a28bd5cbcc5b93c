package packing

import (
	"testing"

	"a2disk/internal/diskfs/dos3x"
	"a2disk/internal/diskfs/prodos"
	"a2disk/internal/fileimage"
)

func TestClassifyStreamText(t *testing.T) {
	if got := ClassifyStream(fileimage.FSProDOS, []byte("HELLO")); got != Text {
		t.Fatalf("got %v, want Text", got)
	}
}

func TestClassifyStreamBinary(t *testing.T) {
	if got := ClassifyStream(fileimage.FSProDOS, []byte{0x01, 0x00, 0x02}); got != Binary {
		t.Fatalf("got %v, want Binary", got)
	}
}

func TestClassifyStreamDosTolerance(t *testing.T) {
	dat := make([]byte, 200)
	for i := range dat[:199] {
		dat[i] = 'A'
	}
	if got := ClassifyStream(fileimage.FSDos, dat); got != Text {
		t.Fatalf("got %v, want Text (under 1%% NUL tolerance)", got)
	}
}

func TestClassifyTaggedApplesoft(t *testing.T) {
	fimg := dos3x.New()
	dos3x.PackTokens(fimg, []byte{1, 2, 3}, false)
	if got := Classify(fimg); got != ApplesoftTokens {
		t.Fatalf("got %v, want ApplesoftTokens", got)
	}
}

func TestClassifyTaggedProdosBinary(t *testing.T) {
	fimg := prodos.New()
	prodos.PackBinary(fimg, 0x2000, []byte{1, 2, 3})
	if got := Classify(fimg); got != Binary {
		t.Fatalf("got %v, want Binary", got)
	}
}

func TestPackUnpackTextDispatch(t *testing.T) {
	fimg := prodos.New()
	if err := PackText(fimg, "HELLO\n"); err != nil {
		t.Fatalf("PackText: %v", err)
	}
	got, err := UnpackText(fimg)
	if err != nil {
		t.Fatalf("UnpackText: %v", err)
	}
	if got != "HELLO\n" {
		t.Fatalf("got %q", got)
	}
}

func TestPackBinaryDispatchDOS(t *testing.T) {
	fimg := dos3x.New()
	PackBinary(fimg, 0x300, []byte{0xaa, 0xbb})
	addr, payload, err := UnpackBinary(fimg)
	if err != nil {
		t.Fatalf("UnpackBinary: %v", err)
	}
	if addr != 0x300 || len(payload) != 2 {
		t.Fatalf("got addr=%d payload=%v", addr, payload)
	}
}

func TestPackTokensRejectsUnsupportedFilesystem(t *testing.T) {
	fimg := fileimage.New(fileimage.FSCPM, 1024, 0)
	if err := PackTokens(fimg, []byte{1}, 0, false); err == nil {
		t.Fatalf("expected an error packing tokens for a filesystem with no token convention")
	}
}
