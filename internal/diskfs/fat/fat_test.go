package fat

import (
	"testing"
	"time"

	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

func formatTestImage(t *testing.T) *FS {
	t.Helper()
	img := imagecodec.NewPO(720) // 360KB, enough for a small FAT12 layout
	fs, err := Format(img, 720, 1, 2, 112, 2, 2, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return fs
}

func TestFormatProducesEmptyCatalog(t *testing.T) {
	fs := formatTestImage(t)
	if fs.bpb.Bits != 12 {
		t.Fatalf("expected a FAT12 volume for this cluster count, got FAT%d", fs.bpb.Bits)
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
	want := time.Date(1998, time.November, 3, 0, 0, 0, 0, time.UTC)
	got, ok := UnpackDate(PackDate(want))
	if !ok || !got.Equal(want) {
		t.Fatalf("got %v (ok=%v), want %v", got, ok, want)
	}
}

func TestDatePegsOutOfRangeYears(t *testing.T) {
	early := time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC)
	got, ok := UnpackDate(PackDate(early))
	if !ok || got.Year() != 1980 {
		t.Fatalf("expected pre-1980 dates to peg to 1980, got %v", got)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	hour, minute, second, ok := UnpackTime(PackTime(time.Date(2000, 1, 1, 13, 45, 30, 0, time.UTC)))
	if !ok || hour != 13 || minute != 45 || second != 30 {
		t.Fatalf("got %02d:%02d:%02d (ok=%v)", hour, minute, second, ok)
	}
}

func TestTextConverterRoundTrip(t *testing.T) {
	conv := textConverter{}
	native, ok := conv.FromUTF8("HELLO\nWORLD\n")
	if !ok {
		t.Fatalf("FromUTF8 failed")
	}
	got, ok := conv.ToUTF8(native)
	if !ok || got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q (ok=%v)", got, ok)
	}
}

func TestSplitNameRejectsInvalidChars(t *testing.T) {
	if _, _, err := SplitName("BAD?NAME.TXT"); err == nil {
		t.Fatalf("expected an invalid-character name to be rejected")
	}
	name, ext, err := SplitName("/SUB/FOO.TXT")
	if err != nil || name != "FOO" || ext != "TXT" {
		t.Fatalf("got name=%q ext=%q err=%v", name, ext, err)
	}
}

func TestGetNotFound(t *testing.T) {
	fs := formatTestImage(t)
	if _, err := fs.Get("NOSUCH.TXT"); err == nil {
		t.Fatalf("expected an error reading a nonexistent file")
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	fs := formatTestImage(t)
	payload := []byte("HELLO FAT WORLD")
	fimg := fs.NewFimg(fs.clusterSize())
	fimg.Desequence(payload)
	if err := fs.Put("GREET.TXT", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := fs.Get("GREET.TXT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Sequence()[:len(payload)]) != string(payload) {
		t.Fatalf("got %q, want %q", got.Sequence()[:len(payload)], payload)
	}
}

func TestPutRejectsDuplicateName(t *testing.T) {
	fs := formatTestImage(t)
	fimg := fs.NewFimg(fs.clusterSize())
	fimg.Desequence([]byte("X"))
	if err := fs.Put("DUP.TXT", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Put("DUP.TXT", fimg); err == nil {
		t.Fatalf("expected an error Putting a duplicate name")
	}
}

func TestWriteTextThenReadTextRoundTrips(t *testing.T) {
	fs := formatTestImage(t)
	if err := fs.WriteText("GREET.TXT", "HELLO\nWORLD"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := fs.ReadText("GREET.TXT")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "HELLO\nWORLD" {
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

func TestWriteRecordsThenReadRecordsRoundTrips(t *testing.T) {
	fs := formatTestImage(t)
	recs := &fileimage.Records{RecordLen: 16, Map: map[int]string{0: "ONE", 3: "TWO"}}
	if err := fs.WriteRecords("DATA.DAT", recs); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	got, err := fs.ReadRecords("DATA.DAT", 16)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if got.Map[0] != "ONE" || got.Map[3] != "TWO" {
		t.Fatalf("got %+v", got.Map)
	}
}

func TestPutSpansMultipleClusters(t *testing.T) {
	fs := formatTestImage(t)
	payload := make([]byte, fs.clusterSize()*5+37)
	for i := range payload {
		payload[i] = byte(i)
	}
	fimg := fs.NewFimg(fs.clusterSize())
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
