package prodos

import (
	"testing"
	"time"

	"a2disk/internal/fileimage"
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

func TestFormatRejectsBadVolumeName(t *testing.T) {
	img := imagecodec.NewPO(280)
	if _, err := Format(img, 280, "1BAD"); err == nil {
		t.Fatalf("expected Format to reject a name starting with a digit")
	}
}

func TestTimePackRoundTrip(t *testing.T) {
	want := time.Date(2026, time.July, 31, 14, 22, 0, 0, time.UTC)
	raw := PackTime(want)
	got, ok := UnpackTime(raw)
	if !ok {
		t.Fatalf("UnpackTime failed")
	}
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTimeUnpackY2KWindow(t *testing.T) {
	raw := PackTime(time.Date(1985, time.March, 1, 0, 0, 0, 0, time.UTC))
	got, ok := UnpackTime(raw)
	if !ok || got.Year() != 1985 {
		t.Fatalf("expected year 1985, got %v (ok=%v)", got, ok)
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	fimg := New()
	PackBinary(fimg, 0x2000, []byte{10, 20, 30, 40})
	if err := fs.Put("HELLO", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := fs.Get("HELLO")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if payload := UnpackBinary(got); len(payload) != 4 || payload[0] != 10 {
		t.Fatalf("got %v", payload)
	}
}

func TestPutRejectsDuplicateName(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	fimg := New()
	PackBinary(fimg, 0x2000, []byte{1})
	if err := fs.Put("DUP", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Put("DUP", fimg); err == nil {
		t.Fatalf("expected an error Putting a duplicate name")
	}
}

func TestWriteTextThenReadTextRoundTrips(t *testing.T) {
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := fs.WriteText("GREETING", "HELLO\nWORLD"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := fs.ReadText("GREETING")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", got)
	}
	if err := fs.WriteText("GREETING", "BYE"); err != nil {
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
	img := imagecodec.NewPO(280)
	fs, err := Format(img, 280, "BLANK")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	recs := &fileimage.Records{RecordLen: 16, Map: map[int]string{0: "ONE", 3: "TWO"}}
	if err := fs.WriteRecords("DATA", recs); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	got, err := fs.ReadRecords("DATA", 16)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if got.Map[0] != "ONE" || got.Map[3] != "TWO" {
		t.Fatalf("got %+v", got.Map)
	}
}

func TestPutSpansSaplingAndTree(t *testing.T) {
	img := imagecodec.NewPO(4096)
	fs, err := Format(img, 4096, "BIGVOL")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	payload := make([]byte, blockSize*300) // >256 data blocks forces a tree (master index of index blocks)
	for i := range payload {
		payload[i] = byte(i)
	}
	fimg := New()
	PackBinary(fimg, 0x4000, payload)
	if err := fs.Put("BIG", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := fs.Get("BIG")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	gotPayload := UnpackBinary(got)
	if len(gotPayload) != len(payload) || gotPayload[1000] != payload[1000] {
		t.Fatalf("payload mismatch: got len %d", len(gotPayload))
	}
}

func TestTextConverterRoundTrip(t *testing.T) {
	conv := textConverter{}
	native, ok := conv.FromUTF8("HELLO\nWORLD")
	if !ok {
		t.Fatalf("FromUTF8 failed")
	}
	got, ok := conv.ToUTF8(native)
	if !ok {
		t.Fatalf("ToUTF8 failed")
	}
	if got != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", got)
	}
}
