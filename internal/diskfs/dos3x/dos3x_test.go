package dos3x

import (
	"testing"

	"a2disk/internal/fileimage"
	"a2disk/internal/imagecodec"
)

func TestFormatProducesEmptyCatalog(t *testing.T) {
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
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

func TestTextRoundTripThroughConverter(t *testing.T) {
	conv := textConverter{}
	native, ok := conv.FromUTF8("HELLO\nWORLD")
	if !ok {
		t.Fatalf("FromUTF8 failed")
	}
	got, ok := conv.ToUTF8(native)
	if !ok {
		t.Fatalf("ToUTF8 failed")
	}
	want := "HELLO\nWORLD\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPackUnpackBinary(t *testing.T) {
	fimg := New()
	payload := []byte{1, 2, 3, 4, 5}
	PackBinary(fimg, 0x2000, payload)
	addr, got, err := UnpackBinary(fimg)
	if err != nil {
		t.Fatalf("UnpackBinary: %v", err)
	}
	if addr != 0x2000 {
		t.Fatalf("load address = %#x, want 0x2000", addr)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestPackUnpackTokens(t *testing.T) {
	fimg := New()
	tokens := []byte{0xba, 0x01, 0x00, 0x28}
	PackTokens(fimg, tokens, false)
	got, err := UnpackTokens(fimg)
	if err != nil {
		t.Fatalf("UnpackTokens: %v", err)
	}
	if len(got) != len(tokens) {
		t.Fatalf("length = %d, want %d", len(got), len(tokens))
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	fimg := New()
	PackBinary(fimg, 0x2000, []byte{10, 20, 30, 40})
	if err := fs.Put("HELLO", fimg); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := fs.CatalogToVec()
	if err != nil {
		t.Fatalf("CatalogToVec: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "HELLO" || entries[0].Type != "bin" {
		t.Fatalf("got %+v", entries)
	}
	got, err := fs.Get("HELLO")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	addr, payload, err := UnpackBinary(got)
	if err != nil {
		t.Fatalf("UnpackBinary: %v", err)
	}
	if addr != 0x2000 || len(payload) != 4 || payload[0] != 10 {
		t.Fatalf("got addr=%#x payload=%v", addr, payload)
	}
}

func TestPutRejectsDuplicateName(t *testing.T) {
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
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
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
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
	// overwriting must replace, not duplicate, the catalog entry.
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
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
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

func TestPutSpansMultipleTSListSectors(t *testing.T) {
	img := imagecodec.NewDO(35, 16)
	fs, err := Format(img, 35, 16, 254)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	payload := make([]byte, 256*150) // forces >122 data sectors, a second T/S list sector
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
	_, gotPayload, err := UnpackBinary(got)
	if err != nil {
		t.Fatalf("UnpackBinary: %v", err)
	}
	if len(gotPayload) != len(payload) || gotPayload[100] != payload[100] {
		t.Fatalf("payload mismatch: got len %d", len(gotPayload))
	}
}

func TestEntryTypeMnemonics(t *testing.T) {
	cases := map[FileType]string{
		TypeText: "txt", TypeInteger: "itok", TypeApplesoft: "atok", TypeBinary: "bin",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", typ, got, want)
		}
	}
}
