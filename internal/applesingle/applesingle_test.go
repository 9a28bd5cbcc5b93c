package applesingle

import (
	"bytes"
	"testing"
	"time"
)

func TestTest(t *testing.T) {
	f := &File{HomeFS: "a2disk", DataFork: []byte("HELLO")}
	if !Test(f.ToBytes()) {
		t.Fatalf("expected Test to recognize a freshly serialized container")
	}
	if Test([]byte("not applesingle")) {
		t.Fatalf("expected Test to reject non-AppleSingle data")
	}
}

func TestRoundTripDataForkOnly(t *testing.T) {
	f := &File{HomeFS: "a2disk", DataFork: []byte("HELLO WORLD")}
	got, err := Parse(f.ToBytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got.DataFork, f.DataFork) {
		t.Fatalf("got data fork %q, want %q", got.DataFork, f.DataFork)
	}
	if got.HomeFS != f.HomeFS {
		t.Fatalf("got home fs %q, want %q", got.HomeFS, f.HomeFS)
	}
}

func TestRoundTripAllEntries(t *testing.T) {
	f := &File{
		HomeFS:   "a2disk",
		DataFork: []byte{1, 2, 3, 4},
		RealName: "HELLO.BAS",
		Dates: &Dates{
			Create: time.Date(2020, time.March, 1, 12, 0, 0, 0, time.UTC),
			Modify: time.Date(2021, time.April, 2, 13, 0, 0, 0, time.UTC),
		},
		ProdosInfo: &ProdosInfo{Access: 0xc3, FileType: 0xfc, AuxType: 0x0801},
	}
	got, err := Parse(f.ToBytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.RealName != f.RealName {
		t.Fatalf("got real name %q, want %q", got.RealName, f.RealName)
	}
	if !got.Dates.Create.Equal(f.Dates.Create) || !got.Dates.Modify.Equal(f.Dates.Modify) {
		t.Fatalf("got dates %+v, want %+v", got.Dates, f.Dates)
	}
	if !got.Dates.Backup.IsZero() || !got.Dates.Access.IsZero() {
		t.Fatalf("expected unset dates to decode as the zero time, got %+v", got.Dates)
	}
	if *got.ProdosInfo != *f.ProdosInfo {
		t.Fatalf("got prodos info %+v, want %+v", got.ProdosInfo, f.ProdosInfo)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	dat := make([]byte, 26)
	if _, err := Parse(dat); err == nil {
		t.Fatalf("expected an error parsing a non-AppleSingle header")
	}
}

func TestDOS3xInfoRoundTrip(t *testing.T) {
	f := &File{HomeFS: "a2disk", DataFork: []byte{0xaa}}
	f.AddDOS3xInfo(0x02|0x80, 0x6000) // locked Applesoft program
	typ, addr, ok := f.DOS3xInfo()
	if !ok {
		t.Fatalf("expected a DOS3x info to be recoverable")
	}
	if typ != (0x02 | 0x80) {
		t.Fatalf("got file type %#02x, want %#02x (locked bit preserved)", typ, 0x02|0x80)
	}
	if addr != 0x6000 {
		t.Fatalf("got load address %#04x, want %#04x", addr, 0x6000)
	}
}

func TestDOS3xInfoAbsentWithoutProdosInfo(t *testing.T) {
	f := &File{HomeFS: "a2disk", DataFork: []byte{0xaa}}
	if _, _, ok := f.DOS3xInfo(); ok {
		t.Fatalf("expected DOS3xInfo to report absent when no ProdosInfo was set")
	}
}
