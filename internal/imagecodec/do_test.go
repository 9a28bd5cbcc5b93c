package imagecodec

import "testing"

func TestDOSectorRoundTrip(t *testing.T) {
	im := NewDO(35, 16)
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := im.WriteSector(17, 5, payload); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got, err := im.ReadSector(17, 5)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], payload[i])
		}
	}
}

func TestDOBlockRoundTrip(t *testing.T) {
	im := NewDO(35, 16)
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(255 - i%256)
	}
	if err := im.WriteBlock(42, payload); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := im.ReadBlock(42)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], payload[i])
		}
	}
}

func TestDOFromBytesRejectsBadSize(t *testing.T) {
	if _, ok := doFromBytes(make([]byte, 100)); ok {
		t.Errorf("expected doFromBytes to reject a non-block-aligned size")
	}
}

func TestPOBlockRoundTrip(t *testing.T) {
	im := NewPO(280)
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	if err := im.WriteBlock(10, payload); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := im.ReadBlock(10)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], payload[i])
		}
	}
}
