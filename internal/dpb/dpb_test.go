package dpb

import "testing"

func TestStandardCatalogVerifies(t *testing.T) {
	for i, d := range StandardDPBs {
		if err := d.Verify(); err != nil {
			t.Errorf("catalog entry %d failed to verify: %v", i, err)
		}
	}
}

func TestVerifyRejectsBadBlm(t *testing.T) {
	d := A2525
	d.Blm = d.Blm + 1
	if err := d.Verify(); err == nil {
		t.Errorf("expected Verify to reject blm != 2^bsh-1")
	}
}

func TestVerifyRejectsOversizeDsmFor1KBlocks(t *testing.T) {
	d := A2525
	d.Dsm = 0x100
	if err := d.Verify(); err == nil {
		t.Errorf("expected Verify to reject dsm>0xff when bsh==3")
	}
}

func TestVerifyRejectsBadExm(t *testing.T) {
	d := CPM1
	d.Exm = 2
	if err := d.Verify(); err == nil {
		t.Errorf("expected Verify to reject exm not in {0,1,3,7,15}")
	}
}

func TestVerifyRejectsDirectoryExceedingUserBlocks(t *testing.T) {
	d := A2525
	d.Dsm = 0 // only 1 user block, but directory needs several
	if err := d.Verify(); err == nil {
		t.Errorf("expected Verify to reject directory blocks exceeding user blocks")
	}
}

func TestBlockSizeAndPtrSize(t *testing.T) {
	if A2525.BlockSize() != 1024 {
		t.Errorf("A2525 block size = %d, want 1024", A2525.BlockSize())
	}
	if A2525.PtrSize() != 1 {
		t.Errorf("A2525 ptr size = %d, want 1 (dsm<256)", A2525.PtrSize())
	}
	if TRS80M2.PtrSize() != 2 {
		t.Errorf("TRS80M2 ptr size = %d, want 2 (dsm>=256)", TRS80M2.PtrSize())
	}
}
