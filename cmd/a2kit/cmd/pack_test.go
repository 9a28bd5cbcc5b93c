package cmd

import "testing"

func TestFSKindTagCoversEveryDiskKind(t *testing.T) {
	for _, kind := range []string{osDOS32, osDOS33, osProDOS, osPascal, osCPM, osFAT} {
		if _, ok := fsKindTag[kind]; !ok {
			t.Errorf("fsKindTag has no entry for %q", kind)
		}
	}
}
