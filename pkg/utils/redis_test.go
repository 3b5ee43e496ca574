package utils

import "testing"

func TestActiveSlotScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if activeSlotAcquireScript == nil || activeSlotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
