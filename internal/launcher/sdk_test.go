package launcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestFindSDKPath_ExtractsEmbedded verifies the embedded bootstrap is
// written into the state dir and that an existing copy is left alone.
func TestFindSDKPath_ExtractsEmbedded(t *testing.T) {
	stateDir := t.TempDir()

	path, err := FindSDKPath("", stateDir)
	if err != nil {
		t.Fatalf("FindSDKPath() error: %v", err)
	}
	if !strings.HasPrefix(path, stateDir) {
		t.Errorf("FindSDKPath() = %q, want a path under %q", path, stateDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading extracted SDK: %v", err)
	}
	if !bytes.Equal(data, embeddedBootstrap) {
		t.Error("extracted SDK should match the embedded asset")
	}

	// User edits survive subsequent resolutions.
	patched := []byte("// locally patched\n")
	if err := os.WriteFile(path, patched, 0600); err != nil {
		t.Fatalf("patching SDK: %v", err)
	}
	again, err := FindSDKPath("", stateDir)
	if err != nil {
		t.Fatalf("FindSDKPath() second call error: %v", err)
	}
	if again != path {
		t.Errorf("FindSDKPath() second call = %q, want %q", again, path)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("rereading SDK: %v", err)
	}
	if !bytes.Equal(data, patched) {
		t.Error("extraction should not overwrite an existing SDK copy")
	}
}

// TestFindSDKPath_Override verifies explicit override handling.
func TestFindSDKPath_Override(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "bootstrap.ts")
	if err := os.WriteFile(custom, []byte("// custom"), 0600); err != nil {
		t.Fatalf("writing custom SDK: %v", err)
	}

	got, err := FindSDKPath(custom, t.TempDir())
	if err != nil {
		t.Fatalf("FindSDKPath() error: %v", err)
	}
	if got != custom {
		t.Errorf("FindSDKPath() = %q, want %q", got, custom)
	}

	if _, err := FindSDKPath(filepath.Join(t.TempDir(), "nope.ts"), t.TempDir()); err == nil {
		t.Error("FindSDKPath() with a missing override should error")
	}
}

// TestEmbeddedBootstrap_SpeaksTheProtocol sanity-checks the embedded asset
// so a bad build cannot silently ship an empty SDK.
func TestEmbeddedBootstrap_SpeaksTheProtocol(t *testing.T) {
	if len(embeddedBootstrap) == 0 {
		t.Fatal("embedded bootstrap is empty")
	}
	src := string(embeddedBootstrap)
	for _, needle := range []string{`"submit"`, "process.stdout.write", "JSON.stringify"} {
		if !strings.Contains(src, needle) {
			t.Errorf("embedded bootstrap should contain %s", needle)
		}
	}
}
