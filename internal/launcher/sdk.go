package launcher

import (
	_ "embed"
	"os"
	"path/filepath"

	hosterrors "github.com/scriptkit/host/internal/errors"
)

//go:embed assets/bootstrap.ts
var embeddedBootstrap []byte

// sdkFileName is the bootstrap file name used everywhere the SDK lives.
const sdkFileName = "bootstrap.ts"

// FindSDKPath resolves the SDK bootstrap preloaded ahead of user scripts.
//
// Resolution order:
//  1. explicit override (must exist)
//  2. copy extracted from the embedded asset into <stateDir>/sdk
//  3. sdk/ directory next to the host executable
//  4. development tree relative to the working directory
//
// Extraction is write-once: an existing extracted copy is reused so users
// can patch it in place between host upgrades.
func FindSDKPath(override, stateDir string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", hosterrors.Wrap(hosterrors.CodeSpawnNotFound, "configured SDK path does not exist", err)
		}
		return override, nil
	}

	if path, err := extractSDK(stateDir); err == nil {
		return path, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "sdk", sdkFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	devPath := filepath.Join("sdk", sdkFileName)
	if _, err := os.Stat(devPath); err == nil {
		return devPath, nil
	}

	return "", hosterrors.New(hosterrors.CodeSpawnNotFound, "SDK bootstrap not found in any location")
}

// extractSDK writes the embedded bootstrap into the state directory,
// reusing an existing copy.
func extractSDK(stateDir string) (string, error) {
	dir := filepath.Join(stateDir, "sdk")
	path := filepath.Join(dir, sdkFileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, embeddedBootstrap, 0600); err != nil {
		return "", err
	}
	return path, nil
}
