// Package launcher discovers script runtimes, resolves the SDK bootstrap,
// and spawns script processes in their own process groups with the stdio
// plumbing the session layer needs.
package launcher

import (
	"os"
	"os/exec"
	"path/filepath"

	hosterrors "github.com/scriptkit/host/internal/errors"
)

// wellKnownDirs returns the install locations searched before PATH.
// GUI hosts are often launched without the user's shell environment, so
// PATH alone misses the common bun/deno installers.
func wellKnownDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".bun", "bin"),
			filepath.Join(home, ".deno", "bin"),
			filepath.Join(home, ".local", "bin"),
		)
	}
	return append(dirs,
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
	)
}

// FindExecutable locates a runtime binary. A non-empty override is used
// as-is after checking it exists; otherwise the well-known install
// locations are searched first, then PATH.
func FindExecutable(name, override string) (string, error) {
	if override != "" {
		if isExecutable(override) {
			return override, nil
		}
		return "", hosterrors.New(hosterrors.CodeSpawnNotFound,
			"configured path for "+name+" does not exist or is not executable: "+override)
	}

	for _, dir := range wellKnownDirs() {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", hosterrors.ExecutableNotFound(name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
