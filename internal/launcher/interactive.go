package launcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scriptkit/host/internal/config"
	hosterrors "github.com/scriptkit/host/internal/errors"
)

// candidate is one way of executing a script: a resolved runtime binary
// plus the argument shape it needs.
type candidate struct {
	name string // for error reporting: "bun+sdk", "bun", "node"
	bin  string
	args []string
}

// ExecuteScript starts a script with the first runtime that works.
//
// The fallback order is fixed:
//  1. bun with the SDK bootstrap preloaded (the full prompt API)
//  2. bun without the preload (scripts that bring their own I/O)
//  3. node, for plain JavaScript only
//
// Each candidate that cannot be resolved or spawned is recorded; if every
// one fails the returned error carries spawn.exhausted and names what was
// tried.
func ExecuteScript(cfg *config.Config, stateDir, scriptPath string, scriptArgs []string, opts SpawnOptions) (*Process, error) {
	candidates, resolveErrs := buildCandidates(cfg, stateDir, scriptPath, scriptArgs)

	attempts := resolveErrs
	for _, c := range candidates {
		p, err := Spawn(c.bin, c.args, opts)
		if err == nil {
			return p, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", c.name, err))
	}

	tried := make([]string, 0, len(attempts))
	for _, err := range attempts {
		tried = append(tried, err.Error())
	}
	return nil, hosterrors.Wrap(hosterrors.CodeSpawnExhausted,
		fmt.Sprintf("no runtime could execute %s (tried: %s)", scriptPath, strings.Join(tried, "; ")),
		errors.Join(attempts...))
}

// buildCandidates resolves the runtime binaries and the SDK, returning the
// executable candidates in fallback order plus the resolution failures.
func buildCandidates(cfg *config.Config, stateDir, scriptPath string, scriptArgs []string) ([]candidate, []error) {
	var candidates []candidate
	var errs []error

	bunPath, bunErr := FindExecutable("bun", cfg.BunPath)
	if bunErr != nil {
		errs = append(errs, fmt.Errorf("bun: %w", bunErr))
	} else {
		sdkPath, sdkErr := FindSDKPath(cfg.SDKPath, stateDir)
		if sdkErr != nil {
			errs = append(errs, fmt.Errorf("bun+sdk: %w", sdkErr))
		} else {
			candidates = append(candidates, candidate{
				name: "bun+sdk",
				bin:  bunPath,
				args: append([]string{"run", "--preload", sdkPath, scriptPath}, scriptArgs...),
			})
		}
		candidates = append(candidates, candidate{
			name: "bun",
			bin:  bunPath,
			args: append([]string{"run", scriptPath}, scriptArgs...),
		})
	}

	// node cannot execute TypeScript; offer it only for plain JavaScript.
	switch strings.ToLower(filepath.Ext(scriptPath)) {
	case ".js", ".mjs", ".cjs":
		nodePath, nodeErr := FindExecutable("node", cfg.NodePath)
		if nodeErr != nil {
			errs = append(errs, fmt.Errorf("node: %w", nodeErr))
		} else {
			candidates = append(candidates, candidate{
				name: "node",
				bin:  nodePath,
				args: append([]string{scriptPath}, scriptArgs...),
			})
		}
	}

	return candidates, errs
}
