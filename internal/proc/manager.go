package proc

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	hosterrors "github.com/scriptkit/host/internal/errors"
)

// Bookkeeping files inside the state directory.
const (
	// SnapshotFileName holds the JSON list of live script PIDs. It is
	// rewritten on every registry change so a crashed host leaves behind
	// an accurate record for orphan cleanup on the next start.
	SnapshotFileName = "active-bun-pids.json"

	// PIDFileName holds the host's own PID while it runs.
	PIDFileName = "script-kit.pid"
)

// ProcessInfo is one entry in the PID snapshot.
type ProcessInfo struct {
	PID        int    `json:"pid"`
	ScriptPath string `json:"script_path"`
	StartedAt  string `json:"started_at"` // RFC3339
}

type entry struct {
	info   ProcessInfo
	handle *Handle
}

// Manager tracks every live script process and mirrors the registry to the
// on-disk snapshot. All methods are safe for concurrent use.
type Manager struct {
	stateDir string

	mu       sync.RWMutex
	procs    map[int]entry
	onChange func([]ProcessInfo)
}

// NewManager creates a manager persisting its snapshot under stateDir,
// creating the directory if needed.
func NewManager(stateDir string) (*Manager, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to create state directory", err)
	}
	return &Manager{
		stateDir: stateDir,
		procs:    make(map[int]entry),
	}, nil
}

// StateDir returns the directory holding the bookkeeping files.
func (m *Manager) StateDir() string { return m.stateDir }

// SetOnChange installs a callback invoked with the full registry contents
// after every change. Used to drive the status feed. The callback runs on
// the mutating goroutine and must not call back into the manager.
func (m *Manager) SetOnChange(fn func([]ProcessInfo)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Register adds a spawned process to the registry and persists the snapshot.
func (m *Manager) Register(h *Handle, scriptPath string) error {
	m.mu.Lock()
	m.procs[h.PID()] = entry{
		info: ProcessInfo{
			PID:        h.PID(),
			ScriptPath: scriptPath,
			StartedAt:  time.Now().UTC().Format(time.RFC3339),
		},
		handle: h,
	}
	err := m.writeSnapshotLocked()
	infos := m.listLocked()
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(infos)
	}
	return err
}

// Unregister removes a process from the registry and persists the snapshot.
// Removing an unknown pid is a no-op.
func (m *Manager) Unregister(pid int) error {
	m.mu.Lock()
	if _, ok := m.procs[pid]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.procs, pid)
	err := m.writeSnapshotLocked()
	infos := m.listLocked()
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(infos)
	}
	return err
}

// Get returns the handle for a registered pid.
func (m *Manager) Get(pid int) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.procs[pid]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// List returns the registered processes ordered by pid.
func (m *Manager) List() []ProcessInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked()
}

func (m *Manager) listLocked() []ProcessInfo {
	infos := make([]ProcessInfo, 0, len(m.procs))
	for _, e := range m.procs {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].PID < infos[j].PID })
	return infos
}

// Kill terminates one registered process group and removes it from the
// registry. Unknown pids are a no-op.
func (m *Manager) Kill(pid int) error {
	h, ok := m.Get(pid)
	if !ok {
		return nil
	}
	if err := h.Kill(); err != nil {
		return err
	}
	return m.Unregister(pid)
}

// KillAll terminates every registered process group concurrently and clears
// the registry. The first kill error (if any) is returned after all handles
// have been attempted.
func (m *Manager) KillAll() error {
	m.mu.RLock()
	handles := make([]*Handle, 0, len(m.procs))
	for _, e := range m.procs {
		handles = append(handles, e.handle)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(handles))
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			errs[i] = h.Kill()
		}(i, h)
	}
	wg.Wait()

	m.mu.Lock()
	m.procs = make(map[int]entry)
	snapErr := m.writeSnapshotLocked()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(nil)
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return snapErr
}

// SnapshotPath returns the location of the PID snapshot file.
func (m *Manager) SnapshotPath() string {
	return filepath.Join(m.stateDir, SnapshotFileName)
}

// writeSnapshotLocked persists the registry. Written to a temp file then
// renamed so a reader never sees a torn snapshot. Caller holds m.mu.
func (m *Manager) writeSnapshotLocked() error {
	infos := m.listLocked()
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to encode PID snapshot", err)
	}
	data = append(data, '\n')

	path := m.SnapshotPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to write PID snapshot", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to replace PID snapshot", err)
	}
	return nil
}

// CleanupOrphans reads the snapshot left by a previous host run and kills
// any listed process that is still alive but no longer registered. The
// stale snapshot is then removed (or rewritten when live registrations
// exist). Returns how many groups were killed.
//
// Run this before spawning anything so a crash-restart cycle cannot
// accumulate orphaned interpreters.
func (m *Manager) CleanupOrphans() (int, error) {
	path := m.SnapshotPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to read PID snapshot", err)
	}

	var infos []ProcessInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		// A corrupt snapshot cannot be acted on; drop it and move on.
		log.Printf("proc: discarding corrupt PID snapshot %s: %v", path, err)
		if rmErr := os.Remove(path); rmErr != nil {
			return 0, hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to remove corrupt PID snapshot", rmErr)
		}
		return 0, nil
	}

	killed := 0
	for _, info := range infos {
		if info.PID <= 0 {
			continue
		}
		m.mu.RLock()
		_, registered := m.procs[info.PID]
		m.mu.RUnlock()
		if registered {
			continue
		}
		if err := unix.Kill(info.PID, 0); err != nil && err != unix.EPERM {
			continue // already gone
		}
		// Orphans get no grace period: their host is dead, nothing is
		// reading their stdio and nothing will reap a slow exit.
		_ = unix.Kill(-info.PID, unix.SIGKILL)
		_ = unix.Kill(info.PID, unix.SIGKILL)
		killed++
	}

	m.mu.Lock()
	var snapErr error
	if len(m.procs) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			snapErr = hosterrors.Wrap(hosterrors.CodeProcessSnapshotFailed, "failed to remove stale PID snapshot", err)
		}
	} else {
		snapErr = m.writeSnapshotLocked()
	}
	m.mu.Unlock()
	if snapErr != nil {
		return killed, snapErr
	}

	if killed > 0 {
		log.Printf("proc: cleaned up %d orphaned script process(es)", killed)
	}
	return killed, nil
}

// PIDFilePath returns the location of the host PID file.
func (m *Manager) PIDFilePath() string {
	return filepath.Join(m.stateDir, PIDFileName)
}

// WritePIDFile records the host's own PID in the state directory.
func (m *Manager) WritePIDFile() error {
	content := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(m.PIDFilePath(), []byte(content), 0600); err != nil {
		return hosterrors.Wrap(hosterrors.CodeProcessPIDFileFailed, "failed to write host PID file", err)
	}
	return nil
}

// ReadPIDFile returns the PID recorded in the host PID file.
func (m *Manager) ReadPIDFile() (int, error) {
	data, err := os.ReadFile(m.PIDFilePath())
	if err != nil {
		return 0, hosterrors.Wrap(hosterrors.CodeProcessPIDFileFailed, "failed to read host PID file", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, hosterrors.Wrap(hosterrors.CodeProcessPIDFileFailed, "host PID file is malformed", err)
	}
	return pid, nil
}

// RemovePIDFile deletes the host PID file. Missing file is not an error.
func (m *Manager) RemovePIDFile() error {
	if err := os.Remove(m.PIDFilePath()); err != nil && !os.IsNotExist(err) {
		return hosterrors.Wrap(hosterrors.CodeProcessPIDFileFailed, "failed to remove host PID file", err)
	}
	return nil
}
