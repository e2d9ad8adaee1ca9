package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	recordingsDir = "recordings"

	// RecordingExt is the file extension of raw stream captures.
	RecordingExt = ".sse"

	// recordingTimeLayout sorts lexically in chronological order.
	recordingTimeLayout = "20060102T150405.000"
)

// ErrNoRecordings is returned by LatestRecording when nothing has been captured yet.
var ErrNoRecordings = errors.New("no recordings found")

// Recording describes one captured stream on disk.
type Recording struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// NewRecordingPath returns a fresh path under <target>/recordings/ for a capture
// tagged with sessionID, creating the folder if needed.
func (m *Manager) NewRecordingPath(overrideDir, sessionID string, now time.Time) (string, error) {
	dir, err := m.recordingsTarget(overrideDir)
	if err != nil {
		return "", err
	}

	name := now.UTC().Format(recordingTimeLayout)
	if sessionID != "" {
		name += "-" + sessionID
	}

	return filepath.Join(dir, name+RecordingExt), nil
}

// ListRecordings returns every capture in <target>/recordings/, newest first.
func (m *Manager) ListRecordings(overrideDir string) ([]Recording, error) {
	dir, err := m.recordingsTarget(overrideDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading recordings: %w", err)
	}

	recs := make([]Recording, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordingExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("reading recording %s: %w", e.Name(), err)
		}
		recs = append(recs, Recording{
			Path:    filepath.Join(dir, e.Name()),
			Name:    strings.TrimSuffix(e.Name(), RecordingExt),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	// Names start with a sortable timestamp.
	slices.SortFunc(recs, func(a, b Recording) int {
		return strings.Compare(b.Name, a.Name)
	})

	return recs, nil
}

// LatestRecording returns the most recent capture or ErrNoRecordings.
func (m *Manager) LatestRecording(overrideDir string) (Recording, error) {
	recs, err := m.ListRecordings(overrideDir)
	if err != nil {
		return Recording{}, err
	}
	if len(recs) == 0 {
		return Recording{}, ErrNoRecordings
	}
	return recs[0], nil
}

func (m *Manager) recordingsTarget(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(target, recordingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recordings directory %s: %w", dir, err)
	}
	return dir, nil
}
