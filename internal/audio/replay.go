package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ReplayMicrophone answers each Record call with the next pre-recorded clip
// from a directory, in file name order. Once the clips run out it returns
// empty clips, which read as silence.
type ReplayMicrophone struct {
	mu    sync.Mutex
	paths []string
	next  int
}

var replayFormats = map[string]bool{"wav": true, "mp3": true, "ogg": true}

func NewReplayMicrophone(dir string) (*ReplayMicrophone, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !replayFormats[FormatOf(e.Name())] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	log.Debug("Loaded replay clips", "dir", dir, "count", len(paths))
	return &ReplayMicrophone{paths: paths}, nil
}

func (m *ReplayMicrophone) Record(ctx context.Context, _ time.Duration) (Clip, error) {
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next >= len(m.paths) {
		return Clip{}, nil
	}
	path := m.paths[m.next]
	m.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("read clip: %w", err)
	}
	return Clip{Data: data, Format: FormatOf(path)}, nil
}

// Remaining reports how many clips have not been played back yet.
func (m *ReplayMicrophone) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths) - m.next
}
