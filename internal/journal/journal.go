// Package journal implements the append-only per-exchange CSV logs and the
// tailer that replays them into the hub.
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/liqwatch/liqhub/internal/domain"
)

// Journal is an append-only CSV file of liquidation events. Appends are
// serialized by a mutex and flushed before Append returns; there are no
// random writes and no deletions.
type Journal struct {
	path string

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// Open opens (or creates) the journal at path. A freshly created file gets
// the legacy header line.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}

	j := &Journal{path: path, f: f, w: csv.NewWriter(f)}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal %s: %w", path, err)
	}
	if st.Size() == 0 {
		if err := j.writeRow(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing journal header: %w", err)
		}
	}

	return j, nil
}

// Append writes one event as a single row and flushes it to the OS.
func (j *Journal) Append(e domain.Event) error {
	return j.writeRow(EncodeRow(e))
}

func (j *Journal) writeRow(row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.w.Write(row); err != nil {
		return fmt.Errorf("appending to %s: %w", j.path, err)
	}
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", j.path, err)
	}
	return nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.w.Flush()
	return j.f.Close()
}
