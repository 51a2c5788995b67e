package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
)

// DefaultPollInterval is how often the tailer re-reads its journal.
const DefaultPollInterval = 500 * time.Millisecond

// Sink receives events replayed or tailed from a journal.
type Sink interface {
	Ingest(e domain.Event)
}

// Tailer replays a journal from the top and then follows appended rows. It
// remembers the file identity (inode+device via os.SameFile) and the line
// cursor; a changed identity is treated as rotation and triggers a full
// re-read.
type Tailer struct {
	path     string
	interval time.Duration
	sink     Sink
	logger   *zap.Logger

	fileInfo os.FileInfo
	cursor   int
}

// NewTailer creates a tailer for the journal at path feeding sink.
func NewTailer(path string, sink Sink, logger *zap.Logger) *Tailer {
	return &Tailer{
		path:     path,
		interval: DefaultPollInterval,
		sink:     sink,
		logger:   logger.With(zap.String("journal", path)),
	}
}

// Run polls until the context is canceled. An absent file is not an error;
// the tailer catches up when it appears.
func (t *Tailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll()
		}
	}
}

func (t *Tailer) poll() {
	f, err := os.Open(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Error("opening journal", zap.Error(err))
		}
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		t.logger.Error("stat journal", zap.Error(err))
		return
	}
	if t.fileInfo == nil || !os.SameFile(t.fileInfo, st) {
		// First open or rotation: restart from the top.
		t.fileInfo = st
		t.cursor = 0
	}

	data, err := io.ReadAll(f)
	if err != nil {
		t.logger.Error("reading journal", zap.Error(err))
		return
	}
	// Only newline-terminated rows count toward the cursor; a torn tail is
	// picked up once the writer completes the line.
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return
	}

	r := csv.NewReader(bytes.NewReader(data[:end+1]))
	r.FieldsPerRecord = -1

	idx := 0
	next := t.cursor
	for {
		row, err := r.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				break
			}
			// A row the csv layer cannot parse is dropped like any other
			// malformed row; the reader resumes at the next line.
			i := idx
			idx++
			if i < t.cursor {
				continue
			}
			next = i + 1
			t.logger.Warn("skipping unparsable row", zap.Int("line", i), zap.Error(err))
			continue
		}
		i := idx
		idx++
		if i < t.cursor {
			continue
		}
		next = i + 1
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) != FieldCount {
			t.logger.Warn("skipping malformed row", zap.Int("line", i), zap.Int("fields", len(row)))
			continue
		}
		e, err := DecodeRow(row)
		if err != nil {
			t.logger.Warn("skipping bad row", zap.Int("line", i), zap.Error(err))
			continue
		}
		t.sink.Ingest(e)
	}
	t.cursor = next
}
