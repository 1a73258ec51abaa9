package auditlogs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
)

type segment struct {
	seq     uint64
	path    string
	written int
	pending map[uuid.UUID]struct{}
}

// wal is a directory of append-only JSON-lines segments. A record is
// durable once Append returns; a segment is removed by Compact once every
// record in it has been acknowledged.
type wal struct {
	logger   *logrus.Logger
	dir      string
	mu       sync.Mutex
	segments map[uint64]*segment
	current  *segment
	file     *os.File
	owner    map[uuid.UUID]uint64
}

type walEntry struct {
	seq    uint64
	record audit.Record
}

func openWAL(logger *logrus.Logger, dir string) (*wal, []walEntry, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create wal dir: %w", err)
	}
	w := &wal{
		logger:   logger,
		dir:      dir,
		segments: make(map[uint64]*segment),
		owner:    make(map[uuid.UUID]uint64),
	}

	seqs, err := w.listSegments()
	if err != nil {
		return nil, nil, err
	}

	var replay []walEntry
	var last uint64
	for _, seq := range seqs {
		seg := &segment{seq: seq, path: w.segmentPath(seq), pending: make(map[uuid.UUID]struct{})}
		records, err := w.readSegment(seg.path)
		if err != nil {
			return nil, nil, err
		}
		for _, rec := range records {
			if _, dup := w.owner[rec.ID]; dup {
				continue
			}
			seg.pending[rec.ID] = struct{}{}
			seg.written++
			w.owner[rec.ID] = seq
			replay = append(replay, walEntry{seq: seq, record: rec})
		}
		w.segments[seq] = seg
		last = seq
	}

	if err := w.openSegment(last + 1); err != nil {
		return nil, nil, err
	}
	return w, replay, nil
}

func (w *wal) segmentPath(seq uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s%020d%s", walPrefix, seq, walSuffix))
}

func (w *wal) listSegments() ([]uint64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list wal dir: %w", err)
	}
	var seqs []uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, walPrefix) || !strings.HasSuffix(name, walSuffix) {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, walPrefix), walSuffix), 10, 64)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

// readSegment tolerates a torn final line left by a crash mid-write.
func (w *wal) readSegment(path string) ([]audit.Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the wal dir
	if err != nil {
		return nil, fmt.Errorf("failed to read wal segment: %w", err)
	}
	var out []audit.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec audit.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			w.logger.WithError(err).WithField("segment", path).Warn("skipping unreadable wal line")
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan wal segment: %w", err)
	}
	return out, nil
}

func (w *wal) openSegment(seq uint64) error {
	path := w.segmentPath(seq)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open wal segment: %w", err)
	}
	seg := &segment{seq: seq, path: path, pending: make(map[uuid.UUID]struct{})}
	w.segments[seq] = seg
	w.current = seg
	w.file = f
	return nil
}

// Append writes one record and fsyncs. It returns the segment holding it.
func (w *wal) Append(rec audit.Record) (uint64, error) {
	line, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode audit record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, errWALClosed
	}
	if _, err := w.file.Write(line); err != nil {
		return 0, fmt.Errorf("failed to write wal: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync wal: %w", err)
	}
	w.current.written++
	w.current.pending[rec.ID] = struct{}{}
	w.owner[rec.ID] = w.current.seq
	return w.current.seq, nil
}

// Ack marks a record as persisted downstream. Repeated acks are ignored.
func (w *wal) Ack(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	seq, ok := w.owner[id]
	if !ok {
		return
	}
	delete(w.owner, id)
	if seg, ok := w.segments[seq]; ok {
		delete(seg.pending, id)
	}
}

// Unacked returns the ids still waiting for persistence.
func (w *wal) Unacked() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]uuid.UUID, 0, len(w.owner))
	for id := range w.owner {
		out = append(out, id)
	}
	return out
}

// Compact rotates a non-empty current segment and deletes every closed
// segment whose records are all acknowledged. It returns how many segments
// were removed.
func (w *wal) Compact() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, errWALClosed
	}

	if w.current.written > 0 {
		if err := w.file.Close(); err != nil {
			return 0, fmt.Errorf("failed to close wal segment: %w", err)
		}
		w.file = nil
		if err := w.openSegment(w.current.seq + 1); err != nil {
			return 0, err
		}
	}

	removed := 0
	for seq, seg := range w.segments {
		if seq == w.current.seq || len(seg.pending) > 0 {
			continue
		}
		if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove wal segment: %w", err)
		}
		delete(w.segments, seq)
		removed++
	}
	return removed, nil
}

func (w *wal) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
