package journal

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

const recordHeaderLen = 12

// EntryID numbers journal records from 1.
type EntryID uint64

type Stats struct {
	OldestUnread EntryID
	LatestWrite  EntryID
	SizeBytes    int64
}

type Config struct {
	Dir string `yaml:"dir" env:"AEGIS_JOURNAL_DIR, overwrite"`
}

// FileJournal is an append-only log of delivered results with a read cursor,
// so a presentation consumer can pick up results it has not narrated yet.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    EntryID
	committed EntryID
	sizeBytes int64
}

func Open(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "results.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:     path,
		metaPath: filepath.Join(dir, "results.cursor"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
	}
	if err := j.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	if err := j.scanExisting(); err != nil {
		return err
	}
	if err := j.loadCursor(); err != nil {
		return err
	}
	if j.nextID < j.committed {
		j.nextID = j.committed
	}
	_, err := j.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting finds the last complete record and cuts off a torn tail.
func (j *FileJournal) scanExisting() error {
	stat, err := j.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID EntryID
	)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		id := EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])

		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan body: %w", err)
		}
		offset += recordHeaderLen + int64(length)
		lastID = id
	}

	if err := j.file.Truncate(offset); err != nil {
		return err
	}
	j.sizeBytes = offset
	j.nextID = lastID
	return nil
}

func (j *FileJournal) loadCursor() error {
	data, err := os.ReadFile(j.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("journal cursor parse: %w", err)
	}
	j.committed = EntryID(u)
	return nil
}

// Append writes r and flushes it to the file.
func (j *FileJournal) Append(r domain.AnalysisResult) (EntryID, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextID + 1

	// entry format: [8 bytes id][4 bytes len][len bytes json]
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, err
	}
	if err := j.writer.Flush(); err != nil {
		return 0, err
	}

	j.nextID = id
	j.sizeBytes += int64(len(b) + len(hdr))
	return id, nil
}

// Deliver makes the journal a result sink.
func (j *FileJournal) Deliver(_ context.Context, r domain.AnalysisResult) error {
	_, err := j.Append(r)
	return err
}

func (j *FileJournal) Name() string { return "journal" }

// Iterate calls fn for every record with ID >= from, in write order.
func (j *FileJournal) Iterate(from EntryID, fn func(id EntryID, r domain.AnalysisResult) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(rd, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal truncated header: %w", err)
		}
		id := EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		b := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(rd, b); err != nil {
			return fmt.Errorf("corrupt journal: %w", err)
		}
		if id < from {
			continue
		}

		var r domain.AnalysisResult
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, r); err != nil {
			return err
		}
	}
}

// Pending iterates the records after the read cursor.
func (j *FileJournal) Pending(fn func(id EntryID, r domain.AnalysisResult) error) error {
	return j.Iterate(j.Stats().OldestUnread, fn)
}

// Commit moves the read cursor past upto and persists it.
func (j *FileJournal) Commit(upto EntryID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if upto > j.nextID {
		upto = j.nextID
	}
	if upto > j.committed {
		j.committed = upto
	}
	return os.WriteFile(j.metaPath, []byte(fmt.Sprintf("%d\n", j.committed)), 0o644)
}

func (j *FileJournal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Stats{
		OldestUnread: j.committed + 1,
		LatestWrite:  j.nextID,
		SizeBytes:    j.sizeBytes,
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

var _ ports.ResultSink = (*FileJournal)(nil)
