package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	filePrefix  = "session"
	fileSuffix  = ".jsonl.zst"
	stampLayout = "20060102T150405.000Z"
)

// fileName orders journals by session start: session-<start>-<id>.jsonl.zst.
func fileName(sessionID string, started time.Time) string {
	return fmt.Sprintf("%s-%s-%s%s", filePrefix, started.UTC().Format(stampLayout), sessionID, fileSuffix)
}

// sessionIDFromName recovers the session id from a journal file name.
func sessionIDFromName(name string) (string, bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, filePrefix+"-") || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix+"-"), fileSuffix)
	// The stamp never contains a dash; the id may.
	i := strings.IndexByte(rest, '-')
	if i < 0 || i == len(rest)-1 {
		return "", false
	}
	return rest[i+1:], true
}

// sessionFile is the single zstd frame holding one session's entries.
type sessionFile struct {
	id   string
	path string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func createSessionFile(dir, sessionID string, started time.Time) (*sessionFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fileName(sessionID, started))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &sessionFile{id: sessionID, path: path, f: f, enc: enc, w: bufio.NewWriterSize(enc, 16*1024)}, nil
}

// append writes e as one line. The line reaches the encoder but stays in its
// block buffer until the frame is finished.
func (s *sessionFile) append(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

// finish ends the zstd frame and closes the file.
func (s *sessionFile) finish() error {
	flushErr := s.w.Flush()
	encErr := s.enc.Close()
	closeErr := s.f.Close()
	switch {
	case flushErr != nil:
		return fmt.Errorf("%s: %w", s.id, flushErr)
	case encErr != nil:
		return fmt.Errorf("%s: %w", s.id, encErr)
	case closeErr != nil:
		return fmt.Errorf("%s: %w", s.id, closeErr)
	}
	return nil
}
