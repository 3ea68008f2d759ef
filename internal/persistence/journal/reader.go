package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// Files lists the session files under dir ordered by session start.
func Files(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, filePrefix+"-*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadFile decodes every entry of one session file. The file of a session
// still running holds an unfinished frame; whatever decodes is returned.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return out, fmt.Errorf("%s: entry %d: %w", filepath.Base(path), len(out)+1, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}

// ReadDir returns the entries of sessionID, or of every session when
// sessionID is empty, grouped by session in start order.
func ReadDir(dir, sessionID string) ([]Entry, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, path := range files {
		if sessionID != "" {
			if id, ok := sessionIDFromName(path); !ok || id != sessionID {
				continue
			}
		}
		entries, err := ReadFile(path)
		if err != nil {
			return out, err
		}
		out = append(out, entries...)
	}
	return out, nil
}
