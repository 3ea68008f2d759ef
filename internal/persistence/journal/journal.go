// Package journal keeps a compressed JSONL record of every session: one zstd
// file per session, finished when the session ends.
package journal

import (
	"log"
	"sync"
	"time"

	"inventors.io/internal/sim/session"
)

const (
	KindStart = "session_started"
	KindTurn  = "turn"
	KindEra   = "era"
	KindKick  = "kick"
	KindEnd   = "session_ended"
)

// Entry is one journal line. Exactly one payload field is set, matching Kind.
type Entry struct {
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id"`

	Start *session.StartEvent `json:"start,omitempty"`
	Turn  *session.TurnEvent  `json:"turn,omitempty"`
	Era   *session.EraEvent   `json:"era,omitempty"`
	Kick  *session.KickEvent  `json:"kick,omitempty"`
	End   *session.Result     `json:"end,omitempty"`
}

// Journal is a session.Recorder. Write errors are logged and otherwise
// ignored; a session never stalls on its journal.
type Journal struct {
	dir string
	log *log.Logger
	now func() time.Time

	mu     sync.Mutex
	open   map[string]*sessionFile
	closed bool
}

func New(dir string, logger *log.Logger) *Journal {
	if logger == nil {
		logger = log.New(log.Writer(), "[journal] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Journal{dir: dir, log: logger, now: time.Now, open: map[string]*sessionFile{}}
}

func (j *Journal) SessionStarted(e session.StartEvent) {
	j.write(Entry{Kind: KindStart, SessionID: e.SessionID, Start: &e}, e.StartedAt)
}

func (j *Journal) TurnPlayed(e session.TurnEvent) {
	j.write(Entry{Kind: KindTurn, SessionID: e.SessionID, Turn: &e}, time.Time{})
}

func (j *Journal) EraAdvanced(e session.EraEvent) {
	j.write(Entry{Kind: KindEra, SessionID: e.SessionID, Era: &e}, time.Time{})
}

func (j *Journal) PlayerKicked(e session.KickEvent) {
	j.write(Entry{Kind: KindKick, SessionID: e.SessionID, Kick: &e}, time.Time{})
}

// SessionEnded writes the result and finishes the session's file.
func (j *Journal) SessionEnded(r session.Result) {
	j.write(Entry{Kind: KindEnd, SessionID: r.SessionID, End: &r}, time.Time{})

	j.mu.Lock()
	sf := j.open[r.SessionID]
	delete(j.open, r.SessionID)
	j.mu.Unlock()
	if sf == nil {
		return
	}
	if err := sf.finish(); err != nil {
		j.log.Printf("finish: %v", err)
	}
}

// Active is the number of sessions with an unfinished journal file.
func (j *Journal) Active() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.open)
}

// Close finishes the files of sessions that never ended. Later events are dropped.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	var first error
	for id, sf := range j.open {
		if err := sf.finish(); err != nil && first == nil {
			first = err
		}
		delete(j.open, id)
	}
	return first
}

// write appends e to its session's file, creating the file on first use.
// started names a new file; zero means now.
func (j *Journal) write(e Entry, started time.Time) {
	e.At = j.now().UTC()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	sf, ok := j.open[e.SessionID]
	if !ok {
		if started.IsZero() {
			started = e.At
		}
		var err error
		sf, err = createSessionFile(j.dir, e.SessionID, started)
		if err != nil {
			j.log.Printf("open %s: %v", e.SessionID, err)
			return
		}
		j.open[e.SessionID] = sf
	}
	if err := sf.append(e); err != nil {
		j.log.Printf("write %s for %s: %v", e.Kind, e.SessionID, err)
	}
}
