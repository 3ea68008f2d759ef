package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/session"
)

// SQLiteIndex is a queryable read model of finished and running sessions.
// Writes are queued and applied by a single goroutine; the journal stays the
// source of truth, so a full queue drops rows instead of stalling a session.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropStart atomic.Uint64
	dropTurn  atomic.Uint64
	dropEra   atomic.Uint64
	dropKick  atomic.Uint64
	dropEnd   atomic.Uint64
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqTurn
	reqEra
	reqKick
	reqEnd
)

type req struct {
	kind reqKind

	start session.StartEvent
	turn  session.TurnEvent
	era   session.EraEvent
	kick  session.KickEvent
	end   session.Result
}

type QueueStats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropStart     uint64 `json:"drop_start_total"`
	DropTurn      uint64 `json:"drop_turn_total"`
	DropEra       uint64 `json:"drop_era_total"`
	DropKick      uint64 `json:"drop_kick_total"`
	DropEnd       uint64 `json:"drop_end_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			entries INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			era INTEGER NOT NULL,
			turns INTEGER NOT NULL DEFAULT 0,
			kicks INTEGER NOT NULL DEFAULT 0,
			winner_id TEXT,
			aborted INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);`,
		`CREATE TABLE IF NOT EXISTS players (
			session_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			seat INTEGER NOT NULL,
			name TEXT NOT NULL,
			team TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			winner INTEGER NOT NULL DEFAULT 0,
			kicked INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_players_name ON players(name);`,
		`CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			era INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			invention TEXT,
			completed INTEGER NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (session_id, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS kicks (
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (session_id, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_kicks_code ON kicks(code);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() QueueStats {
	return QueueStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropStart:     s.dropStart.Load(),
		DropTurn:      s.dropTurn.Load(),
		DropEra:       s.dropEra.Load(),
		DropKick:      s.dropKick.Load(),
		DropEnd:       s.dropEnd.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) SessionStarted(e session.StartEvent) {
	s.enqueue(req{kind: reqStart, start: e}, &s.dropStart)
}

func (s *SQLiteIndex) TurnPlayed(e session.TurnEvent) {
	s.enqueue(req{kind: reqTurn, turn: e}, &s.dropTurn)
}

func (s *SQLiteIndex) EraAdvanced(e session.EraEvent) {
	s.enqueue(req{kind: reqEra, era: e}, &s.dropEra)
}

func (s *SQLiteIndex) PlayerKicked(e session.KickEvent) {
	s.enqueue(req{kind: reqKick, kick: e}, &s.dropKick)
}

func (s *SQLiteIndex) SessionEnded(r session.Result) {
	s.enqueue(req{kind: reqEnd, end: r}, &s.dropEnd)
}

// UpsertCatalogs records the digests the server is running with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,entries,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if _, err := stmt.Exec("inventions", cats.Inventions.Digest, len(cats.Inventions.Defs), now); err != nil {
		return err
	}
	if _, err := stmt.Exec("inventors", cats.Inventors.Digest, len(cats.Inventors.Defs), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx          *sql.Tx
		opCount     int
		commitEvery = 500
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		n, err := apply(tx, r)
		if err != nil {
			rollback()
			continue
		}
		opCount += n
		// Batch under load; commit as soon as the queue is idle so readers
		// sharing the single connection are not held up by an open tx.
		if opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

func apply(tx *sql.Tx, r req) (int, error) {
	ops := 0
	exec := func(query string, args ...any) error {
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
		ops++
		return nil
	}

	switch r.kind {
	case reqStart:
		e := r.start
		if err := exec(`INSERT OR REPLACE INTO sessions(session_id,started_at,era) VALUES(?,?,1)`,
			e.SessionID, e.StartedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return ops, err
		}
		for i, seat := range e.Seats {
			if err := exec(`INSERT OR REPLACE INTO players(session_id,player_id,seat,name,team) VALUES(?,?,?,?,?)`,
				e.SessionID, seat.PlayerID, i, seat.Name, string(seat.Team)); err != nil {
				return ops, err
			}
		}

	case reqTurn:
		e := r.turn
		if err := exec(`INSERT OR REPLACE INTO turns(session_id,turn,era,player_id,kind,invention,completed,description) VALUES(?,?,?,?,?,?,?,?)`,
			e.SessionID, e.Turn, e.Era, e.PlayerID, e.Kind, e.Invention, boolInt(e.Completed), e.Description); err != nil {
			return ops, err
		}
		if err := exec(`UPDATE sessions SET turns=? WHERE session_id=?`, e.Turn, e.SessionID); err != nil {
			return ops, err
		}

	case reqEra:
		e := r.era
		if err := exec(`UPDATE sessions SET era=? WHERE session_id=?`, e.Era, e.SessionID); err != nil {
			return ops, err
		}

	case reqKick:
		e := r.kick
		if err := exec(`INSERT OR REPLACE INTO kicks(session_id,turn,player_id,name,code,reason) VALUES(?,?,?,?,?,?)`,
			e.SessionID, e.Turn, e.PlayerID, e.Name, e.Code, e.Reason); err != nil {
			return ops, err
		}
		if err := exec(`UPDATE players SET kicked=1 WHERE session_id=? AND player_id=?`, e.SessionID, e.PlayerID); err != nil {
			return ops, err
		}

	case reqEnd:
		e := r.end
		if err := exec(`UPDATE sessions SET ended_at=?,era=?,turns=?,kicks=?,winner_id=?,aborted=? WHERE session_id=?`,
			e.EndedAt.UTC().Format(time.RFC3339Nano), e.Era, e.Turns, e.Kicks, nullString(e.WinnerID), boolInt(e.Aborted), e.SessionID); err != nil {
			return ops, err
		}
		for _, st := range e.Standings {
			if err := exec(`UPDATE players SET score=?,completed=?,winner=? WHERE session_id=? AND player_id=?`,
				st.Score, st.Completed, boolInt(st.Winner), e.SessionID, st.PlayerID); err != nil {
				return ops, err
			}
		}
	}
	return ops, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
