package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
)

type SessionRow struct {
	SessionID string `db:"session_id" json:"session_id"`
	StartedAt string `db:"started_at" json:"started_at"`
	EndedAt   string `db:"ended_at" json:"ended_at,omitempty"`
	Era       int    `db:"era" json:"era"`
	Turns     int    `db:"turns" json:"turns"`
	Kicks     int    `db:"kicks" json:"kicks"`
	WinnerID  string `db:"winner_id" json:"winner_id,omitempty"`
	Aborted   bool   `db:"aborted" json:"aborted"`
}

type PlayerRow struct {
	SessionID string `db:"session_id" json:"session_id"`
	PlayerID  string `db:"player_id" json:"player_id"`
	Seat      int    `db:"seat" json:"seat"`
	Name      string `db:"name" json:"name"`
	Team      string `db:"team" json:"team"`
	Score     int    `db:"score" json:"score"`
	Completed int    `db:"completed" json:"completed"`
	Winner    bool   `db:"winner" json:"winner"`
	Kicked    bool   `db:"kicked" json:"kicked"`
}

// LeaderRow aggregates finished games per player name.
type LeaderRow struct {
	Name   string  `db:"name" json:"name"`
	Games  int     `db:"games" json:"games"`
	Wins   int     `db:"wins" json:"wins"`
	Kicks  int     `db:"kicks" json:"kicks"`
	Points float64 `db:"avg_score" json:"avg_score"`
}

type kickCount struct {
	Code string `db:"code"`
	N    int    `db:"n"`
}

// Reader runs read-only queries against an index database.
type Reader struct {
	db    *sqlx.DB
	owned bool
}

// OpenReader opens an existing index file for queries.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db, owned: true}, nil
}

// Reader shares the index's connection.
func (s *SQLiteIndex) Reader() *Reader { return &Reader{db: sqlx.NewDb(s.db, "sqlite")} }

func (r *Reader) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

// RecentSessions lists the newest sessions first.
func (r *Reader) RecentSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []SessionRow
	err := r.db.SelectContext(ctx, &out, `
		SELECT session_id, started_at, COALESCE(ended_at,'') AS ended_at, era, turns, kicks,
			COALESCE(winner_id,'') AS winner_id, aborted
		FROM sessions ORDER BY started_at DESC, session_id LIMIT ?`, limit)
	return out, err
}

// Players returns a session's seats in seat order.
func (r *Reader) Players(ctx context.Context, sessionID string) ([]PlayerRow, error) {
	var out []PlayerRow
	err := r.db.SelectContext(ctx, &out, `
		SELECT session_id, player_id, seat, name, team, score, completed, winner, kicked
		FROM players WHERE session_id=? ORDER BY seat`, sessionID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, sql.ErrNoRows)
	}
	return out, nil
}

// Leaderboard ranks player names by wins over finished, non-aborted sessions.
func (r *Reader) Leaderboard(ctx context.Context, limit int) ([]LeaderRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []LeaderRow
	err := r.db.SelectContext(ctx, &out, `
		SELECT p.name AS name, COUNT(*) AS games, SUM(p.winner) AS wins,
			SUM(p.kicked) AS kicks, AVG(p.score) AS avg_score
		FROM players p JOIN sessions s ON s.session_id = p.session_id
		WHERE s.ended_at IS NOT NULL AND s.aborted = 0
		GROUP BY p.name
		ORDER BY SUM(p.winner) DESC, AVG(p.score) DESC, p.name
		LIMIT ?`, limit)
	return out, err
}

// KickCounts returns the number of kicks per KICKED code.
func (r *Reader) KickCounts(ctx context.Context) (map[string]int, error) {
	var rows []kickCount
	if err := r.db.SelectContext(ctx, &rows, `SELECT code, COUNT(*) AS n FROM kicks GROUP BY code`); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, k := range rows {
		out[k.Code] = k.N
	}
	return out, nil
}
