package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"inventors.io/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", "./data/index/sessions.sqlite", "sqlite index path")
	limit := fs.Int("limit", 20, "result limit")
	sessionID := fs.String("session", "", "session id (players query)")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	r, err := indexdb.OpenReader(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runQuery(ctx, os.Stdout, r, q, *limit, *sessionID); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, w io.Writer, r *indexdb.Reader, q string, limit int, sessionID string) error {
	var (
		out any
		err error
	)
	switch q {
	case "sessions":
		out, err = r.RecentSessions(ctx, limit)
	case "players":
		if strings.TrimSpace(sessionID) == "" {
			return fmt.Errorf("players: missing -session")
		}
		out, err = r.Players(ctx, sessionID)
	case "leaderboard":
		out, err = r.Leaderboard(ctx, limit)
	case "kicks":
		out, err = r.KickCounts(ctx)
	default:
		return fmt.Errorf("unknown query %q (sessions, players, leaderboard, kicks)", q)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", q, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
