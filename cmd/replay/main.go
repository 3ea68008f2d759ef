package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"inventors.io/internal/persistence/journal"
)

func main() {
	var (
		dir       = flag.String("journal", "./data/journal", "journal dir containing session-*.jsonl.zst")
		sessionID = flag.String("session", "", "print the timeline of one session (prefix match)")
		verify    = flag.Bool("verify", false, "check every journaled session for consistency")
	)
	flag.Parse()

	entries, err := journal.ReadDir(*dir, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	games := group(entries)

	if *sessionID != "" {
		g, err := find(games, *sessionID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printTimeline(os.Stdout, g)
		return
	}

	printSummary(os.Stdout, games)
	if *verify {
		bad := 0
		for _, g := range games {
			for _, problem := range check(g) {
				bad++
				fmt.Printf("FAIL session=%s: %s\n", g.id, problem)
			}
		}
		if bad > 0 {
			os.Exit(1)
		}
		fmt.Printf("verified %d sessions\n", len(games))
	}
}

type game struct {
	id      string
	entries []journal.Entry
}

func group(entries []journal.Entry) []*game {
	byID := map[string]*game{}
	var order []*game
	for _, e := range entries {
		g, ok := byID[e.SessionID]
		if !ok {
			g = &game{id: e.SessionID}
			byID[e.SessionID] = g
			order = append(order, g)
		}
		g.entries = append(g.entries, e)
	}
	return order
}

func find(games []*game, prefix string) (*game, error) {
	var hits []*game
	for _, g := range games {
		if strings.HasPrefix(g.id, prefix) {
			hits = append(hits, g)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("no session matching %q", prefix)
	case 1:
		return hits[0], nil
	default:
		return nil, fmt.Errorf("%d sessions match %q", len(hits), prefix)
	}
}

func printSummary(w io.Writer, games []*game) {
	fmt.Fprintf(w, "%-36s  %-20s  %5s  %3s  %5s  %s\n", "SESSION", "STARTED", "TURNS", "ERA", "KICKS", "WINNER")
	for _, g := range games {
		var started, winner string
		turns, era, kicks := 0, 0, 0
		for _, e := range g.entries {
			switch e.Kind {
			case journal.KindStart:
				started = e.At.Format("2006-01-02 15:04:05")
			case journal.KindEnd:
				turns, era, kicks = e.End.Turns, e.End.Era, e.End.Kicks
				winner = winnerName(e)
				if e.End.Aborted {
					winner = "(aborted)"
				}
			}
		}
		if winner == "" {
			winner = "(running)"
		}
		fmt.Fprintf(w, "%-36s  %-20s  %5d  %3d  %5d  %s\n", g.id, started, turns, era, kicks, winner)
	}
}

func winnerName(e journal.Entry) string {
	for _, st := range e.End.Standings {
		if st.Winner {
			return fmt.Sprintf("%s (%d pts)", st.Name, st.Score)
		}
	}
	return ""
}

func printTimeline(w io.Writer, g *game) {
	names := map[string]string{}
	for _, e := range g.entries {
		at := e.At.Format("15:04:05.000")
		switch e.Kind {
		case journal.KindStart:
			for _, s := range e.Start.Seats {
				names[s.PlayerID] = s.Name
			}
			fmt.Fprintf(w, "%s start   %d players, table %s\n", at, len(e.Start.Seats), strings.Join(e.Start.Table, ", "))
		case journal.KindTurn:
			t := e.Turn
			fmt.Fprintf(w, "%s turn %-3d era %d  %s: %s\n", at, t.Turn, t.Era, names[t.PlayerID], t.Description)
			for _, a := range t.Allocations {
				fmt.Fprintf(w, "%s          %s takes %s %d\n", at, names[a.PlayerID], a.Reward.Type, a.Reward.Value)
			}
		case journal.KindEra:
			fmt.Fprintf(w, "%s era %d   table %s\n", at, e.Era.Era, strings.Join(e.Era.Table, ", "))
		case journal.KindKick:
			fmt.Fprintf(w, "%s kick    %s %s: %s\n", at, e.Kick.Name, e.Kick.Code, e.Kick.Reason)
		case journal.KindEnd:
			standings := append(e.End.Standings[:0:0], e.End.Standings...)
			sort.SliceStable(standings, func(i, j int) bool { return standings[i].Score > standings[j].Score })
			fmt.Fprintf(w, "%s end     after %d turns\n", at, e.End.Turns)
			for _, st := range standings {
				mark := ""
				if st.Winner {
					mark = "  winner"
				}
				fmt.Fprintf(w, "          %-12s %-6s %3d pts %2d inventions%s\n", st.Name, st.Team, st.Score, st.Completed, mark)
			}
		}
	}
}

// check returns the consistency problems of one journaled session.
func check(g *game) []string {
	var problems []string
	if len(g.entries) == 0 || g.entries[0].Kind != journal.KindStart {
		return append(problems, "does not begin with session_started")
	}
	seats := map[string]bool{}
	for _, s := range g.entries[0].Start.Seats {
		seats[s.PlayerID] = true
	}
	lastTurn, era, kicks := 0, 1, 0
	ended := false
	for _, e := range g.entries[1:] {
		if ended {
			problems = append(problems, fmt.Sprintf("%s after session_ended", e.Kind))
			continue
		}
		switch e.Kind {
		case journal.KindTurn:
			if e.Turn.Turn <= lastTurn {
				problems = append(problems, fmt.Sprintf("turn %d after turn %d", e.Turn.Turn, lastTurn))
			}
			lastTurn = e.Turn.Turn
			if !seats[e.Turn.PlayerID] {
				problems = append(problems, fmt.Sprintf("turn %d by unseated player %s", e.Turn.Turn, e.Turn.PlayerID))
			}
			if len(e.Turn.Allocations) > 0 && !e.Turn.Completed {
				problems = append(problems, fmt.Sprintf("turn %d allocates rewards without a completion", e.Turn.Turn))
			}
		case journal.KindEra:
			if e.Era.Era != era+1 {
				problems = append(problems, fmt.Sprintf("era jumps from %d to %d", era, e.Era.Era))
			}
			era = e.Era.Era
		case journal.KindKick:
			if !seats[e.Kick.PlayerID] {
				problems = append(problems, fmt.Sprintf("kick of unseated player %s", e.Kick.PlayerID))
			}
			delete(seats, e.Kick.PlayerID)
			kicks++
		case journal.KindEnd:
			ended = true
			if e.End.Kicks != kicks {
				problems = append(problems, fmt.Sprintf("result says %d kicks, journal has %d", e.End.Kicks, kicks))
			}
			if e.End.Era != era {
				problems = append(problems, fmt.Sprintf("result era %d, journal era %d", e.End.Era, era))
			}
			if e.End.WinnerID != "" && !seats[e.End.WinnerID] {
				problems = append(problems, fmt.Sprintf("winner %s is not seated", e.End.WinnerID))
			}
		}
	}
	return problems
}
