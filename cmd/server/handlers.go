package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"inventors.io/internal/persistence/indexdb"
	"inventors.io/internal/persistence/journal"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/sim/session"
)

type lobbyView interface {
	Stats() lobby.Stats
	Sessions() []session.Status
	Results() []session.Result
}

type handlerDeps struct {
	lobby lobbyView
	// index is nil when the results index is disabled.
	index *indexdb.SQLiteIndex
	// journal is nil when journaling is disabled.
	journal     *journal.Journal
	players     int
	ws          http.HandlerFunc
	enableAdmin bool
}

func newMux(d handlerDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d)
	})

	if d.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/sessions", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Stats  lobby.Stats      `json:"stats"`
				Active []session.Status `json:"active"`
			}{
				Stats:  d.lobby.Stats(),
				Active: d.lobby.Sessions(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/results", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			rw.Header().Set("Content-Type", "application/json")
			if d.index == nil {
				res := d.lobby.Results()
				if limit > 0 && len(res) > limit {
					res = res[len(res)-limit:]
				}
				_ = json.NewEncoder(rw).Encode(map[string]any{"source": "memory", "results": res})
				return
			}
			rows, err := d.index.Reader().RecentSessions(r.Context(), limit)
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"source": "index", "results": rows})
		})
	}
	if d.ws != nil {
		mux.HandleFunc("/v1/ws", d.ws)
	}
	return mux
}

// writeMetrics emits the minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, d handlerDeps) {
	st := d.lobby.Stats()

	fmt.Fprintf(rw, "# HELP inventors_lobby_waiting Players waiting for a session.\n")
	fmt.Fprintf(rw, "# TYPE inventors_lobby_waiting gauge\n")
	fmt.Fprintf(rw, "inventors_lobby_waiting{players_per_session=\"%d\"} %d\n", d.players, st.Waiting)

	fmt.Fprintf(rw, "# HELP inventors_sessions_active Sessions currently running.\n")
	fmt.Fprintf(rw, "# TYPE inventors_sessions_active gauge\n")
	fmt.Fprintf(rw, "inventors_sessions_active %d\n", st.Active)

	fmt.Fprintf(rw, "# HELP inventors_sessions_total Sessions ended, by outcome.\n")
	fmt.Fprintf(rw, "# TYPE inventors_sessions_total counter\n")
	fmt.Fprintf(rw, "inventors_sessions_total{outcome=%q} %d\n", "finished", st.Finished)
	fmt.Fprintf(rw, "inventors_sessions_total{outcome=%q} %d\n", "aborted", st.Aborted)

	fmt.Fprintf(rw, "# HELP inventors_kicks_total Players kicked from sessions.\n")
	fmt.Fprintf(rw, "# TYPE inventors_kicks_total counter\n")
	fmt.Fprintf(rw, "inventors_kicks_total %d\n", st.Kicks)

	if d.journal != nil {
		fmt.Fprintf(rw, "# HELP inventors_journal_open_files Session journal files not yet finished.\n")
		fmt.Fprintf(rw, "# TYPE inventors_journal_open_files gauge\n")
		fmt.Fprintf(rw, "inventors_journal_open_files %d\n", d.journal.Active())
	}

	if d.index == nil {
		return
	}
	q := d.index.Stats()
	fmt.Fprintf(rw, "# HELP inventors_index_queue_depth Results index write backlog.\n")
	fmt.Fprintf(rw, "# TYPE inventors_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "inventors_index_queue_depth %d\n", q.QueueDepth)

	fmt.Fprintf(rw, "# HELP inventors_index_dropped_total Index rows dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE inventors_index_dropped_total counter\n")
	fmt.Fprintf(rw, "inventors_index_dropped_total{event=%q} %d\n", "start", q.DropStart)
	fmt.Fprintf(rw, "inventors_index_dropped_total{event=%q} %d\n", "turn", q.DropTurn)
	fmt.Fprintf(rw, "inventors_index_dropped_total{event=%q} %d\n", "era", q.DropEra)
	fmt.Fprintf(rw, "inventors_index_dropped_total{event=%q} %d\n", "kick", q.DropKick)
	fmt.Fprintf(rw, "inventors_index_dropped_total{event=%q} %d\n", "end", q.DropEnd)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
