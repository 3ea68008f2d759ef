package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inventors.io/internal/persistence/indexdb"
	"inventors.io/internal/persistence/journal"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/sim/session"
)

type fakeLobby struct {
	stats    lobby.Stats
	sessions []session.Status
	results  []session.Result
}

func (f fakeLobby) Stats() lobby.Stats         { return f.stats }
func (f fakeLobby) Sessions() []session.Status { return f.sessions }
func (f fakeLobby) Results() []session.Result  { return f.results }

func testLobby() fakeLobby {
	return fakeLobby{
		stats:    lobby.Stats{Waiting: 1, Active: 1, Finished: 3, Aborted: 1, Kicks: 2},
		sessions: []session.Status{{ID: "s9", Phase: "AWAITING_ACTION", Era: 2, Turn: 7}},
		results:  []session.Result{{SessionID: "s1"}, {SessionID: "s2"}, {SessionID: "s3"}},
	}
}

func TestMetrics(t *testing.T) {
	mux := newMux(handlerDeps{lobby: testLobby(), players: 3})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		`inventors_lobby_waiting{players_per_session="3"} 1`,
		"inventors_sessions_active 1",
		`inventors_sessions_total{outcome="finished"} 3`,
		`inventors_sessions_total{outcome="aborted"} 1`,
		"inventors_kicks_total 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "inventors_index_") || strings.Contains(body, "inventors_journal_") {
		t.Fatalf("persistence metrics without persistence")
	}
}

func TestMetrics_JournalOpenFiles(t *testing.T) {
	jr := journal.New(t.TempDir(), nil)
	defer jr.Close()
	jr.SessionStarted(session.StartEvent{SessionID: "s1"})

	mux := newMux(handlerDeps{lobby: testLobby(), journal: jr})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if body := rr.Body.String(); !strings.Contains(body, "inventors_journal_open_files 1") {
		t.Fatalf("metrics:\n%s", body)
	}
}

func TestAdminSessions_LoopbackOnly(t *testing.T) {
	mux := newMux(handlerDeps{lobby: testLobby(), enableAdmin: true})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/sessions", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/sessions", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("loopback status=%d", rr.Code)
	}
	var resp struct {
		Stats  lobby.Stats      `json:"stats"`
		Active []session.Status `json:"active"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Finished != 3 || len(resp.Active) != 1 || resp.Active[0].ID != "s9" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestAdminDisabled(t *testing.T) {
	mux := newMux(handlerDeps{lobby: testLobby()})
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/sessions", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestAdminResults(t *testing.T) {
	get := func(mux *http.ServeMux, url string) map[string]json.RawMessage {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.RemoteAddr = "[::1]:4000"
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", url, rr.Code, rr.Body.String())
		}
		var out map[string]json.RawMessage
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return out
	}

	mem := get(newMux(handlerDeps{lobby: testLobby(), enableAdmin: true}), "/admin/v1/results?limit=2")
	var results []session.Result
	_ = json.Unmarshal(mem["results"], &results)
	if string(mem["source"]) != `"memory"` || len(results) != 2 || results[0].SessionID != "s2" {
		t.Fatalf("memory results=%+v", results)
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "idx.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	idx.SessionStarted(session.StartEvent{SessionID: "s1", StartedAt: time.Now()})

	mux := newMux(handlerDeps{lobby: testLobby(), index: idx, enableAdmin: true})
	deadline := time.Now().Add(5 * time.Second)
	for {
		out := get(mux, "/admin/v1/results")
		var rows []indexdb.SessionRow
		_ = json.Unmarshal(out["results"], &rows)
		if len(rows) == 1 && rows[0].SessionID == "s1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("index never returned s1: %+v", rows)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
