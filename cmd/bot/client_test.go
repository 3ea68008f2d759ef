package main

import (
	"context"
	"io"
	"log"
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/strategy"
	"inventors.io/internal/transport/ws"
)

func TestPlayGame_TwoBotsFinish(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	cat, err := catalogs.Load("../../configs/catalog")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	l, err := lobby.New(lobby.Config{
		PlayersPerSession: 2,
		Seed:              11,
		Provider:          catalogs.NewProvider(cat),
		Log:               quiet,
		SessionLog:        func(string) *log.Logger { return quiet },
	})
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	lobbyDone := make(chan struct{})
	go func() {
		defer close(lobbyDone)
		_ = l.Run(ctx)
	}()
	defer func() {
		cancel()
		<-lobbyDone
	}()

	ts := httptest.NewServer(ws.NewServer(l, quiet, ws.Options{ReplyTimeout: 5 * time.Second}).Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	names := []string{"victory_points", "steal"}
	results := make([]gameResult, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, n := range names {
		s, err := strategy.New(n, rand.New(rand.NewSource(int64(i+1))))
		if err != nil {
			t.Fatalf("strategy %s: %v", n, err)
		}
		wg.Add(1)
		go func(i int, s strategy.Strategy) {
			defer wg.Done()
			results[i], errs[i] = playGame(ctx, url, names[i], s, quiet)
		}(i, s)
	}
	wg.Wait()

	winners := 0
	for i, res := range results {
		if errs[i] != nil {
			t.Fatalf("%s: %v", names[i], errs[i])
		}
		if res.PlayerID == "" {
			t.Fatalf("%s never welcomed", names[i])
		}
		if res.Victory {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners=%d results=%+v", winners, results)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	if err := os.WriteFile(path, []byte("url: ws://example:9/v1/ws\nstrategy: steal\ngames: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := botConfig{Name: "bot", Strategy: "random", Games: 1}
	if err := loadConfig(path, &cfg); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.URL != "ws://example:9/v1/ws" || cfg.Strategy != "steal" || cfg.Games != 5 || cfg.Name != "bot" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if err := loadConfig("", &cfg); err != nil {
		t.Fatalf("empty path: %v", err)
	}
}
