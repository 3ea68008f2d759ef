package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventors.io/internal/persistence/indexdb"
	"inventors.io/internal/persistence/journal"
	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/sim/session"
	"inventors.io/internal/sim/tuning"
	"inventors.io/internal/transport/ws"
)

const logFlags = log.LstdFlags | log.Lmicroseconds

func main() {
	var (
		addr           = flag.String("addr", ":8080", "http listen address")
		configPath     = flag.String("config", "./configs/server.yaml", "server config path (empty for defaults)")
		players        = flag.Int("players", 0, "players per session (overrides config)")
		seed           = flag.Int64("seed", 0, "deck seed (overrides config)")
		disableDB      = flag.Bool("disable_db", false, "disable the sqlite results index")
		disableJournal = flag.Bool("disable_journal", false, "disable the session journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", logFlags)

	envCfg, err := loadServerEnv()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	tune, err := tuning.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *players > 0 {
		tune.PlayersPerSession = *players
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if tune.ProtocolVersion != protocol.Version {
		logger.Fatalf("config protocol_version=%s, server speaks %s", tune.ProtocolVersion, protocol.Version)
	}

	cats, err := catalogs.Load(tune.CatalogDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("catalogs: %d inventions (%s), %d inventors (%s)",
		len(cats.Inventions.Defs), short(cats.Inventions.Digest), len(cats.Inventors.Defs), short(cats.Inventors.Digest))

	ctx, cancel := signalContext()
	defer cancel()

	var recs []session.Recorder
	var jr *journal.Journal
	if !*disableJournal && envCfg.EnableJournal {
		jr = journal.New(tune.JournalDir, log.New(os.Stdout, "[journal] ", logFlags))
		defer jr.Close()
		recs = append(recs, jr)
	}
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(tune.IndexDB)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		recs = append(recs, idx)
	}

	lob, err := lobby.New(lobby.Config{
		PlayersPerSession: tune.PlayersPerSession,
		MaxActiveSessions: tune.MaxActiveSessions,
		MaxWaiting:        envCfg.MaxWaiting,
		Seed:              tune.Seed,
		Provider:          catalogs.NewProvider(cats),
		Recorder:          session.Multi(recs...),
		Log:               log.New(os.Stdout, "[lobby] ", logFlags),
		SessionLog: func(id string) *log.Logger {
			return log.New(os.Stdout, fmt.Sprintf("[session %s] ", short(id)), logFlags)
		},
	})
	if err != nil {
		logger.Fatalf("lobby: %v", err)
	}
	lobbyDone := make(chan struct{})
	go func() {
		defer close(lobbyDone)
		_ = lob.Run(ctx)
	}()

	wsSrv := ws.NewServer(lob, logger, ws.Options{
		ReplyTimeout:     tune.ReplyTimeout(),
		HandshakeTimeout: tune.HandshakeTimeout(),
		SendQueue:        tune.SendQueue,
		Digests: protocol.CatalogDigests{
			InventionsDigest: cats.Inventions.Digest,
			InventorsDigest:  cats.Inventors.Digest,
		},
	})

	enableAdmin := envCfg.EnableAdmin
	if !enableAdmin {
		logger.Printf("admin endpoints disabled (INV_ENABLE_ADMIN_HTTP=false)")
	}
	mux := newMux(handlerDeps{
		lobby:       lob,
		index:       idx,
		journal:     jr,
		players:     tune.PlayersPerSession,
		ws:          wsSrv.Handler(),
		enableAdmin: enableAdmin,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s, %d players per session", *addr, tune.PlayersPerSession)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-lobbyDone
	st := lob.Stats()
	logger.Printf("shutdown: %d finished, %d aborted, %d kicks", st.Finished, st.Aborted, st.Kicks)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
