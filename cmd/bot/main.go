package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inventors.io/internal/strategy"
)

type botConfig struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`
	Games    int    `yaml:"games"`
	Seed     int64  `yaml:"seed"`
}

func loadConfig(path string, cfg *botConfig) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "optional yaml file with url/name/strategy/games/seed")
		url        = flag.String("url", "", "ws url (default ws://localhost:8080/v1/ws)")
		name       = flag.String("name", "", "agent name (default bot)")
		strat      = flag.String("strategy", "", "one of: "+strings.Join(strategy.Names(), ", "))
		games      = flag.Int("games", 0, "games to play (default 1)")
		seed       = flag.Int64("seed", 0, "random strategy seed (0 uses the clock)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	cfg := botConfig{URL: "ws://localhost:8080/v1/ws", Name: "bot", Strategy: "random", Games: 1}
	if err := loadConfig(*configPath, &cfg); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if *url != "" {
		cfg.URL = *url
	}
	if *name != "" {
		cfg.Name = *name
	}
	if *strat != "" {
		cfg.Strategy = *strat
	}
	if *games > 0 {
		cfg.Games = *games
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	s, err := strategy.New(cfg.Strategy, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gameLog := log.New(os.Stdout, fmt.Sprintf("[bot %s] ", cfg.Name), log.LstdFlags|log.Lmicroseconds)
	var won, played, kicked int
	for i := 0; i < cfg.Games; i++ {
		res, err := playGame(ctx, cfg.URL, cfg.Name, s, gameLog)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Printf("game %d: %v", i+1, err)
			if errors.Is(err, errDenied) {
				break
			}
			continue
		}
		played++
		switch {
		case res.Kicked != "":
			kicked++
			logger.Printf("game %d: kicked (%s) after %d turns", i+1, res.Kicked, res.Turns)
		case res.Victory:
			won++
			logger.Printf("game %d: won with %d points", i+1, res.Score)
		default:
			logger.Printf("game %d: lost with %d points", i+1, res.Score)
		}
	}

	rate := 0.0
	if played > 0 {
		rate = 100 * float64(won) / float64(played)
	}
	logger.Printf("strategy=%s played=%d won=%d kicked=%d win_rate=%.1f%%", cfg.Strategy, played, won, kicked, rate)
}
