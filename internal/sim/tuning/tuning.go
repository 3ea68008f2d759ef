package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	PlayersPerSession  int   `yaml:"players_per_session"`
	MaxActiveSessions  int   `yaml:"max_active_sessions"`
	ReplyTimeoutMs     int   `yaml:"reply_timeout_ms"`
	HandshakeTimeoutMs int   `yaml:"handshake_timeout_ms"`
	SendQueue          int   `yaml:"send_queue"`
	Seed               int64 `yaml:"seed"`

	CatalogDir string `yaml:"catalog_dir"`
	JournalDir string `yaml:"journal_dir"`
	IndexDB    string `yaml:"index_db"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		PlayersPerSession:  2,
		ReplyTimeoutMs:     30000,
		HandshakeTimeoutMs: 5000,
		SendQueue:          32,
		CatalogDir:         "configs/catalog",
		JournalDir:         "data/journal",
		IndexDB:            "data/index/sessions.sqlite",
	}
}

// Load reads a yaml file over the defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("server.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("server.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	t.ProtocolVersion = strings.TrimSpace(t.ProtocolVersion)
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.PlayersPerSession == 0 {
		t.PlayersPerSession = d.PlayersPerSession
	}
	if t.ReplyTimeoutMs == 0 {
		t.ReplyTimeoutMs = d.ReplyTimeoutMs
	}
	if t.HandshakeTimeoutMs == 0 {
		t.HandshakeTimeoutMs = d.HandshakeTimeoutMs
	}
	if t.SendQueue <= 0 {
		t.SendQueue = d.SendQueue
	}
	if t.SendQueue > 256 {
		t.SendQueue = 256
	}
	t.CatalogDir = strings.TrimSpace(t.CatalogDir)
	if t.CatalogDir == "" {
		t.CatalogDir = d.CatalogDir
	}
	t.JournalDir = strings.TrimSpace(t.JournalDir)
	t.IndexDB = strings.TrimSpace(t.IndexDB)
}

func (t Tuning) Validate() error {
	if t.PlayersPerSession < MinPlayers || t.PlayersPerSession > MaxPlayers {
		return fmt.Errorf("players_per_session must be in [%d, %d]", MinPlayers, MaxPlayers)
	}
	if t.MaxActiveSessions < 0 {
		return fmt.Errorf("max_active_sessions must be >= 0")
	}
	if t.ReplyTimeoutMs < 0 {
		return fmt.Errorf("reply_timeout_ms must be >= 0")
	}
	if t.HandshakeTimeoutMs < 0 {
		return fmt.Errorf("handshake_timeout_ms must be >= 0")
	}
	return nil
}

func (t Tuning) ReplyTimeout() time.Duration {
	return time.Duration(t.ReplyTimeoutMs) * time.Millisecond
}

func (t Tuning) HandshakeTimeout() time.Duration {
	return time.Duration(t.HandshakeTimeoutMs) * time.Millisecond
}
