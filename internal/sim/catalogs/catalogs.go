package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"inventors.io/internal/sim/model"
)

var (
	ErrDuplicateInvention = errors.New("duplicate invention")
	ErrDuplicateInventor  = errors.New("duplicate inventor")
)

// Eras is the number of sequential game phases.
const Eras = 3

type Catalogs struct {
	Inventions InventionCatalog
	Inventors  InventorCatalog
}

type InventionCatalog struct {
	Defs   []InventionDef
	ByName map[string]InventionDef
	Digest string
}

type InventionDef struct {
	Name     string          `json:"name"`
	Era      int             `json:"era"`
	Required model.Knowledge `json:"required"`
}

type InventorCatalog struct {
	Defs   []InventorDef
	ByName map[string]InventorDef
	Digest string
}

type InventorDef struct {
	Name      string          `json:"name"`
	Team      model.Team      `json:"team"`
	Knowledge model.Knowledge `json:"knowledge"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadInventions(filepath.Join(configDir, "inventions.json"), &c.Inventions); err != nil {
		return nil, err
	}
	if err := loadInventors(filepath.Join(configDir, "inventors.json"), &c.Inventors); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadInventions(path string, out *InventionCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []InventionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("inventions.json: %w", err)
	}
	out.Defs = defs
	out.ByName = map[string]InventionDef{}
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("inventions.json: empty name")
		}
		if d.Era < 1 || d.Era > Eras {
			return fmt.Errorf("inventions.json: %s: era %d out of range", d.Name, d.Era)
		}
		if !d.Required.Valid() || d.Required.Total() == 0 {
			return fmt.Errorf("inventions.json: %s: bad requirement %v", d.Name, d.Required)
		}
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("inventions.json: %w: %s", ErrDuplicateInvention, d.Name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}

func loadInventors(path string, out *InventorCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []InventorDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("inventors.json: %w", err)
	}
	out.Defs = defs
	out.ByName = map[string]InventorDef{}
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("inventors.json: empty name")
		}
		if d.Team == "" {
			return fmt.Errorf("inventors.json: %s: missing team", d.Name)
		}
		if !d.Knowledge.Valid() {
			return fmt.Errorf("inventors.json: %s: bad knowledge %v", d.Name, d.Knowledge)
		}
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("inventors.json: %w: %s", ErrDuplicateInventor, d.Name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}
