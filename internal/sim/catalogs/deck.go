package catalogs

import (
	"math/rand"
	"sync"

	"inventors.io/internal/sim/model"
)

// Provider hands out decks over one loaded catalog. It is shared by every
// session of the process.
type Provider struct {
	mu    sync.Mutex
	cat   *Catalogs
	decks int
}

func NewProvider(c *Catalogs) *Provider {
	return &Provider{cat: c}
}

func (p *Provider) Catalogs() *Catalogs { return p.cat }

// NewDeck returns a fresh draw-once deck. rng seeds the reward tokens of drawn inventions.
func (p *Provider) NewDeck(rng *rand.Rand) *Deck {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decks++
	return &Deck{
		cat:        p.cat,
		rng:        rng,
		inventions: map[string]bool{},
		inventors:  map[string]bool{},
	}
}

// DecksIssued is the number of decks handed out so far.
func (p *Provider) DecksIssued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decks
}

// Deck issues every catalog item at most once. Entities it returns are fresh
// copies owned by the caller.
type Deck struct {
	mu         sync.Mutex
	cat        *Catalogs
	rng        *rand.Rand
	inventions map[string]bool
	inventors  map[string]bool
}

// DrawInvention returns the next undrawn invention of era in catalog order,
// with its victory tokens already drawn.
func (d *Deck) DrawInvention(era int) (*model.Invention, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, def := range d.cat.Inventions.Defs {
		if def.Era != era || d.inventions[def.Name] {
			continue
		}
		d.inventions[def.Name] = true
		inv := model.NewInvention(def.Name, def.Required, def.Era)
		inv.DrawRewardTokens(d.rng)
		return inv, true
	}
	return nil, false
}

// DrawInventorTeam returns every undrawn inventor of team. It is empty once
// the team has been drawn.
func (d *Deck) DrawInventorTeam(team model.Team) []*model.Inventor {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*model.Inventor
	for _, def := range d.cat.Inventors.Defs {
		if def.Team != team || d.inventors[def.Name] {
			continue
		}
		d.inventors[def.Name] = true
		out = append(out, &model.Inventor{Name: def.Name, Knowledge: def.Knowledge, Team: def.Team})
	}
	return out
}

// Remaining counts undrawn inventions of era.
func (d *Deck) Remaining(era int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, def := range d.cat.Inventions.Defs {
		if def.Era == era && !d.inventions[def.Name] {
			n++
		}
	}
	return n
}
