// Package strategy holds the bot-side decision makers. They only see what the
// server sends over the wire.
package strategy

import (
	"fmt"
	"math/rand"
	"sort"

	"inventors.io/internal/protocol"
)

// State is the bot's last known view of the game.
type State struct {
	PlayerID string
	Era      int
	Roster   []protocol.PlayerState
	Table    []protocol.InventionState
}

// Me returns the bot's own roster entry.
func (s State) Me() (protocol.PlayerState, bool) {
	for _, p := range s.Roster {
		if p.PlayerID == s.PlayerID {
			return p, true
		}
	}
	return protocol.PlayerState{}, false
}

type Strategy interface {
	ChooseAction(s State) protocol.ActionReply
	ChooseReward(offer protocol.RewardOfferMsg) int
}

type Factory func(rng *rand.Rand) Strategy

var registry = map[string]Factory{
	"random":         func(rng *rand.Rand) Strategy { return &Random{rng: rng} },
	"victory_points": func(*rand.Rand) Strategy { return VictoryPoints{} },
	"steal":          func(*rand.Rand) Strategy { return Steal{} },
}

func New(name string, rng *rand.Rand) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %v)", name, Names())
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return f(rng), nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Grade mirrors the server's inventor grade: knowledge weighted by what the
// invention still lacks.
func Grade(inv protocol.InventorState, target protocol.InventionState) int {
	r, a := target.Required, target.Actual
	return inv.Knowledge.Phys*(r.Phys-a.Phys) +
		inv.Knowledge.Chem*(r.Chem-a.Chem) +
		inv.Knowledge.Mech*(r.Mech-a.Mech) +
		inv.Knowledge.Math*(r.Math-a.Math)
}

// Worth is the victory points an invention is currently worth.
func Worth(inv protocol.InventionState) int {
	v := inv.Era
	for _, r := range inv.Rewards {
		v += r.Value
	}
	return v
}

func makeAvailable() protocol.ActionReply {
	return protocol.ActionReply{Kind: protocol.ActionMakeAvailable}
}

func work(inventor, invention string) protocol.ActionReply {
	return protocol.ActionReply{Kind: protocol.ActionWork, Inventor: inventor, Invention: invention}
}

func freeInventors(p protocol.PlayerState) []protocol.InventorState {
	var out []protocol.InventorState
	for _, inv := range p.Inventors {
		if !inv.Busy {
			out = append(out, inv)
		}
	}
	return out
}

func open(table []protocol.InventionState) []protocol.InventionState {
	var out []protocol.InventionState
	for _, inv := range table {
		if !inv.Completed {
			out = append(out, inv)
		}
	}
	return out
}

// bestInventor picks the free inventor with the highest positive grade.
// Ties keep the first in roster order.
func bestInventor(p protocol.PlayerState, target protocol.InventionState) (protocol.InventorState, bool) {
	var best protocol.InventorState
	bestGrade := 0
	for _, inv := range freeInventors(p) {
		if g := Grade(inv, target); g > bestGrade {
			best, bestGrade = inv, g
		}
	}
	return best, bestGrade > 0
}

// byWorth orders inventions by victory points, most valuable first. Ties keep
// table order.
func byWorth(inventions []protocol.InventionState) []protocol.InventionState {
	out := append([]protocol.InventionState(nil), inventions...)
	sort.SliceStable(out, func(i, j int) bool { return Worth(out[i]) > Worth(out[j]) })
	return out
}

// highestReward returns the index of the first reward with the highest value.
func highestReward(rewards []protocol.Reward) int {
	best := 0
	for i, r := range rewards {
		if r.Value > rewards[best].Value {
			best = i
		}
	}
	return best
}

// workOnFirst works on the first candidate one of the free inventors can
// improve, or frees inventors when none can. Candidates always cover the open
// table, so when nothing is workable and no inventor is busy there is no legal
// move at all; the bot answers MAKE_AVAILABLE and takes the kick.
func workOnFirst(s State, candidates []protocol.InventionState) protocol.ActionReply {
	me, found := s.Me()
	if !found {
		return makeAvailable()
	}
	for _, target := range candidates {
		if inv, ok := bestInventor(me, target); ok {
			return work(inv.Name, target.Name)
		}
	}
	return makeAvailable()
}
