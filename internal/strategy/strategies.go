package strategy

import (
	"math/rand"

	"inventors.io/internal/protocol"
)

// Random works on a random invention when it can and otherwise, or on a coin
// flip once some inventors are busy, makes everyone available again.
type Random struct {
	rng *rand.Rand
}

func (r *Random) ChooseAction(s State) protocol.ActionReply {
	me, ok := s.Me()
	if !ok {
		return makeAvailable()
	}
	free := freeInventors(me)
	if len(free) == 0 {
		return makeAvailable()
	}
	if len(free) < len(me.Inventors) && r.rng.Intn(2) == 0 {
		return makeAvailable()
	}

	table := open(s.Table)
	if len(table) == 0 {
		return makeAvailable()
	}
	start := r.rng.Intn(len(table))
	for i := range table {
		target := table[(start+i)%len(table)]
		var able []protocol.InventorState
		for _, inv := range free {
			if Grade(inv, target) > 0 {
				able = append(able, inv)
			}
		}
		if len(able) > 0 {
			return work(able[r.rng.Intn(len(able))].Name, target.Name)
		}
	}
	return makeAvailable()
}

func (r *Random) ChooseReward(offer protocol.RewardOfferMsg) int {
	if len(offer.Rewards) == 0 {
		return 0
	}
	return r.rng.Intn(len(offer.Rewards))
}

// VictoryPoints goes for the most valuable open invention it can work on.
type VictoryPoints struct{}

func (VictoryPoints) ChooseAction(s State) protocol.ActionReply {
	return workOnFirst(s, byWorth(open(s.Table)))
}

func (VictoryPoints) ChooseReward(offer protocol.RewardOfferMsg) int {
	return highestReward(offer.Rewards)
}

// Steal prefers the most valuable open invention it has not contributed to
// yet, so it lands on other players' ledgers. It falls back to the rest of
// the table.
type Steal struct{}

func (Steal) ChooseAction(s State) protocol.ActionReply {
	table := open(s.Table)
	var fresh []protocol.InventionState
	for _, inv := range table {
		if _, mine := inv.Contributions[s.PlayerID]; !mine {
			fresh = append(fresh, inv)
		}
	}
	return workOnFirst(s, append(byWorth(fresh), byWorth(table)...))
}

func (Steal) ChooseReward(offer protocol.RewardOfferMsg) int {
	return highestReward(offer.Rewards)
}
