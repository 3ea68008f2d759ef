package model

import "math/rand"

// RewardsPerInvention is the pool size once an invention is on the table:
// one CARD plus RewardsPerInvention-1 VICTORY tokens.
const RewardsPerInvention = 3

type Invention struct {
	Name     string
	Era      int
	Required Knowledge
	Actual   Knowledge

	// Contributions is the ledger: player id -> cumulative knowledge units applied.
	Contributions map[string]int
	Rewards       []Reward
}

// NewInvention creates an invention with an empty progress vector and its CARD token.
// The card is worth the invention's victory points at creation time.
func NewInvention(name string, required Knowledge, era int) *Invention {
	inv := &Invention{
		Name:          name,
		Era:           era,
		Required:      required,
		Contributions: map[string]int{},
	}
	inv.Rewards = append(inv.Rewards, Reward{Type: RewardCard, Value: inv.VictoryPoints()})
	return inv
}

// DrawRewardTokens adds the random VICTORY tokens; called when the invention is revealed.
func (inv *Invention) DrawRewardTokens(rng *rand.Rand) {
	for i := 0; i < RewardsPerInvention-1; i++ {
		inv.Rewards = append(inv.Rewards, NewVictoryReward(rng))
	}
}

func (inv *Invention) VictoryPoints() int {
	v := inv.Era
	for _, r := range inv.Rewards {
		v += r.Value
	}
	return v
}

func (inv *Invention) Remaining() Knowledge { return inv.Required.Sub(inv.Actual) }

func (inv *Invention) IsCompleted() bool { return inv.Actual == inv.Required }

// ApplyKnowledge advances each axis independently by at most knowledge[axis] units,
// never past the requirement, crediting every unit to playerID. It returns the units applied.
func (inv *Invention) ApplyKnowledge(playerID string, knowledge Knowledge) int {
	applied := 0
	for _, a := range Axes {
		for n := 0; n < knowledge.Get(a) && inv.Actual.Get(a) < inv.Required.Get(a); n++ {
			inv.Actual.add(a, 1)
			applied++
		}
	}
	if applied > 0 {
		if inv.Contributions == nil {
			inv.Contributions = map[string]int{}
		}
		inv.Contributions[playerID] += applied
	}
	return applied
}

// Contribution returns the ledger entry for playerID and whether one exists.
func (inv *Invention) Contribution(playerID string) (int, bool) {
	n, ok := inv.Contributions[playerID]
	return n, ok
}

// TakeReward removes and returns Rewards[i].
func (inv *Invention) TakeReward(i int) (Reward, bool) {
	if i < 0 || i >= len(inv.Rewards) {
		return Reward{}, false
	}
	r := inv.Rewards[i]
	inv.Rewards = append(inv.Rewards[:i:i], inv.Rewards[i+1:]...)
	return r, true
}
