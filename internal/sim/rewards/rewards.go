// Package rewards ranks the contributors of a completed invention and runs the
// offer/await/assign cycle over them.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"inventors.io/internal/sim/model"
)

// ErrPlayerNotResponding covers a timed out, malformed or out-of-range reply.
var ErrPlayerNotResponding = errors.New("player not responding")

// Contributors returns the players of seats holding a ledger entry on inv, by
// descending contribution. On an exact tie the turn marker holder goes first;
// other ties keep seat order.
func Contributors(seats []*model.Player, inv *model.Invention, marker *model.Player) []*model.Player {
	out := make([]*model.Player, 0, len(seats))
	for _, p := range seats {
		if _, ok := inv.Contribution(p.ID); ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, _ := inv.Contribution(out[i].ID)
		cj, _ := inv.Contribution(out[j].ID)
		if ci != cj {
			return ci > cj
		}
		return out[i] == marker && out[j] != marker
	})
	return out
}

// Chooser asks a player for an index into the offered rewards.
type Chooser func(ctx context.Context, p *model.Player, inv *model.Invention, offered []model.Reward) (int, error)

// Kicker removes a player from the session.
type Kicker func(p *model.Player, cause error)

type Allocation struct {
	PlayerID string       `json:"player_id"`
	Player   string       `json:"player"`
	Reward   model.Reward `json:"reward"`
}

type Allocator struct {
	Choose Chooser
	Kick   Kicker
	Log    *log.Logger
}

// Allocate serves each contributor in order. A contributor whose reply is not
// a valid index is kicked and the pool is left untouched for the next one.
// Contributors past the end of an emptied pool receive nothing.
// Only a done ctx aborts the cycle.
func (a *Allocator) Allocate(ctx context.Context, inv *model.Invention, contributors []*model.Player) ([]Allocation, error) {
	var out []Allocation
	for _, p := range contributors {
		if len(inv.Rewards) == 0 {
			a.logf("%s gets nothing for %s: reward pool is empty", p.Name, inv.Name)
			continue
		}
		n, _ := inv.Contribution(p.ID)
		a.logf("%s picks a reward for contributing %d unit(s) to %s", p.Name, n, inv.Name)

		offered := append([]model.Reward(nil), inv.Rewards...)
		idx, err := a.Choose(ctx, p, inv, offered)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		var reward model.Reward
		if err == nil {
			var ok bool
			if reward, ok = inv.TakeReward(idx); !ok {
				err = fmt.Errorf("reward index %d out of range [0,%d)", idx, len(inv.Rewards))
			}
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPlayerNotResponding, p.Name, err)
			a.logf("%v", err)
			if a.Kick != nil {
				a.Kick(p, err)
			}
			continue
		}

		p.AddReward(reward)
		if reward.Type == model.RewardCard {
			p.AddCompletedInvention(inv)
		}
		a.logf("%s took %s", p.Name, reward)
		out = append(out, Allocation{PlayerID: p.ID, Player: p.Name, Reward: reward})
	}
	return out, nil
}

func (a *Allocator) logf(format string, args ...any) {
	if a.Log != nil {
		a.Log.Printf(format, args...)
	}
}
