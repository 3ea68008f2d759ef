package session

import (
	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/model"
)

func knowledgeView(k model.Knowledge) protocol.Knowledge {
	return protocol.Knowledge{Phys: k.Phys, Chem: k.Chem, Mech: k.Mech, Math: k.Math}
}

func rewardViews(rs []model.Reward) []protocol.Reward {
	out := make([]protocol.Reward, 0, len(rs))
	for _, r := range rs {
		out = append(out, protocol.Reward{Type: string(r.Type), Value: r.Value})
	}
	return out
}

func inventionView(inv *model.Invention) protocol.InventionState {
	contrib := make(map[string]int, len(inv.Contributions))
	for id, n := range inv.Contributions {
		contrib[id] = n
	}
	return protocol.InventionState{
		Name:          inv.Name,
		Era:           inv.Era,
		Required:      knowledgeView(inv.Required),
		Actual:        knowledgeView(inv.Actual),
		Completed:     inv.IsCompleted(),
		Contributions: contrib,
		Rewards:       rewardViews(inv.Rewards),
	}
}

func playerView(p *model.Player) protocol.PlayerState {
	ps := protocol.PlayerState{
		PlayerID:   p.ID,
		Name:       p.Name,
		Team:       string(p.Team),
		TurnMarker: p.TurnMarker,
		Score:      Score(p),
		Completed:  make([]string, 0, len(p.CompletedInventions)),
		Inventors:  make([]protocol.InventorState, 0, len(p.Inventors)),
	}
	for _, inv := range p.CompletedInventions {
		ps.Completed = append(ps.Completed, inv.Name)
	}
	for _, i := range p.Inventors {
		ps.Inventors = append(ps.Inventors, protocol.InventorState{
			Name:      i.Name,
			Team:      string(i.Team),
			Knowledge: knowledgeView(i.Knowledge),
			Busy:      i.Busy,
		})
	}
	return ps
}

// roster is the merged player -> inventors view, in seat order.
func (s *Session) roster() []protocol.PlayerState {
	out := make([]protocol.PlayerState, 0, len(s.seats))
	for _, seat := range s.seats {
		out = append(out, playerView(seat.Player))
	}
	return out
}

func (s *Session) tableView() []protocol.InventionState {
	out := make([]protocol.InventionState, 0, len(s.table))
	for _, inv := range s.table {
		out = append(out, inventionView(inv))
	}
	return out
}
