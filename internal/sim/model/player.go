package model

type Player struct {
	ID   string
	Name string
	Team Team

	Inventors           []*Inventor
	CompletedInventions []*Invention
	Rewards             []Reward

	// TurnMarker is set on exactly one player of an active session.
	TurnMarker bool
}

func NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name}
}

func (p *Player) AddInventors(inventors ...*Inventor) {
	p.Inventors = append(p.Inventors, inventors...)
}

func (p *Player) InventorByName(name string) (*Inventor, bool) {
	for _, inv := range p.Inventors {
		if inv.Name == name {
			return inv, true
		}
	}
	return nil, false
}

func (p *Player) BusyInventors() []*Inventor {
	var out []*Inventor
	for _, inv := range p.Inventors {
		if inv.Busy {
			out = append(out, inv)
		}
	}
	return out
}

func (p *Player) FreeInventors() []*Inventor {
	var out []*Inventor
	for _, inv := range p.Inventors {
		if !inv.Busy {
			out = append(out, inv)
		}
	}
	return out
}

func (p *Player) AddReward(r Reward) { p.Rewards = append(p.Rewards, r) }

func (p *Player) AddCompletedInvention(inv *Invention) {
	for _, c := range p.CompletedInventions {
		if c == inv {
			return
		}
	}
	p.CompletedInventions = append(p.CompletedInventions, inv)
}

func (p *Player) GiveTurnMarker()   { p.TurnMarker = true }
func (p *Player) RemoveTurnMarker() { p.TurnMarker = false }

// Score is the sum of the player's reward token values.
func (p *Player) Score() int {
	s := 0
	for _, r := range p.Rewards {
		s += r.Value
	}
	return s
}
