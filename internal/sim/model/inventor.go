package model

import "errors"

var (
	ErrAlreadyBusy      = errors.New("inventor already busy")
	ErrAlreadyAvailable = errors.New("inventor already available")
)

type Team string

const (
	TeamRed    Team = "RED"
	TeamYellow Team = "YELLOW"
	TeamBlue   Team = "BLUE"
	TeamGreen  Team = "GREEN"
)

// Teams is the assignment order used when seating players.
var Teams = [...]Team{TeamRed, TeamYellow, TeamBlue, TeamGreen}

type Inventor struct {
	Name      string
	Knowledge Knowledge
	Team      Team
	Busy      bool
}

func (i *Inventor) MakeBusy() error {
	if i.Busy {
		return ErrAlreadyBusy
	}
	i.Busy = true
	return nil
}

func (i *Inventor) MakeAvailable() error {
	if !i.Busy {
		return ErrAlreadyAvailable
	}
	i.Busy = false
	return nil
}

// Grade is Σ knowledge[axis] * remaining[axis] for the invention.
func (i *Inventor) Grade(inv *Invention) int {
	remaining := inv.Remaining()
	g := 0
	for _, a := range Axes {
		g += i.Knowledge.Get(a) * remaining.Get(a)
	}
	return g
}

func (i *Inventor) CanWorkOn(inv *Invention) bool { return i.Grade(inv) > 0 }
