// Package actions validates and applies the two turn actions against session entities.
// Every failure is returned before any state is touched.
package actions

import (
	"errors"
	"fmt"

	"inventors.io/internal/sim/model"
)

var (
	ErrIncompatibleInventor = errors.New("incompatible inventor")
	ErrBusyInventor         = errors.New("busy inventor")
	ErrUnauthorizedAction   = errors.New("unauthorized action")
)

type Kind string

const (
	KindMakeAvailable Kind = "MAKE_AVAILABLE"
	KindWork          Kind = "WORK"
)

// Action is one of MakeAvailableAction or WorkAction.
type Action interface {
	Kind() Kind
	Execute() error
	Describe() string
}

type MakeAvailableAction struct {
	Player *model.Player
}

func (a MakeAvailableAction) Kind() Kind       { return KindMakeAvailable }
func (a MakeAvailableAction) Execute() error   { return MakeAvailable(a.Player) }
func (a MakeAvailableAction) Describe() string { return "make every busy inventor available" }

type WorkAction struct {
	Player    *model.Player
	Inventor  *model.Inventor
	Invention *model.Invention
}

func (a WorkAction) Kind() Kind     { return KindWork }
func (a WorkAction) Execute() error { return Work(a.Player, a.Inventor, a.Invention) }

func (a WorkAction) Describe() string {
	k, inv := a.Inventor.Knowledge, a.Invention
	return fmt.Sprintf("put inventor '%s' %v to work on '%s' (phys %d/%d, chem %d/%d, mech %d/%d, math %d/%d)",
		a.Inventor.Name, k, inv.Name,
		inv.Actual.Phys, inv.Required.Phys,
		inv.Actual.Chem, inv.Required.Chem,
		inv.Actual.Mech, inv.Required.Mech,
		inv.Actual.Math, inv.Required.Math)
}

// MakeAvailable frees every busy inventor of p. It fails if none is busy.
func MakeAvailable(p *model.Player) error {
	busy := p.BusyInventors()
	if len(busy) == 0 {
		return fmt.Errorf("%w: %s has no busy inventor", ErrUnauthorizedAction, p.Name)
	}
	for _, inv := range busy {
		if err := inv.MakeAvailable(); err != nil {
			return err
		}
	}
	return nil
}

// Work applies the inventor's knowledge to the invention on behalf of p and marks the inventor busy.
func Work(p *model.Player, inventor *model.Inventor, invention *model.Invention) error {
	if inventor.Busy {
		return fmt.Errorf("%w: %s", ErrBusyInventor, inventor.Name)
	}
	if !CanWorkOn(inventor, invention) {
		return fmt.Errorf("%w: %s cannot work on %s", ErrIncompatibleInventor, inventor.Name, invention.Name)
	}
	invention.ApplyKnowledge(p.ID, inventor.Knowledge)
	return inventor.MakeBusy()
}

func Grade(inventor *model.Inventor, invention *model.Invention) int {
	return inventor.Grade(invention)
}

func CanWorkOn(inventor *model.Inventor, invention *model.Invention) bool {
	return Grade(inventor, invention) > 0
}
