package model

import (
	"errors"
	"testing"
)

func TestInventor_Grade(t *testing.T) {
	inv := NewInvention("Invention", K(1, 0, 3, 4), 1)

	a := &Inventor{Name: "A", Knowledge: K(0, 0, 0, 0)}
	if a.Grade(inv) != 0 || a.CanWorkOn(inv) {
		t.Fatalf("A grade=%d canWork=%v", a.Grade(inv), a.CanWorkOn(inv))
	}
	b := &Inventor{Name: "B", Knowledge: K(1, 0, 0, 0)}
	if b.Grade(inv) != 1 || !b.CanWorkOn(inv) {
		t.Fatalf("B grade=%d canWork=%v", b.Grade(inv), b.CanWorkOn(inv))
	}

	// Progress on the only matching axis drops the grade to zero.
	inv.ApplyKnowledge("p", K(1, 0, 0, 0))
	if b.CanWorkOn(inv) {
		t.Fatalf("B should not be able to work once physics is done")
	}
}

func TestInventor_BusyTransitions(t *testing.T) {
	i := &Inventor{Name: "Tesla"}
	if err := i.MakeAvailable(); !errors.Is(err, ErrAlreadyAvailable) {
		t.Fatalf("MakeAvailable on free inventor: %v", err)
	}
	if err := i.MakeBusy(); err != nil {
		t.Fatalf("MakeBusy: %v", err)
	}
	if err := i.MakeBusy(); !errors.Is(err, ErrAlreadyBusy) {
		t.Fatalf("MakeBusy twice: %v", err)
	}
	if err := i.MakeAvailable(); err != nil || i.Busy {
		t.Fatalf("MakeAvailable: %v busy=%v", err, i.Busy)
	}
}
