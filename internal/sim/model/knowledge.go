package model

import "fmt"

// Axis indexes the four knowledge domains.
type Axis int

const (
	AxisPhys Axis = iota
	AxisChem
	AxisMech
	AxisMath
)

// Axes lists every axis in canonical order.
var Axes = [...]Axis{AxisPhys, AxisChem, AxisMech, AxisMath}

func (a Axis) String() string {
	switch a {
	case AxisPhys:
		return "physical"
	case AxisChem:
		return "chemical"
	case AxisMech:
		return "mechanical"
	case AxisMath:
		return "mathematical"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Knowledge is a 4-axis capability or requirement vector. All components are >= 0.
type Knowledge struct {
	Phys int `json:"phys"`
	Chem int `json:"chem"`
	Mech int `json:"mech"`
	Math int `json:"math"`
}

func K(phys, chem, mech, math int) Knowledge {
	return Knowledge{Phys: phys, Chem: chem, Mech: mech, Math: math}
}

func (k Knowledge) Get(a Axis) int {
	switch a {
	case AxisPhys:
		return k.Phys
	case AxisChem:
		return k.Chem
	case AxisMech:
		return k.Mech
	case AxisMath:
		return k.Math
	}
	return 0
}

func (k *Knowledge) add(a Axis, n int) {
	switch a {
	case AxisPhys:
		k.Phys += n
	case AxisChem:
		k.Chem += n
	case AxisMech:
		k.Mech += n
	case AxisMath:
		k.Math += n
	}
}

func (k Knowledge) Add(o Knowledge) Knowledge {
	return Knowledge{Phys: k.Phys + o.Phys, Chem: k.Chem + o.Chem, Mech: k.Mech + o.Mech, Math: k.Math + o.Math}
}

func (k Knowledge) Sub(o Knowledge) Knowledge {
	return Knowledge{Phys: k.Phys - o.Phys, Chem: k.Chem - o.Chem, Mech: k.Mech - o.Mech, Math: k.Math - o.Math}
}

// LessOrEqual reports whether every axis of k is <= the same axis of o.
func (k Knowledge) LessOrEqual(o Knowledge) bool {
	return k.Phys <= o.Phys && k.Chem <= o.Chem && k.Mech <= o.Mech && k.Math <= o.Math
}

func (k Knowledge) Total() int { return k.Phys + k.Chem + k.Mech + k.Math }

func (k Knowledge) Valid() bool {
	return k.Phys >= 0 && k.Chem >= 0 && k.Mech >= 0 && k.Math >= 0
}

func (k Knowledge) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", k.Phys, k.Chem, k.Mech, k.Math)
}
