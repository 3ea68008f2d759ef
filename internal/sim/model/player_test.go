package model

import "testing"

func TestPlayer_InventorQueries(t *testing.T) {
	p := NewPlayer("id-1", "Ada")
	p.AddInventors(
		&Inventor{Name: "Einstein", Knowledge: K(1, 0, 0, 1)},
		&Inventor{Name: "Edison", Knowledge: K(1, 0, 1, 0), Busy: true},
	)

	if _, ok := p.InventorByName("Curie"); ok {
		t.Fatalf("found inventor the player does not own")
	}
	if got, ok := p.InventorByName("Edison"); !ok || got.Name != "Edison" {
		t.Fatalf("InventorByName: %v %v", got, ok)
	}
	if n := len(p.BusyInventors()); n != 1 {
		t.Fatalf("busy=%d want 1", n)
	}
	if n := len(p.FreeInventors()); n != 1 {
		t.Fatalf("free=%d want 1", n)
	}
}

func TestPlayer_ScoreAndCompleted(t *testing.T) {
	p := NewPlayer("id-1", "Ada")
	p.AddReward(Reward{Type: RewardVictory, Value: 5})
	p.AddReward(Reward{Type: RewardVictory, Value: 2})
	p.AddReward(Reward{Type: RewardCard, Value: 1})
	if p.Score() != 8 {
		t.Fatalf("score=%d want 8", p.Score())
	}

	inv := NewInvention("Fire", K(3, 1, 0, 1), 1)
	p.AddCompletedInvention(inv)
	p.AddCompletedInvention(inv)
	if len(p.CompletedInventions) != 1 {
		t.Fatalf("completed=%d want 1", len(p.CompletedInventions))
	}
}
