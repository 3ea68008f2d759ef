package model

import (
	"math/rand"
	"testing"
)

func TestNewInvention_CardWorthEra(t *testing.T) {
	inv := NewInvention("Fire", K(3, 1, 0, 1), 2)
	if len(inv.Rewards) != 1 || inv.Rewards[0].Type != RewardCard || inv.Rewards[0].Value != 2 {
		t.Fatalf("rewards=%v want single CARD worth 2", inv.Rewards)
	}
	if inv.IsCompleted() {
		t.Fatalf("fresh invention should not be completed")
	}
}

func TestInvention_DrawRewardTokens(t *testing.T) {
	inv := NewInvention("Bow", K(1, 0, 2, 2), 1)
	inv.DrawRewardTokens(rand.New(rand.NewSource(7)))
	if len(inv.Rewards) != RewardsPerInvention {
		t.Fatalf("rewards=%d want %d", len(inv.Rewards), RewardsPerInvention)
	}
	for _, r := range inv.Rewards[1:] {
		if r.Type != RewardVictory || r.Value < 1 || r.Value > MaxVictoryValue {
			t.Fatalf("bad victory token: %v", r)
		}
	}
}

func TestInvention_ApplyKnowledgeCompletes(t *testing.T) {
	inv := NewInvention("Invention", K(1, 2, 3, 4), 1)
	if got := inv.ApplyKnowledge("p1", K(1, 2, 3, 4)); got != 10 {
		t.Fatalf("applied=%d want 10", got)
	}
	if !inv.IsCompleted() {
		t.Fatalf("expected completed: actual=%v", inv.Actual)
	}
}

func TestInvention_ApplyKnowledgeNeverOverflows(t *testing.T) {
	inv := NewInvention("Invention", K(1, 2, 3, 4), 1)
	inv.ApplyKnowledge("p1", K(5, 5, 5, 5))
	inv.ApplyKnowledge("p1", K(5, 5, 5, 5))
	if inv.Actual != inv.Required {
		t.Fatalf("actual=%v required=%v", inv.Actual, inv.Required)
	}
	if n, _ := inv.Contribution("p1"); n != 10 {
		t.Fatalf("contribution=%d want 10", n)
	}
}

func TestInvention_ZeroKnowledgeLeavesNoLedgerEntry(t *testing.T) {
	inv := NewInvention("Invention", K(1, 2, 3, 4), 1)
	if got := inv.ApplyKnowledge("p1", Knowledge{}); got != 0 {
		t.Fatalf("applied=%d want 0", got)
	}
	if _, ok := inv.Contribution("p1"); ok {
		t.Fatalf("zero work must not create a ledger entry")
	}
	if inv.IsCompleted() {
		t.Fatalf("unexpected completion")
	}
}

func TestInvention_PlayerContributions(t *testing.T) {
	inv := NewInvention("Invention", K(1, 2, 3, 4), 1)
	inv.ApplyKnowledge("p1", K(0, 1, 2, 3))
	inv.ApplyKnowledge("p2", K(3, 2, 1, 0))
	inv.ApplyKnowledge("p1", K(4, 4, 4, 4))

	if n, _ := inv.Contribution("p1"); n != 7 {
		t.Fatalf("p1 contribution=%d want 7", n)
	}
	if n, _ := inv.Contribution("p2"); n != 3 {
		t.Fatalf("p2 contribution=%d want 3", n)
	}
}

func TestInvention_TakeReward(t *testing.T) {
	inv := NewInvention("Canoe", K(2, 0, 1, 2), 1)
	inv.Rewards = append(inv.Rewards, Reward{Type: RewardVictory, Value: 3}, Reward{Type: RewardVictory, Value: 1})
	offered := inv.Rewards

	r, ok := inv.TakeReward(1)
	if !ok || r.Value != 3 {
		t.Fatalf("took %v ok=%v", r, ok)
	}
	if len(inv.Rewards) != 2 || inv.Rewards[1].Value != 1 {
		t.Fatalf("remaining=%v", inv.Rewards)
	}
	if offered[1].Value != 3 {
		t.Fatalf("previously offered slice must not be mutated: %v", offered)
	}
	if _, ok := inv.TakeReward(2); ok {
		t.Fatalf("out of range index accepted")
	}
	if _, ok := inv.TakeReward(-1); ok {
		t.Fatalf("negative index accepted")
	}
}
