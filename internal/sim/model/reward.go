package model

import (
	"fmt"
	"math/rand"
)

type RewardType string

const (
	RewardCard    RewardType = "CARD"
	RewardVictory RewardType = "VICTORY"
)

// Victory token values are drawn uniformly from 1..MaxVictoryValue.
const MaxVictoryValue = 3

type Reward struct {
	Type  RewardType `json:"type"`
	Value int        `json:"value"`
}

func NewVictoryReward(rng *rand.Rand) Reward {
	return Reward{Type: RewardVictory, Value: rng.Intn(MaxVictoryValue) + 1}
}

func (r Reward) String() string {
	return fmt.Sprintf("%s (value: %d)", r.Type, r.Value)
}
