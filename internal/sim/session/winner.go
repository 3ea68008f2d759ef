package session

import "inventors.io/internal/sim/model"

// Score is the sum of the values of p's reward tokens.
func Score(p *model.Player) int { return p.Score() }

// DetermineWinner returns the first player with the highest score, in seat
// order. A single remaining player wins regardless of score.
func DetermineWinner(players []*model.Player) (*model.Player, error) {
	switch len(players) {
	case 0:
		return nil, ErrCantDetermineWinner
	case 1:
		return players[0], nil
	}
	winner := players[0]
	best := Score(winner)
	for _, p := range players[1:] {
		if s := Score(p); s > best {
			winner, best = p, s
		}
	}
	return winner, nil
}
