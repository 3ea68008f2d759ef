package session

import (
	"time"

	"inventors.io/internal/sim/model"
	"inventors.io/internal/sim/rewards"
)

// Recorder observes a session from its own goroutine. Implementations must not block for long.
type Recorder interface {
	SessionStarted(e StartEvent)
	TurnPlayed(e TurnEvent)
	EraAdvanced(e EraEvent)
	PlayerKicked(e KickEvent)
	SessionEnded(r Result)
}

type SeatInfo struct {
	PlayerID string     `json:"player_id"`
	Name     string     `json:"name"`
	Team     model.Team `json:"team"`
}

type StartEvent struct {
	SessionID string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	Seats     []SeatInfo `json:"seats"`
	Table     []string   `json:"table"`
}

type TurnEvent struct {
	SessionID   string               `json:"session_id"`
	Turn        int                  `json:"turn"`
	Era         int                  `json:"era"`
	PlayerID    string               `json:"player_id"`
	Kind        string               `json:"kind"`
	Description string               `json:"description"`
	Invention   string               `json:"invention,omitempty"`
	Completed   bool                 `json:"completed,omitempty"`
	Allocations []rewards.Allocation `json:"allocations,omitempty"`
}

type EraEvent struct {
	SessionID string   `json:"session_id"`
	Turn      int      `json:"turn"`
	Era       int      `json:"era"`
	Table     []string `json:"table"`
}

type KickEvent struct {
	SessionID string `json:"session_id"`
	Turn      int    `json:"turn"`
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

type Standing struct {
	PlayerID  string     `json:"player_id"`
	Name      string     `json:"name"`
	Team      model.Team `json:"team"`
	Score     int        `json:"score"`
	Completed int        `json:"completed"`
	Winner    bool       `json:"winner"`
}

type Result struct {
	SessionID string     `json:"session_id"`
	EndedAt   time.Time  `json:"ended_at"`
	Era       int        `json:"era"`
	Turns     int        `json:"turns"`
	Kicks     int        `json:"kicks"`
	WinnerID  string     `json:"winner_id,omitempty"`
	Aborted   bool       `json:"aborted,omitempty"`
	Standings []Standing `json:"standings"`
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(StartEvent) {}
func (nopRecorder) TurnPlayed(TurnEvent)      {}
func (nopRecorder) EraAdvanced(EraEvent)      {}
func (nopRecorder) PlayerKicked(KickEvent)    {}
func (nopRecorder) SessionEnded(Result)       {}

// Multi fans every event out to recs in order.
func Multi(recs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) SessionStarted(e StartEvent) {
	for _, r := range m {
		r.SessionStarted(e)
	}
}

func (m multiRecorder) TurnPlayed(e TurnEvent) {
	for _, r := range m {
		r.TurnPlayed(e)
	}
}

func (m multiRecorder) EraAdvanced(e EraEvent) {
	for _, r := range m {
		r.EraAdvanced(e)
	}
}

func (m multiRecorder) PlayerKicked(e KickEvent) {
	for _, r := range m {
		r.PlayerKicked(e)
	}
}

func (m multiRecorder) SessionEnded(res Result) {
	for _, r := range m {
		r.SessionEnded(res)
	}
}
