// Package session runs one game from setup to the winner announcement.
//
// All session state is owned by the goroutine executing Run. Transport
// goroutines only ever fill a bridge slot; everything else happens here.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/actions"
	"inventors.io/internal/sim/bridge"
	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/model"
	"inventors.io/internal/sim/rewards"
)

// TableExtra is added to the player count to size each era's table.
const TableExtra = 3

// Conn is the transport handle of one seated player.
type Conn interface {
	bridge.Requester
	ID() string
	Send(msg any) error
	// Kick sends KICKED and tears the connection down.
	Kick(code, reason string)
}

// Deck is the per-session draw-once view of the catalog.
type Deck interface {
	DrawInvention(era int) (*model.Invention, bool)
	DrawInventorTeam(team model.Team) []*model.Inventor
}

type Entrant struct {
	Conn Conn
	Name string
}

type Seat struct {
	Conn   Conn
	Player *model.Player
}

type Config struct {
	ID       string
	Deck     Deck
	Log      *log.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Status is a point-in-time summary safe to read from other goroutines.
type Status struct {
	ID      string    `json:"id"`
	Phase   string    `json:"phase"`
	Era     int       `json:"era"`
	Turn    int       `json:"turn"`
	Players []string  `json:"players"`
	Current string    `json:"current,omitempty"`
	Started time.Time `json:"started"`
}

type Session struct {
	id   string
	deck Deck
	log  *log.Logger
	rec  Recorder
	now  func() time.Time

	seats          []*Seat
	cursor         int
	currentRemoved bool
	table          []*model.Invention
	tableSize      int
	era            int
	turn           int
	kicks          int

	bridge bridge.Bridge
	alloc  *rewards.Allocator

	statusMu    sync.Mutex
	status      Status
	statusPhase Phase
}

// New seats the entrants in order, assigns teams and their inventors, and
// lays out the first era's table. The first seat holds the turn marker.
func New(cfg Config, entrants []Entrant) (*Session, error) {
	if len(entrants) == 0 {
		return nil, errors.New("session needs at least one player")
	}
	if len(entrants) > len(model.Teams) {
		return nil, fmt.Errorf("session supports at most %d players", len(model.Teams))
	}
	if cfg.Deck == nil {
		return nil, errors.New("session needs a deck")
	}
	s := &Session{
		id:        cfg.ID,
		deck:      cfg.Deck,
		log:       cfg.Log,
		rec:       cfg.Recorder,
		now:       cfg.Now,
		era:       1,
		tableSize: len(entrants) + TableExtra,
	}
	if s.log == nil {
		s.log = log.New(log.Writer(), fmt.Sprintf("[session %s] ", cfg.ID), log.LstdFlags|log.Lmicroseconds)
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	seen := map[string]bool{}
	for i, e := range entrants {
		id := e.Conn.ID()
		if seen[id] {
			return nil, fmt.Errorf("player %s seated twice", id)
		}
		seen[id] = true

		p := model.NewPlayer(id, e.Name)
		p.Team = model.Teams[i]
		inventors := s.deck.DrawInventorTeam(p.Team)
		if len(inventors) == 0 {
			return nil, fmt.Errorf("no inventors left for team %s", p.Team)
		}
		p.AddInventors(inventors...)
		s.seats = append(s.seats, &Seat{Conn: e.Conn, Player: p})
	}
	s.seats[0].Player.GiveTurnMarker()
	s.drawTable()

	s.alloc = &rewards.Allocator{Choose: s.chooseReward, Kick: s.kickPlayer, Log: s.log}
	s.status = Status{ID: s.id, Started: s.now()}
	s.refreshStatus(PhaseSetup)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	st := s.status
	st.Players = append([]string(nil), s.status.Players...)
	return st
}

// Players returns the seated players in session order. Only safe from the session goroutine or after Run returns.
func (s *Session) Players() []*model.Player {
	out := make([]*model.Player, 0, len(s.seats))
	for _, seat := range s.seats {
		out = append(out, seat.Player)
	}
	return out
}

// Table returns the inventions of the current era. Same ownership rule as Players.
func (s *Session) Table() []*model.Invention { return s.table }

func (s *Session) Era() int { return s.era }

// Run plays turns until the session is finished or ctx is done, then
// announces the outcome. It returns the final result.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.start()

	for !s.Finished() {
		if err := ctx.Err(); err != nil {
			return s.abort(protocol.ErrSessionAborted, "server shutting down"), err
		}
		if err := s.playTurn(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.abort(protocol.ErrSessionAborted, "server shutting down"), ctxErr
			}
			s.log.Printf("turn loop aborted: %v", err)
			return s.abort(protocol.ErrInternal, err.Error()), err
		}
	}
	return s.terminate(), nil
}

func (s *Session) start() {
	seats := make([]SeatInfo, 0, len(s.seats))
	for _, seat := range s.seats {
		seats = append(seats, SeatInfo{PlayerID: seat.Player.ID, Name: seat.Player.Name, Team: seat.Player.Team})
	}
	s.rec.SessionStarted(StartEvent{SessionID: s.id, StartedAt: s.now(), Seats: seats, Table: s.tableNames()})

	roster, table := s.roster(), s.tableView()
	for _, seat := range s.seats {
		s.send(seat, protocol.GameStartedMsg{
			Type:            protocol.TypeGameStarted,
			ProtocolVersion: protocol.Version,
			SessionID:       s.id,
			PlayerID:        seat.Player.ID,
			Team:            string(seat.Player.Team),
			Era:             s.era,
			Roster:          roster,
			Table:           table,
		})
	}
	s.log.Printf("session started with %d players, era %d table: %v", len(s.seats), s.era, s.tableNames())
}

// playTurn runs one AwaitingAction..handoff cycle. Kicks are handled here;
// only bookkeeping failures and ctx cancellation are returned.
func (s *Session) playTurn(ctx context.Context) error {
	cur, err := s.current()
	if err != nil {
		return err
	}
	s.turn++
	s.refreshStatus(PhaseAwaitingAction)

	reply, err := bridge.Ask(ctx, &s.bridge, cur.Conn, func(reqID string) any {
		return protocol.TurnStartedMsg{Type: protocol.TypeTurnStarted, ProtocolVersion: protocol.Version, ReqID: reqID}
	}, protocol.DecodeActionReply)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		s.kick(cur, fmt.Errorf("%w: no action: %v", ErrPlayerNotResponding, err))
		s.handoff()
		return nil
	}

	s.refreshStatus(PhaseResolving)
	act, err := s.resolve(cur.Player, reply)
	if err == nil {
		err = act.Execute()
	}
	if err != nil {
		s.kick(cur, err)
		s.handoff()
		return nil
	}

	desc := act.Describe()
	s.log.Printf("%s: %s", cur.Player.Name, desc)
	s.broadcast(protocol.LogMsg{Type: protocol.TypeLog, ProtocolVersion: protocol.Version,
		Text: fmt.Sprintf("%s played: %s", cur.Player.Name, desc)}, cur)
	s.send(cur, protocol.LogMsg{Type: protocol.TypeLog, ProtocolVersion: protocol.Version,
		Text: fmt.Sprintf("you played: %s", desc)})

	ev := TurnEvent{SessionID: s.id, Turn: s.turn, Era: s.era, PlayerID: cur.Player.ID, Kind: string(act.Kind()), Description: desc}
	if work, ok := act.(actions.WorkAction); ok {
		inv := work.Invention
		ev.Invention = inv.Name
		if inv.IsCompleted() {
			ev.Completed = true
			s.refreshStatus(PhaseAwardingRewards)
			s.log.Printf("%s completed", inv.Name)
			contributors := rewards.Contributors(s.Players(), inv, cur.Player)
			allocs, err := s.alloc.Allocate(ctx, inv, contributors)
			ev.Allocations = allocs
			if err != nil {
				return err
			}
		}
		if s.eraCompleted() && s.era < catalogs.Eras {
			s.advanceEra()
		}
	}

	s.refreshStatus(PhaseSynchronizing)
	s.broadcast(protocol.SynchronizeMsg{
		Type:            protocol.TypeSynchronize,
		ProtocolVersion: protocol.Version,
		Era:             s.era,
		Roster:          s.roster(),
		Table:           s.tableView(),
	}, nil)
	s.rec.TurnPlayed(ev)

	s.handoff()
	return nil
}

// resolve turns a decoded reply into an action against p's own inventors and the current table.
func (s *Session) resolve(p *model.Player, reply protocol.ActionReply) (actions.Action, error) {
	switch reply.Kind {
	case protocol.ActionMakeAvailable:
		return actions.MakeAvailableAction{Player: p}, nil
	case protocol.ActionWork:
		inventor, ok := p.InventorByName(reply.Inventor)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRequestedInventorNotFound, reply.Inventor)
		}
		invention, ok := s.inventionByName(reply.Invention)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRequestedInventionNotFound, reply.Invention)
		}
		return actions.WorkAction{Player: p, Inventor: inventor, Invention: invention}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action kind %q", ErrPlayerNotResponding, reply.Kind)
	}
}

func (s *Session) chooseReward(ctx context.Context, p *model.Player, inv *model.Invention, offered []model.Reward) (int, error) {
	seat := s.seatOf(p)
	if seat == nil {
		return 0, fmt.Errorf("%s is no longer seated", p.Name)
	}
	contribution, _ := inv.Contribution(p.ID)
	return bridge.Ask(ctx, &s.bridge, seat.Conn, func(reqID string) any {
		return protocol.RewardOfferMsg{
			Type:            protocol.TypeRewardOffer,
			ProtocolVersion: protocol.Version,
			ReqID:           reqID,
			Invention:       inv.Name,
			Contribution:    contribution,
			Rewards:         rewardViews(offered),
		}
	}, protocol.DecodeRewardReply)
}

func (s *Session) inventionByName(name string) (*model.Invention, bool) {
	for _, inv := range s.table {
		if inv.Name == name {
			return inv, true
		}
	}
	return nil, false
}

func (s *Session) current() (*Seat, error) {
	if s.cursor < 0 || s.cursor >= len(s.seats) || !s.seats[s.cursor].Player.TurnMarker {
		return nil, ErrCurrentPlayerNotFound
	}
	return s.seats[s.cursor], nil
}

func (s *Session) seatOf(p *model.Player) *Seat {
	for _, seat := range s.seats {
		if seat.Player == p {
			return seat
		}
	}
	return nil
}

// handoff passes the turn marker to the next seat, wrapping at the end. If the
// marker holder was removed this turn the first remaining seat gets it.
func (s *Session) handoff() {
	if len(s.seats) == 0 {
		return
	}
	if s.currentRemoved || s.cursor >= len(s.seats) {
		s.cursor = 0
	} else {
		s.seats[s.cursor].Player.RemoveTurnMarker()
		s.cursor = (s.cursor + 1) % len(s.seats)
	}
	s.currentRemoved = false
	s.seats[s.cursor].Player.GiveTurnMarker()
}

func (s *Session) kickPlayer(p *model.Player, cause error) {
	if seat := s.seatOf(p); seat != nil {
		s.kick(seat, cause)
	}
}

// kick notifies the seat, closes its connection and removes it from play.
func (s *Session) kick(seat *Seat, cause error) {
	code := kickCode(cause)
	s.log.Printf("kicking %s (%s): %v", seat.Player.Name, code, cause)
	seat.Conn.Kick(code, cause.Error())
	s.kicks++
	s.rec.PlayerKicked(KickEvent{
		SessionID: s.id,
		Turn:      s.turn,
		PlayerID:  seat.Player.ID,
		Name:      seat.Player.Name,
		Code:      code,
		Reason:    cause.Error(),
	})

	for i, other := range s.seats {
		if other != seat {
			continue
		}
		s.seats = append(s.seats[:i], s.seats[i+1:]...)
		switch {
		case i == s.cursor:
			s.currentRemoved = true
		case i < s.cursor:
			s.cursor--
		}
		break
	}
	seat.Player.RemoveTurnMarker()
	s.refreshStatus(s.phase())
}

func (s *Session) drawTable() {
	s.table = s.table[:0:0]
	for i := 0; i < s.tableSize; i++ {
		inv, ok := s.deck.DrawInvention(s.era)
		if !ok {
			s.log.Printf("catalog ran out of era %d inventions after %d", s.era, i)
			break
		}
		s.table = append(s.table, inv)
	}
}

func (s *Session) advanceEra() {
	s.era++
	s.drawTable()
	s.log.Printf("era %d started: %v", s.era, s.tableNames())
	s.rec.EraAdvanced(EraEvent{SessionID: s.id, Turn: s.turn, Era: s.era, Table: s.tableNames()})
}

// eraCompleted reports whether every invention but one on the table is completed.
func (s *Session) eraCompleted() bool {
	if len(s.table) == 0 {
		return true
	}
	completed := 0
	for _, inv := range s.table {
		if inv.IsCompleted() {
			completed++
		}
	}
	return completed >= len(s.table)-1
}

// Finished reports whether at most one player remains or the last era's table is done.
func (s *Session) Finished() bool {
	return len(s.seats) <= 1 || (s.era == catalogs.Eras && s.eraCompleted())
}

func (s *Session) terminate() Result {
	res := s.result()
	winner, err := DetermineWinner(s.Players())
	if err != nil {
		s.log.Printf("game over: %v", err)
	} else {
		res.WinnerID = winner.ID
		for i := range res.Standings {
			res.Standings[i].Winner = res.Standings[i].PlayerID == winner.ID
		}
		s.log.Printf("game over: %s wins with %d point(s)", winner.Name, Score(winner))
	}
	for _, seat := range s.seats {
		msg := protocol.GameEndedMsg{
			Type:            protocol.TypeGameEnded,
			ProtocolVersion: protocol.Version,
			Victory:         winner != nil && seat.Player == winner,
			Score:           Score(seat.Player),
		}
		if winner != nil {
			msg.Winner = winner.Name
		}
		s.send(seat, msg)
	}
	s.refreshStatus(PhaseTerminated)
	s.rec.SessionEnded(res)
	return res
}

func (s *Session) abort(code, reason string) Result {
	for _, seat := range append([]*Seat(nil), s.seats...) {
		seat.Conn.Kick(code, reason)
	}
	res := s.result()
	res.Aborted = true
	s.refreshStatus(PhaseTerminated)
	s.rec.SessionEnded(res)
	return res
}

func (s *Session) result() Result {
	res := Result{SessionID: s.id, EndedAt: s.now(), Era: s.era, Turns: s.turn, Kicks: s.kicks}
	for _, seat := range s.seats {
		p := seat.Player
		res.Standings = append(res.Standings, Standing{
			PlayerID:  p.ID,
			Name:      p.Name,
			Team:      p.Team,
			Score:     Score(p),
			Completed: len(p.CompletedInventions),
		})
	}
	return res
}

func (s *Session) send(seat *Seat, msg any) {
	if err := seat.Conn.Send(msg); err != nil {
		s.log.Printf("send to %s: %v", seat.Player.Name, err)
	}
}

// broadcast sends msg to every seat except exclude.
func (s *Session) broadcast(msg any, exclude *Seat) {
	for _, seat := range s.seats {
		if seat == exclude {
			continue
		}
		s.send(seat, msg)
	}
}

func (s *Session) tableNames() []string {
	out := make([]string, 0, len(s.table))
	for _, inv := range s.table {
		out = append(out, inv.Name)
	}
	return out
}

func (s *Session) phase() Phase {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.statusPhase
}

func (s *Session) refreshStatus(ph Phase) {
	players := make([]string, 0, len(s.seats))
	current := ""
	for _, seat := range s.seats {
		players = append(players, seat.Player.Name)
		if seat.Player.TurnMarker {
			current = seat.Player.Name
		}
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.statusPhase = ph
	s.status.Phase = ph.String()
	s.status.Era = s.era
	s.status.Turn = s.turn
	s.status.Players = players
	s.status.Current = current
}
