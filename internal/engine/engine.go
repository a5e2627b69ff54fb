package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DoyleJ11/mindless-backend/internal/themes"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

var ErrEmptyName = errors.New("player name is required")
var ErrNameTooLong = errors.New("player name is too long")
var ErrRoomFull = errors.New("room is full")
var ErrNameTaken = errors.New("player name is already taken")
var ErrGameInProgress = errors.New("game is already in progress")
var ErrAlreadyInRoom = errors.New("player is already in the room")
var ErrNotInRoom = errors.New("player is not in the room")
var ErrNotHost = errors.New("only the host can do that")
var ErrInsufficientPlayers = errors.New("need 4-10 players")
var ErrInvalidPhase = errors.New("action not allowed in this phase")
var ErrNotVotingPhase = fmt.Errorf("%w: not in voting phase", ErrInvalidPhase)
var ErrPlayerEliminated = errors.New("eliminated players cannot submit words")
var ErrNotYourTurn = errors.New("not your turn")
var ErrEmptyWord = errors.New("word cannot be empty")
var ErrWordTooLong = errors.New("word must be 30 characters or less")
var ErrMultipleWords = errors.New("submit only one word")
var ErrInvalidCharacters = errors.New("word contains invalid characters")
var ErrVoterEliminated = errors.New("eliminated players cannot vote")
var ErrAlreadyVoted = errors.New("already voted")
var ErrUnknownSuspect = errors.New("unknown suspect")
var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdJoin       CommandType = "Join"
	CmdLeave      CommandType = "Leave"
	CmdStartGame  CommandType = "StartGame"
	CmdSubmitWord CommandType = "SubmitWord"
	CmdVote       CommandType = "Vote"
	CmdNextRound  CommandType = "NextRound"
)

/*
	CmdJoin       -> EvtRoomUpdate
	CmdLeave      -> EvtRoomUpdate [-> EvtVotingPhase | EvtResultsPhase]
	CmdStartGame  -> EvtGameStarted
	CmdSubmitWord -> EvtGameUpdate | EvtVotingPhase
	CmdVote       -> EvtVotingUpdate | EvtResultsPhase
	CmdNextRound  -> EvtGameStarted
*/

type Command struct {
	Type      CommandType
	PlayerID  string
	Name      string
	Word      string
	SuspectID string
}

type EventType string

const (
	EvtRoomUpdate   EventType = types.EventRoomUpdate
	EvtGameStarted  EventType = types.EventGameStarted
	EvtGameUpdate   EventType = types.EventGameUpdate
	EvtVotingPhase  EventType = types.EventVotingPhase
	EvtVotingUpdate EventType = types.EventVotingUpdate
	EvtResultsPhase EventType = types.EventResultsPhase
)

// Event is a broadcast owed to every participant of the room.
type Event struct {
	Type     EventType
	Progress *types.VotingProgress
}

// Rand is the randomness the engine needs. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) Intn(n int) int                      { return rand.Intn(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

type Engine struct {
	catalog themes.Catalog
	rng     Rand
	now     func() time.Time
}

type Option func(*Engine)

// WithRand fixes the random source. The source must be safe for the
// engine's callers; a seeded *rand.Rand should only back a single room.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(catalog themes.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, rng: globalRand{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply validates cmd against s and returns the broadcasts it owes and the
// next state. On error the returned state is s, untouched.
func (e *Engine) Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	var events []Event
	var err error
	switch cmd.Type {
	case CmdJoin:
		events, err = e.join(&next, cmd)
	case CmdLeave:
		events, err = e.leave(&next, cmd)
	case CmdStartGame:
		events, err = e.startGame(&next, cmd)
	case CmdSubmitWord:
		events, err = e.submitWord(&next, cmd)
	case CmdVote:
		events, err = e.vote(&next, cmd)
	case CmdNextRound:
		events, err = e.nextRound(&next, cmd)
	default:
		err = ErrUnsupportedCommand
	}
	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

func (e *Engine) join(s *State, cmd Command) ([]Event, error) {
	name, err := ValidateName(cmd.Name)
	if err != nil {
		return nil, err
	}
	if s.HasPlayer(cmd.PlayerID) {
		return nil, ErrAlreadyInRoom
	}
	if s.Phase != PhaseWaiting {
		return nil, ErrGameInProgress
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range s.Players {
		if p.Name == name {
			return nil, ErrNameTaken
		}
	}

	s.Players = append(s.Players, Player{
		ID:     cmd.PlayerID,
		Name:   name,
		Role:   RoleConcept,
		Words:  []Word{},
		Status: StatusActive,
		IsHost: len(s.Players) == 0,
	})
	return []Event{{Type: EvtRoomUpdate}}, nil
}

func (e *Engine) leave(s *State, cmd Command) ([]Event, error) {
	idx := s.indexOf(cmd.PlayerID)
	if idx < 0 {
		return nil, ErrNotInRoom
	}
	leaving := s.Players[idx]
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)

	if len(s.Players) == 0 {
		return nil, nil
	}

	if idx < s.TurnIndex {
		s.TurnIndex--
	}
	if s.TurnIndex >= len(s.Players) {
		s.TurnIndex = 0
	}
	if s.host() == nil {
		s.Players[0].IsHost = true
	}
	dropBallots(s, leaving.ID)

	events := []Event{{Type: EvtRoomUpdate}}

	inGame := s.Phase != PhaseWaiting
	if inGame && (leaving.Role == RoleMindless || (s.Phase == PhasePlaying && len(s.Players) < MinPlayers)) {
		resetToWaiting(s)
		return events, nil
	}

	switch s.Phase {
	case PhasePlaying:
		currentPlayer(s)
		if roundComplete(s) {
			s.Round++
		}
		if roundOverflow(s) {
			enterVoting(s)
			events = append(events, Event{Type: EvtVotingPhase})
		}
	case PhaseVoting:
		if votingComplete(s) {
			e.finishVoting(s)
			events = append(events, Event{Type: EvtResultsPhase})
		}
	}
	return events, nil
}

func (e *Engine) startGame(s *State, cmd Command) ([]Event, error) {
	if err := requireHost(s, cmd.PlayerID); err != nil {
		return nil, err
	}
	if s.Phase != PhaseWaiting {
		return nil, ErrInvalidPhase
	}
	if len(s.Players) < MinPlayers || len(s.Players) > MaxPlayers {
		return nil, ErrInsufficientPlayers
	}
	if err := e.newGame(s); err != nil {
		return nil, err
	}
	return []Event{{Type: EvtGameStarted}}, nil
}

func (e *Engine) submitWord(s *State, cmd Command) ([]Event, error) {
	p := s.player(cmd.PlayerID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	if s.Phase != PhasePlaying {
		return nil, ErrInvalidPhase
	}
	if !p.Active() {
		return nil, ErrPlayerEliminated
	}
	current := currentPlayer(s)
	if current == nil || current.ID != cmd.PlayerID {
		return nil, ErrNotYourTurn
	}
	word, err := ValidateWord(cmd.Word)
	if err != nil {
		return nil, err
	}

	current.Words = append(current.Words, Word{Text: word, Round: s.Round, At: e.now()})
	advanceTurn(s)

	if roundOverflow(s) {
		enterVoting(s)
		return []Event{{Type: EvtVotingPhase}}, nil
	}
	return []Event{{Type: EvtGameUpdate}}, nil
}

func (e *Engine) vote(s *State, cmd Command) ([]Event, error) {
	if err := castVote(s, cmd.PlayerID, cmd.SuspectID); err != nil {
		return nil, err
	}
	if votingComplete(s) {
		e.finishVoting(s)
		return []Event{{Type: EvtResultsPhase}}, nil
	}
	return []Event{{
		Type:     EvtVotingUpdate,
		Progress: &types.VotingProgress{VotedCount: len(s.Ballots), TotalPlayers: s.ActiveCount()},
	}}, nil
}

func (e *Engine) nextRound(s *State, cmd Command) ([]Event, error) {
	if err := requireHost(s, cmd.PlayerID); err != nil {
		return nil, err
	}
	if s.Phase != PhaseResults && s.Phase != PhaseFinished {
		return nil, ErrInvalidPhase
	}

	if s.Phase == PhaseFinished || (s.LastOutcome != nil && s.LastOutcome.GameEnded) {
		if err := e.newGame(s); err != nil {
			return nil, err
		}
		return []Event{{Type: EvtGameStarted}}, nil
	}

	s.Phase = PhasePlaying
	s.Round = 1
	s.Ballots = nil
	s.LastOutcome = nil
	for i := range s.Players {
		s.Players[i].Words = []Word{}
		s.Players[i].Votes = 0
	}
	firstActive(s)
	return []Event{{Type: EvtGameStarted}}, nil
}

// newGame deals a fresh theme and roles. Statuses and scores start over.
func (e *Engine) newGame(s *State) error {
	fresh := make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Status = StatusActive
		p.Score = 0
		fresh[i] = p
	}
	a, err := AssignRoles(fresh, e.catalog, e.rng)
	if err != nil {
		return err
	}
	s.Players = a.Players
	for i := range s.Players {
		s.Players[i].Words = []Word{}
	}
	s.Theme = a.Theme
	s.Phase = PhasePlaying
	s.Round = 1
	s.Ballots = nil
	s.LastOutcome = nil
	firstActive(s)
	return nil
}

func (e *Engine) finishVoting(s *State) {
	o := resolveVotes(s)
	s.LastOutcome = &o

	entry := HistoryEntry{
		Theme:        s.Theme,
		Kind:         o.Kind,
		MindlessID:   o.MindlessID,
		MindlessName: o.MindlessName,
		GameEnded:    o.GameEnded,
		At:           e.now(),
	}
	if o.Eliminated != nil && !o.IsTie() {
		entry.EliminatedID = o.Eliminated.ID
		entry.EliminatedName = o.Eliminated.Name
	}
	s.History = append(s.History, entry)

	s.Ballots = nil
	if o.GameEnded {
		s.Phase = PhaseFinished
		return
	}
	s.Phase = PhaseResults
	s.Round = 1
	firstActive(s)
}

func enterVoting(s *State) {
	s.Phase = PhaseVoting
	s.Ballots = nil
}

func resetToWaiting(s *State) {
	s.Phase = PhaseWaiting
	s.Theme = ""
	s.Round = 1
	s.TurnIndex = 0
	s.Ballots = nil
	s.LastOutcome = nil
	for i := range s.Players {
		p := &s.Players[i]
		p.Role = RoleConcept
		p.Concept = ""
		p.Words = []Word{}
		p.Status = StatusActive
		p.Votes = 0
	}
}

// dropBallots removes ballots cast by or naming a departed player; voters who
// named them may vote again.
func dropBallots(s *State, playerID string) {
	kept := s.Ballots[:0]
	for _, b := range s.Ballots {
		if b.VoterID == playerID || b.SuspectID == playerID {
			continue
		}
		kept = append(kept, b)
	}
	s.Ballots = kept
}

func requireHost(s *State, playerID string) error {
	p := s.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	if !p.IsHost {
		return ErrNotHost
	}
	return nil
}
