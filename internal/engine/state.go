package engine

import (
	"maps"
	"slices"
	"time"
)

const (
	MinPlayers = 4
	MaxPlayers = 10
	MaxRounds  = 2

	// FinalRoundPlayers is the active count at which a wrong vote hands the game to the mindless player.
	FinalRoundPlayers = 3
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseVoting   Phase = "voting"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
)

type Role string

const (
	RoleConcept  Role = "concept"
	RoleMindless Role = "mindless"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusEliminated Status = "eliminated"
)

type Word struct {
	Text  string    `json:"text"`
	Round int       `json:"round"`
	At    time.Time `json:"at"`
}

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	// Concept is empty for the mindless player and outside a game.
	Concept string `json:"concept,omitempty"`
	Words   []Word `json:"words"`
	Status  Status `json:"status"`
	IsHost  bool   `json:"isHost"`
	Score   int    `json:"score"`
	Votes   int    `json:"votes"`
}

func (p Player) Active() bool { return p.Status != StatusEliminated }

type Ballot struct {
	VoterID   string `json:"voterId"`
	SuspectID string `json:"suspectId"`
}

type HistoryEntry struct {
	Theme          string      `json:"theme"`
	Kind           OutcomeKind `json:"kind"`
	EliminatedID   string      `json:"eliminatedId,omitempty"`
	EliminatedName string      `json:"eliminatedName,omitempty"`
	MindlessID     string      `json:"mindlessId"`
	MindlessName   string      `json:"mindlessName"`
	GameEnded      bool        `json:"gameEnded"`
	At             time.Time   `json:"at"`
}

// State is one room's session. Players keep insertion order, which is also
// the turn order.
type State struct {
	Code        string         `json:"code"`
	Phase       Phase          `json:"phase"`
	Players     []Player       `json:"players"`
	Theme       string         `json:"theme,omitempty"`
	Round       int            `json:"round"`
	TurnIndex   int            `json:"turnIndex"`
	Ballots     []Ballot       `json:"ballots"`
	LastOutcome *Outcome       `json:"lastOutcome,omitempty"`
	History     []HistoryEntry `json:"history"`
}

// Clone returns a deep copy so a failed command can never leak a partial mutation.
func (s State) Clone() State {
	c := s
	c.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Words = slices.Clone(p.Words)
		c.Players[i] = p
	}
	c.Ballots = slices.Clone(s.Ballots)
	c.History = slices.Clone(s.History)
	if s.LastOutcome != nil {
		o := *s.LastOutcome
		o.VoteCount = maps.Clone(s.LastOutcome.VoteCount)
		o.Leaders = slices.Clone(s.LastOutcome.Leaders)
		if s.LastOutcome.Eliminated != nil {
			e := *s.LastOutcome.Eliminated
			o.Eliminated = &e
		}
		c.LastOutcome = &o
	}
	return c
}

func (s *State) indexOf(playerID string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == playerID })
}

func (s *State) player(playerID string) *Player {
	if i := s.indexOf(playerID); i >= 0 {
		return &s.Players[i]
	}
	return nil
}

func (s State) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active() {
			n++
		}
	}
	return n
}

func (s *State) mindless() *Player {
	for i := range s.Players {
		if s.Players[i].Role == RoleMindless {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *State) host() *Player {
	for i := range s.Players {
		if s.Players[i].IsHost {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *State) hasBallot(voterID string) bool {
	return slices.ContainsFunc(s.Ballots, func(b Ballot) bool { return b.VoterID == voterID })
}

// HasPlayer reports whether playerID is seated in the room.
func (s State) HasPlayer(playerID string) bool {
	return s.indexOf(playerID) >= 0
}

// PlayerIDs lists every seated player in turn order.
func (s State) PlayerIDs() []string {
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	return ids
}
