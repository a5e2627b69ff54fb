package types

import "time"

// Snapshot is the room state as seen by one viewer. Roles and words of every
// player are included; the client decides what to render.
type Snapshot struct {
	RoomCode      string       `json:"roomCode"`
	Theme         string       `json:"theme,omitempty"`
	Phase         string       `json:"status"`
	Round         int          `json:"currentRound"`
	MaxRounds     int          `json:"maxRounds"`
	TurnIndex     int          `json:"currentPlayerIndex"`
	Players       []PlayerView `json:"players"`
	ViewerID      string       `json:"currentPlayerId"`
	ViewerStatus  string       `json:"currentPlayerStatus"`
	ViewerRole    string       `json:"playerRole,omitempty"`
	ViewerConcept string       `json:"playerConcept,omitempty"`
	IsViewerTurn  bool         `json:"isPlayerTurn"`
	VotedCount    int          `json:"votedCount"`
	HasVoted      bool         `json:"hasVoted"`
	Outcome       *OutcomeView `json:"gameResults,omitempty"`
}

type PlayerView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	IsHost bool       `json:"isHost"`
	Role   string     `json:"role"`
	Words  []WordView `json:"words"`
	Votes  int        `json:"votes"`
	Score  int        `json:"score"`
	Status string     `json:"status"`
}

type WordView struct {
	Word      string    `json:"word"`
	Round     int       `json:"round"`
	Timestamp time.Time `json:"timestamp"`
}

type EliminatedView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Votes int    `json:"votes"`
}

// OutcomeView is the latest resolved vote.
//   kind: "tie" | "mindless_found" | "final_round_survival" | "player_eliminated"
type OutcomeView struct {
	Kind             string          `json:"kind"`
	MindlessID       string          `json:"mindlessPlayerId"`
	MindlessName     string          `json:"mindlessPlayer"`
	Eliminated       *EliminatedView `json:"eliminatedPlayer,omitempty"`
	GameEnded        bool            `json:"gameEnded"`
	MindlessFound    bool            `json:"mindlessEliminated"`
	IsTie            bool            `json:"isTie"`
	IsFinalRound     bool            `json:"isFinalRound"`
	TotalVotes       int             `json:"totalVotes"`
	MindlessVotes    int             `json:"mindlessVotes"`
	MaxVotes         int             `json:"maxVotes"`
	VoteCount        map[string]int  `json:"voteCount"`
	Leaders          []string        `json:"playersWithMaxVotes"`
	RemainingPlayers int             `json:"remainingPlayers"`
}

type VotingProgress struct {
	VotedCount   int `json:"votedCount"`
	TotalPlayers int `json:"totalPlayers"`
}

// RoomSummary is the public peek at a room, served over plain HTTP.
type RoomSummary struct {
	Code    string `json:"code"`
	Phase   string `json:"status"`
	Players int    `json:"players"`
}
