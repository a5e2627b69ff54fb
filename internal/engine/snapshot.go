package engine

import (
	"maps"

	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

// SnapshotFor renders s for one viewer. It never mutates s, so repeated calls
// without an intervening command return identical snapshots.
func SnapshotFor(s State, viewerID string) types.Snapshot {
	snap := types.Snapshot{
		RoomCode:   s.Code,
		Theme:      s.Theme,
		Phase:      string(s.Phase),
		Round:      s.Round,
		MaxRounds:  MaxRounds,
		TurnIndex:  s.TurnIndex,
		Players:    make([]types.PlayerView, 0, len(s.Players)),
		ViewerID:   viewerID,
		VotedCount: len(s.Ballots),
		HasVoted:   s.hasBallot(viewerID),
	}

	for _, p := range s.Players {
		words := make([]types.WordView, 0, len(p.Words))
		for _, w := range p.Words {
			words = append(words, types.WordView{Word: w.Text, Round: w.Round, Timestamp: w.At})
		}
		snap.Players = append(snap.Players, types.PlayerView{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: p.IsHost,
			Role:   string(p.Role),
			Words:  words,
			Votes:  p.Votes,
			Score:  p.Score,
			Status: string(p.Status),
		})
		if p.ID == viewerID {
			snap.ViewerStatus = string(p.Status)
			snap.ViewerRole = string(p.Role)
			snap.ViewerConcept = p.Concept
		}
	}
	if snap.ViewerStatus == "" {
		snap.ViewerStatus = string(StatusActive)
	}

	if holder := turnHolder(s); holder != "" {
		snap.IsViewerTurn = holder == viewerID
	}
	if s.LastOutcome != nil {
		snap.Outcome = outcomeView(s, *s.LastOutcome)
	}
	return snap
}

func outcomeView(s State, o Outcome) *types.OutcomeView {
	v := &types.OutcomeView{
		Kind:             string(o.Kind),
		MindlessID:       o.MindlessID,
		MindlessName:     o.MindlessName,
		GameEnded:        o.GameEnded,
		MindlessFound:    o.MindlessFound,
		IsTie:            o.IsTie(),
		IsFinalRound:     o.IsFinalRound,
		TotalVotes:       o.TotalVotes,
		MindlessVotes:    o.MindlessVotes,
		MaxVotes:         o.MaxVotes,
		VoteCount:        maps.Clone(o.VoteCount),
		Leaders:          make([]string, 0, len(o.Leaders)),
		RemainingPlayers: o.RemainingPlayers,
	}
	for _, id := range o.Leaders {
		name := id
		if p := s.player(id); p != nil {
			name = p.Name
		}
		v.Leaders = append(v.Leaders, name)
	}
	if o.Eliminated != nil && !o.IsTie() {
		v.Eliminated = &types.EliminatedView{
			ID:    o.Eliminated.ID,
			Name:  o.Eliminated.Name,
			Role:  string(o.Eliminated.Role),
			Votes: o.Eliminated.Votes,
		}
	}
	return v
}
