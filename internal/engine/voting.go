package engine

type OutcomeKind string

const (
	OutcomeTie                OutcomeKind = "tie"
	OutcomeMindlessFound      OutcomeKind = "mindless_found"
	OutcomeFinalRoundSurvival OutcomeKind = "final_round_survival"
	OutcomePlayerEliminated   OutcomeKind = "player_eliminated"
)

// GameEnded reports whether the kind closes the game.
func (k OutcomeKind) GameEnded() bool {
	return k == OutcomeMindlessFound || k == OutcomeFinalRoundSurvival
}

type EliminatedPlayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Votes int    `json:"votes"`
}

// Outcome is a resolved voting round.
type Outcome struct {
	Kind             OutcomeKind       `json:"kind"`
	Eliminated       *EliminatedPlayer `json:"eliminated,omitempty"`
	MindlessID       string            `json:"mindlessId"`
	MindlessName     string            `json:"mindlessName"`
	GameEnded        bool              `json:"gameEnded"`
	MindlessFound    bool              `json:"mindlessFound"`
	IsFinalRound     bool              `json:"isFinalRound"`
	TotalVotes       int               `json:"totalVotes"`
	MindlessVotes    int               `json:"mindlessVotes"`
	MaxVotes         int               `json:"maxVotes"`
	VoteCount        map[string]int    `json:"voteCount"`
	Leaders          []string          `json:"leaders"`
	RemainingPlayers int               `json:"remainingPlayers"`
}

func (o Outcome) IsTie() bool { return o.Kind == OutcomeTie }

// castVote records one ballot.
func castVote(s *State, voterID, suspectID string) error {
	if s.Phase != PhaseVoting {
		return ErrNotVotingPhase
	}
	voter := s.player(voterID)
	if voter == nil {
		return ErrNotInRoom
	}
	if !voter.Active() {
		return ErrVoterEliminated
	}
	if s.hasBallot(voterID) {
		return ErrAlreadyVoted
	}
	if s.player(suspectID) == nil {
		return ErrUnknownSuspect
	}
	s.Ballots = append(s.Ballots, Ballot{VoterID: voterID, SuspectID: suspectID})
	return nil
}

func votingComplete(s *State) bool {
	active := s.ActiveCount()
	return active > 0 && len(s.Ballots) == active
}

func tally(s *State) map[string]int {
	counts := make(map[string]int, len(s.Players))
	for _, p := range s.Players {
		counts[p.ID] = 0
	}
	for _, b := range s.Ballots {
		if _, ok := counts[b.SuspectID]; ok {
			counts[b.SuspectID]++
		}
	}
	return counts
}

// decide is the voting decision table:
//
//	leaders > 1                      -> Tie
//	target is mindless               -> MindlessFound
//	target is concept, 3 active      -> FinalRoundSurvival
//	target is concept, otherwise     -> PlayerEliminated
func decide(leaders int, target Role, activeAtStart int) OutcomeKind {
	switch {
	case leaders != 1:
		return OutcomeTie
	case target == RoleMindless:
		return OutcomeMindlessFound
	case activeAtStart == FinalRoundPlayers:
		return OutcomeFinalRoundSurvival
	default:
		return OutcomePlayerEliminated
	}
}

// resolveVotes tallies the ballots, applies elimination and scoring and
// returns the outcome. Callers check votingComplete first.
func resolveVotes(s *State) Outcome {
	counts := tally(s)
	activeAtStart := s.ActiveCount()

	maxVotes := 0
	for _, p := range s.Players {
		maxVotes = max(maxVotes, counts[p.ID])
	}
	var leaders []string
	for _, p := range s.Players {
		s.playerVotes(p.ID, counts[p.ID])
		if counts[p.ID] == maxVotes {
			leaders = append(leaders, p.ID)
		}
	}

	out := Outcome{
		TotalVotes: len(s.Ballots),
		MaxVotes:   maxVotes,
		VoteCount:  counts,
		Leaders:    leaders,
	}
	if m := s.mindless(); m != nil {
		out.MindlessID = m.ID
		out.MindlessName = m.Name
		out.MindlessVotes = counts[m.ID]
	}

	var target *Player
	role := RoleConcept
	if len(leaders) == 1 {
		target = s.player(leaders[0])
		role = target.Role
	}
	out.Kind = decide(len(leaders), role, activeAtStart)

	if target != nil {
		out.Eliminated = &EliminatedPlayer{ID: target.ID, Name: target.Name, Role: target.Role, Votes: counts[target.ID]}
	}

	switch out.Kind {
	case OutcomeMindlessFound:
		applyScores(s, out.Kind)
		target.Status = StatusEliminated
	case OutcomeFinalRoundSurvival:
		applyScores(s, out.Kind)
	case OutcomePlayerEliminated:
		target.Status = StatusEliminated
	}

	out.GameEnded = out.Kind.GameEnded()
	out.MindlessFound = out.Kind == OutcomeMindlessFound
	out.IsFinalRound = activeAtStart == FinalRoundPlayers
	out.RemainingPlayers = s.ActiveCount()
	return out
}

func (s *State) playerVotes(playerID string, n int) {
	if p := s.player(playerID); p != nil {
		p.Votes = n
	}
}
