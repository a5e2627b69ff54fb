package engine

// applyScores awards points for a game-ending outcome. Ties and non-final
// eliminations score nothing.
func applyScores(s *State, kind OutcomeKind) {
	switch kind {
	case OutcomeMindlessFound:
		for i := range s.Players {
			p := &s.Players[i]
			if p.Role != RoleMindless && p.Active() {
				p.Score++
			}
		}
	case OutcomeFinalRoundSurvival:
		if m := s.mindless(); m != nil {
			m.Score++
		}
	}
}
