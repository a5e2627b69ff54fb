package engine

// advanceTurn moves the turn pointer to the next active player and bumps the
// round once every active player has a word tagged with the current round.
func advanceTurn(s *State) {
	if s.ActiveCount() == 0 {
		return
	}
	stepTurn(s)
	if roundComplete(s) {
		s.Round++
	}
}

// stepTurn walks forward cyclically, skipping eliminated players, for at most
// len(Players) steps. A lone active player lands back on themself.
func stepTurn(s *State) {
	n := len(s.Players)
	if n == 0 {
		return
	}
	for step := 0; step < n; step++ {
		s.TurnIndex = (s.TurnIndex + 1) % n
		if s.Players[s.TurnIndex].Active() {
			return
		}
	}
}

func roundComplete(s *State) bool {
	active := 0
	for _, p := range s.Players {
		if !p.Active() {
			continue
		}
		active++
		if !hasWordInRound(p, s.Round) {
			return false
		}
	}
	return active > 0
}

func hasWordInRound(p Player, round int) bool {
	for _, w := range p.Words {
		if w.Round == round {
			return true
		}
	}
	return false
}

// roundOverflow is the signal to leave Playing for Voting.
func roundOverflow(s *State) bool {
	return s.Round > MaxRounds
}

// currentPlayer returns whose turn it is, re-advancing once if the pointer
// sits on an eliminated player.
func currentPlayer(s *State) *Player {
	if len(s.Players) == 0 {
		return nil
	}
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		s.TurnIndex = 0
	}
	if !s.Players[s.TurnIndex].Active() {
		stepTurn(s)
	}
	p := &s.Players[s.TurnIndex]
	if !p.Active() {
		return nil
	}
	return p
}

// turnHolder is the read-only counterpart of currentPlayer used for snapshots.
func turnHolder(s State) string {
	n := len(s.Players)
	if n == 0 || s.Phase != PhasePlaying {
		return ""
	}
	i := s.TurnIndex
	if i < 0 || i >= n {
		i = 0
	}
	for step := 0; step < n; step++ {
		if s.Players[i].Active() {
			return s.Players[i].ID
		}
		i = (i + 1) % n
	}
	return ""
}

// firstActive points the turn at the first active player in seat order.
func firstActive(s *State) {
	s.TurnIndex = 0
	for i, p := range s.Players {
		if p.Active() {
			s.TurnIndex = i
			return
		}
	}
}
