package engine

func NewEmptyState(code string) State {
	return State{
		Code:    code,
		Phase:   PhaseWaiting,
		Players: []Player{},
		Round:   1,
		History: []HistoryEntry{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Sweepable reports whether an idle room in this phase may be reaped.
func (p Phase) Sweepable() bool {
	return p == PhaseWaiting || p == PhaseFinished
}
