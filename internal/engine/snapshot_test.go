package engine

import (
	"reflect"
	"testing"
)

func TestSnapshotFor_Idempotent(t *testing.T) {
	s := gameState(PhasePlaying, 5, 2, 4)
	s.Players[0].Words = []Word{{Text: "paw", Round: 1, At: testClock()}}
	s.TurnIndex = 1

	first := SnapshotFor(s, "p2")
	second := SnapshotFor(s, "p2")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestSnapshotFor_ViewerFields(t *testing.T) {
	s := gameState(PhasePlaying, 4, 2)
	s.TurnIndex = 2

	mindless := SnapshotFor(s, "p3")
	if mindless.ViewerRole != string(RoleMindless) || mindless.ViewerConcept != "" {
		t.Fatalf("mindless viewer sees role=%q concept=%q", mindless.ViewerRole, mindless.ViewerConcept)
	}
	if !mindless.IsViewerTurn {
		t.Fatalf("p3 holds the turn")
	}

	other := SnapshotFor(s, "p1")
	if other.ViewerConcept == "" || other.IsViewerTurn {
		t.Fatalf("p1 snapshot: concept=%q turn=%v", other.ViewerConcept, other.IsViewerTurn)
	}

	stranger := SnapshotFor(s, "ghost")
	if stranger.ViewerStatus != string(StatusActive) || stranger.ViewerRole != "" {
		t.Fatalf("stranger snapshot: %+v", stranger)
	}
	for _, p := range stranger.Players {
		if p.Words == nil {
			t.Fatalf("%s words should render as an empty list", p.ID)
		}
	}
}

func TestSnapshotFor_TieHidesEliminated(t *testing.T) {
	e := newTestEngine(1)
	s := gameState(PhaseVoting, 4, 2)
	_, s = castAll(t, e, s, [][2]string{{"p1", "p2"}, {"p2", "p1"}, {"p3", "p1"}, {"p4", "p2"}})

	snap := SnapshotFor(s, "p1")
	if snap.Outcome == nil || !snap.Outcome.IsTie || snap.Outcome.Eliminated != nil {
		t.Fatalf("outcome = %+v", snap.Outcome)
	}
	if !reflect.DeepEqual(snap.Outcome.Leaders, []string{"Player1", "Player2"}) {
		t.Fatalf("leaders = %v", snap.Outcome.Leaders)
	}
	if snap.IsViewerTurn {
		t.Fatalf("nobody holds a turn outside playing")
	}
}
