package notify

import (
	"testing"

	"github.com/scevolution/ladder/internal/models"
)

func testMatch() models.Match {
	return models.Match{ID: 7, Player1UID: 1, Player2UID: 2}
}

func TestPublishReachesMatchAndPlayers(t *testing.T) {
	f := New(nil)

	var matchGot, p1Got, p2Got []EventKind
	f.RegisterMatch(7, func(p Payload) { matchGot = append(matchGot, p.Kind) })
	f.RegisterPresenter(1, func(p Payload) { p1Got = append(p1Got, p.Kind) })
	f.RegisterPresenter(2, func(p Payload) { p2Got = append(p2Got, p.Kind) })

	f.Publish(Payload{Kind: EventMatchFound, Match: testMatch()})

	if len(matchGot) != 1 || matchGot[0] != EventMatchFound {
		t.Errorf("match callbacks got %v", matchGot)
	}
	if len(p1Got) != 1 || len(p2Got) != 1 {
		t.Errorf("player callbacks got %v / %v", p1Got, p2Got)
	}
}

func TestRegisterPresenterReplacesSlot(t *testing.T) {
	f := New(nil)

	oldCalls, newCalls := 0, 0
	f.RegisterPresenter(1, func(Payload) { oldCalls++ })
	f.RegisterPresenter(1, func(Payload) { newCalls++ })

	f.Publish(Payload{Kind: EventConfirmed, Match: testMatch()})

	if oldCalls != 0 {
		t.Errorf("replaced presenter still received %d events", oldCalls)
	}
	if newCalls != 1 {
		t.Errorf("active presenter received %d events, want 1", newCalls)
	}
}

func TestMissingPresenterDropsSilently(t *testing.T) {
	f := New(nil)
	// Nothing registered: Publish must not panic or block.
	f.Publish(Payload{Kind: EventMatchAbort, Match: testMatch()})
	f.NotifyPlayer(99, Payload{Kind: EventReminder, Match: testMatch(), TargetUID: 99})
}

func TestPanickingCallbackIsolated(t *testing.T) {
	f := New(nil)

	delivered := false
	f.RegisterMatch(7, func(Payload) { panic("presenter bug") })
	f.RegisterPresenter(2, func(Payload) { delivered = true })

	f.Publish(Payload{Kind: EventMatchComplete, Match: testMatch()})

	if !delivered {
		t.Error("panic in one callback blocked delivery to the next")
	}
}

func TestReleaseMatchDropsCallbacks(t *testing.T) {
	f := New(nil)

	calls := 0
	f.RegisterMatch(7, func(Payload) { calls++ })
	f.ReleaseMatch(7)
	f.Publish(Payload{Kind: EventMatchComplete, Match: testMatch()})

	if calls != 0 {
		t.Errorf("released match callback ran %d times", calls)
	}
}

func TestCallbacksRunInRegistrationOrder(t *testing.T) {
	f := New(nil)

	var order []int
	f.RegisterMatch(7, func(Payload) { order = append(order, 1) })
	f.RegisterMatch(7, func(Payload) { order = append(order, 2) })
	f.RegisterMatch(7, func(Payload) { order = append(order, 3) })

	f.Publish(Payload{Kind: EventMatchFound, Match: testMatch()})

	for i, v := range order {
		if v != i+1 {
			t.Fatalf("callbacks ran out of order: %v", order)
		}
	}
	if len(order) != 3 {
		t.Fatalf("ran %d callbacks, want 3", len(order))
	}
}
