package events

import (
	"testing"

	"github.com/quillphysics/quill/entity"
)

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) hasType(t Type) bool {
	for _, e := range ec.events {
		if e.Type() == t {
			return true
		}
	}
	return false
}

func h(i uint32) entity.Handle { return entity.Handle{Index: i, Generation: 1} }

func TestSubscribeRegistersListener(t *testing.T) {
	bus := NewBus()
	capture := &eventCapture{}

	bus.Subscribe(CollisionEnter, capture.capture)

	if len(bus.listeners[CollisionEnter]) != 1 {
		t.Fatalf("expected 1 listener for CollisionEnter, got %d", len(bus.listeners[CollisionEnter]))
	}
}

func TestMultipleListenersAllFire(t *testing.T) {
	bus := NewBus()
	c1, c2 := &eventCapture{}, &eventCapture{}
	bus.Subscribe(CollisionEnter, c1.capture)
	bus.Subscribe(CollisionEnter, c2.capture)

	a, b := h(1), h(2)
	bus.RecordPair(a, b, false)
	bus.Flush()

	if !c1.hasType(CollisionEnter) || !c2.hasType(CollisionEnter) {
		t.Fatalf("expected both listeners to observe CollisionEnter")
	}
}

func TestNewPairEmitsEnterThenStay(t *testing.T) {
	bus := NewBus()
	capture := &eventCapture{}
	bus.Subscribe(CollisionEnter, capture.capture)
	bus.Subscribe(CollisionStay, capture.capture)

	a, b := h(1), h(2)

	bus.RecordPair(a, b, false)
	bus.Flush()
	if !capture.hasType(CollisionEnter) {
		t.Fatalf("expected CollisionEnter on first overlap")
	}

	capture.events = nil
	bus.RecordPair(a, b, false)
	bus.Flush()
	if !capture.hasType(CollisionStay) {
		t.Fatalf("expected CollisionStay once the pair persists")
	}
	if capture.hasType(CollisionEnter) {
		t.Fatalf("did not expect a second CollisionEnter")
	}
}

func TestPairNoLongerRecordedEmitsExit(t *testing.T) {
	bus := NewBus()
	capture := &eventCapture{}
	bus.Subscribe(CollisionExit, capture.capture)

	a, b := h(1), h(2)
	bus.RecordPair(a, b, false)
	bus.Flush()

	bus.Flush() // pair not re-recorded this step

	if !capture.hasType(CollisionExit) {
		t.Fatalf("expected CollisionExit once the pair stops overlapping")
	}
}

func TestTriggerPairUsesTriggerEventFamily(t *testing.T) {
	bus := NewBus()
	capture := &eventCapture{}
	bus.Subscribe(TriggerEnter, capture.capture)
	bus.Subscribe(CollisionEnter, capture.capture)

	a, b := h(1), h(2)
	bus.RecordPair(a, b, true)
	bus.Flush()

	if !capture.hasType(TriggerEnter) {
		t.Fatalf("expected TriggerEnter for a sensor pair")
	}
	if capture.hasType(CollisionEnter) {
		t.Fatalf("did not expect CollisionEnter for a sensor pair")
	}
}

func TestPairKeyOrderIndependent(t *testing.T) {
	a, b := h(5), h(9)
	if makePairKey(a, b) != makePairKey(b, a) {
		t.Fatalf("expected pairKey to normalize regardless of argument order")
	}
}

func TestSleepAndWakeTransitions(t *testing.T) {
	bus := NewBus()
	capture := &eventCapture{}
	bus.Subscribe(OnSleep, capture.capture)
	bus.Subscribe(OnWake, capture.capture)

	body := h(1)
	bus.RecordSleepState(body, false) // establish baseline, no event
	bus.Flush()
	if len(capture.events) != 0 {
		t.Fatalf("did not expect an event on first observation")
	}

	bus.RecordSleepState(body, true)
	bus.Flush()
	if !capture.hasType(OnSleep) {
		t.Fatalf("expected OnSleep on the false->true transition")
	}

	capture.events = nil
	bus.RecordSleepState(body, false)
	bus.Flush()
	if !capture.hasType(OnWake) {
		t.Fatalf("expected OnWake on the true->false transition")
	}
}
