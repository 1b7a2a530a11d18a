// Package events buffers and dispatches the trigger/collision/sleep
// notifications the coordinator publishes after each step, adapted
// from the teacher's trigger.go to key pairs by entity.Handle instead
// of *RigidBody identity (unsafe.Pointer) so events stay meaningful
// across the coordinator/worker delta boundary.
package events

import "github.com/quillphysics/quill/entity"

type Type uint8

const (
	TriggerEnter Type = iota
	CollisionEnter
	TriggerStay
	CollisionStay
	TriggerExit
	CollisionExit
	OnSleep
	OnWake
)

// Event is implemented by every concrete event type.
type Event interface {
	Type() Type
}

type PairEvent struct {
	kind Type
	A, B entity.Handle
}

func (e PairEvent) Type() Type { return e.kind }

type BodyEvent struct {
	kind Type
	Body entity.Handle
}

func (e BodyEvent) Type() Type { return e.kind }

// Listener is a subscriber callback.
type Listener func(Event)

type pairKey struct{ a, b entity.Handle }

// makePairKey normalizes ordering so (a,b) and (b,a) hash the same.
func makePairKey(a, b entity.Handle) pairKey {
	if b.Index < a.Index || (b.Index == a.Index && b.Generation < a.Generation) {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Bus buffers events recorded during a step's substeps and dispatches
// them to subscribed listeners on Flush, deduplicated against the
// previous step's active pairs to derive enter/stay/exit transitions
// (spec.md §7's event kinds, via the teacher's Events manager).
type Bus struct {
	listeners map[Type][]Listener
	buffer    []Event

	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
	triggerPairs        map[pairKey]bool

	sleepStates map[entity.Handle]bool
}

func NewBus() *Bus {
	return &Bus{
		listeners:           make(map[Type][]Listener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		triggerPairs:        make(map[pairKey]bool),
		sleepStates:         make(map[entity.Handle]bool),
	}
}

// Subscribe registers listener for events of the given type.
func (b *Bus) Subscribe(t Type, listener Listener) {
	b.listeners[t] = append(b.listeners[t], listener)
}

// RecordPair marks a and b as touching this step, via a sensor/trigger
// pair or a solid contact; trigger selects which event family
// (Trigger* vs Collision*) the pair resolves to once flushed.
func (b *Bus) RecordPair(a, b2 entity.Handle, trigger bool) {
	pair := makePairKey(a, b2)
	b.currentActivePairs[pair] = true
	if trigger {
		b.triggerPairs[pair] = true
	} else {
		delete(b.triggerPairs, pair)
	}
}

// RecordSleepState compares body's current Sleeping flag against what
// was tracked for it and buffers a BodyEvent of kind OnSleep or OnWake
// on change; the first observation of a body only records its state.
func (b *Bus) RecordSleepState(body entity.Handle, sleeping bool) {
	tracked, ok := b.sleepStates[body]
	if !ok {
		b.sleepStates[body] = sleeping
		return
	}
	if !tracked && sleeping {
		b.buffer = append(b.buffer, BodyEvent{kind: OnSleep, Body: body})
		b.sleepStates[body] = true
	} else if tracked && !sleeping {
		b.buffer = append(b.buffer, BodyEvent{kind: OnWake, Body: body})
		b.sleepStates[body] = false
	}
}

// Flush derives enter/stay/exit transitions from the active-pair sets
// recorded since the last flush, buffers them, dispatches every
// buffered event (pair and body) to its listeners, then clears state
// for the next step.
func (b *Bus) Flush() {
	for pair := range b.currentActivePairs {
		isTrigger := b.triggerPairs[pair]
		if b.previousActivePairs[pair] {
			b.buffer = append(b.buffer, pairEvent(pair, isTrigger, true))
		} else {
			b.buffer = append(b.buffer, pairEvent(pair, isTrigger, false))
		}
	}
	for pair := range b.previousActivePairs {
		if b.currentActivePairs[pair] {
			continue
		}
		isTrigger := b.triggerPairs[pair]
		b.buffer = append(b.buffer, PairEvent{kind: exitKind(isTrigger), A: pair.a, B: pair.b})
		delete(b.triggerPairs, pair)
	}

	b.previousActivePairs, b.currentActivePairs = b.currentActivePairs, b.previousActivePairs
	for k := range b.currentActivePairs {
		delete(b.currentActivePairs, k)
	}

	for _, event := range b.buffer {
		for _, listener := range b.listeners[event.Type()] {
			listener(event)
		}
	}
	b.buffer = b.buffer[:0]
}

func pairEvent(pair pairKey, isTrigger, stay bool) PairEvent {
	kind := CollisionEnter
	switch {
	case isTrigger && stay:
		kind = TriggerStay
	case isTrigger && !stay:
		kind = TriggerEnter
	case !isTrigger && stay:
		kind = CollisionStay
	case !isTrigger && !stay:
		kind = CollisionEnter
	}
	return PairEvent{kind: kind, A: pair.a, B: pair.b}
}

func exitKind(isTrigger bool) Type {
	if isTrigger {
		return TriggerExit
	}
	return CollisionExit
}
