package island

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"
)

// Lookup resolves a node handle to its rigid body, for islands whose
// members live in a store the Manager does not own (the coordinator's
// registry, or a worker's private view).
type Lookup func(entity.Handle) (*body.RigidBody, bool)

// UpdateSleep runs the sleep trigger of spec.md §4.8 for every island:
// an island whose dynamic members have all stayed below the linear and
// angular thresholds for TimeToSleep seconds is put to sleep and its
// members' velocities are zeroed; any member tagged SleepDisabled
// vetoes the island ever sleeping; an island with no dynamic member at
// all (a lone static anchor with no dynamic neighbors reached yet) is
// left awake rather than trivially "sleeping".
func (m *Manager) UpdateSleep(dt float64, lookup Lookup) {
	for _, isl := range m.islands {
		m.updateIslandSleep(isl, dt, lookup)
	}
}

func (m *Manager) updateIslandSleep(isl *Island, dt float64, lookup Lookup) {
	hasDynamic := false
	belowThreshold := true
	vetoed := false

	for h := range isl.Nodes {
		rb, ok := lookup(h)
		if !ok || rb.Kind != body.Dynamic {
			continue
		}
		hasDynamic = true
		if rb.SleepDisabled {
			vetoed = true
		}
		if rb.LinearVelocity.Len() > m.LinearSleepThreshold ||
			rb.AngularVelocity.Len() > m.AngularSleepThreshold {
			belowThreshold = false
		}
	}

	if !hasDynamic || vetoed {
		isl.sleepTimer = 0
		if isl.Sleeping {
			isl.Sleeping = false
			wakeMembers(isl, lookup)
		}
		return
	}

	if !belowThreshold {
		isl.sleepTimer = 0
		if isl.Sleeping {
			isl.Sleeping = false
			wakeMembers(isl, lookup)
		}
		return
	}

	if isl.Sleeping {
		return
	}

	isl.sleepTimer += dt
	if isl.sleepTimer < m.TimeToSleep {
		return
	}

	isl.Sleeping = true
	isl.sleepTimer = 0
	for h := range isl.Nodes {
		rb, ok := lookup(h)
		if !ok || rb.Kind != body.Dynamic {
			continue
		}
		rb.Sleeping = true
		rb.LinearVelocity = mgl64.Vec3{}
		rb.AngularVelocity = mgl64.Vec3{}
	}
}

func wakeMembers(isl *Island, lookup Lookup) {
	for h := range isl.Nodes {
		rb, ok := lookup(h)
		if !ok {
			continue
		}
		rb.Wake()
	}
}
