// Package coordinator implements the foreground/background split of
// spec.md §4.9: the Coordinator owns the authoritative entity store and
// island partitioning; each Worker simulates one island independently
// in its own goroutine over a private body set, exchanging batched
// Deltas rather than sharing mutable state directly.
package coordinator

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/island"
	"github.com/quillphysics/quill/materials"
)

// MaxCatchUpSteps caps how many fixed steps Update will run in one
// call after a long pause, per spec.md §5's "lag-capped catch-up" rule
// -- without it, resuming after the process was suspended for minutes
// would otherwise try to replay all of it in one call.
const MaxCatchUpSteps = 8

// Coordinator is the Runtime object spec.md §9 calls for: the job
// dispatcher and message dispatcher are not package-level globals, they
// live here, tied to New/Detach's lifecycle so tests stay hermetic.
type Coordinator struct {
	logger *zap.Logger

	store  *entity.Store
	bodies map[entity.Handle]*body.RigidBody

	islands *island.Manager
	workers map[island.ID]*Worker

	// statics lists every static/kinematic body's handle. These never
	// seed an island on their own (island.Manager.Insert only reacts to
	// connecting/dynamic seeds), so each one is instead broadcast to
	// every worker directly: static geometry has to be visible to
	// whichever island ends up simulating a dynamic body near it, and
	// contacts are never graph edges that would otherwise carry it
	// there (see DESIGN.md).
	statics []entity.Handle

	mix *materials.MixTable

	settings Settings
	accum    float64
}

func New(settings Settings, mix *materials.MixTable, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		logger:   logger,
		store:    entity.NewStore(),
		bodies:   make(map[entity.Handle]*body.RigidBody),
		islands:  island.NewManager(),
		workers:  make(map[island.ID]*Worker),
		mix:      mix,
		settings: settings,
	}
	c.islands.Bodies = c.lookup
	return c
}

func (c *Coordinator) lookup(h entity.Handle) (*body.RigidBody, bool) {
	rb, ok := c.bodies[h]
	return rb, ok
}

// CreateBody registers rb, per spec.md §6's make_rigidbody. A dynamic
// body is given a singleton island and a worker for it; a static or
// kinematic body gets neither and is instead sent to every worker that
// currently exists.
func (c *Coordinator) CreateBody(rb *body.RigidBody) entity.Handle {
	h := c.store.Create()
	c.bodies[h] = rb
	connecting := rb.Kind == body.Dynamic

	if !connecting {
		c.statics = append(c.statics, h)
		for _, w := range c.workers {
			w.inbox <- NewDeltaBuilder().CreateEntity(h).CreateBody(h, *rb).Build()
		}
		c.logger.Debug("static body created", zap.Stringer("handle", h))
		return h
	}

	touched := c.islands.Insert([]entity.Handle{h}, map[entity.Handle]bool{h: connecting}, nil)
	for _, isl := range touched {
		c.ensureWorker(isl.ID)
		c.workers[isl.ID].inbox <- NewDeltaBuilder().
			CreateEntity(h).
			CreateBody(h, *rb).
			WithSettings(c.settings).
			Build()
	}
	c.logger.Debug("body created", zap.Stringer("handle", h), zap.Int("kind", int(rb.Kind)))
	return h
}

// DestroyBody removes a body from the registry and every worker holding it.
func (c *Coordinator) DestroyBody(h entity.Handle) {
	rb, known := c.bodies[h]
	delete(c.bodies, h)
	c.store.Destroy(h)
	if !known {
		return
	}

	if rb.Kind != body.Dynamic {
		for i, s := range c.statics {
			if s == h {
				c.statics = append(c.statics[:i], c.statics[i+1:]...)
				break
			}
		}
		for _, w := range c.workers {
			w.inbox <- NewDeltaBuilder().DestroyEntity(h).Build()
		}
		return
	}

	if isl, ok := c.islands.IslandOf(h); ok {
		if w, ok := c.workers[isl.ID]; ok {
			w.inbox <- NewDeltaBuilder().DestroyEntity(h).Build()
		}
	}
}

// JointFactory builds the actual constraint once both endpoints'
// worker-local rigid-body pointers are known.
type JointFactory func(a, b *body.RigidBody) constraint.Constraint

// CreateJoint adds a graph edge between a and b whose constraint is
// built by factory once it reaches the owning worker, merging islands
// if the two bodies were not already resident in the same one, per
// spec.md §6's make_constraint.
func (c *Coordinator) CreateJoint(a, b entity.Handle, factory JointFactory) entity.Handle {
	edge := c.store.Create()

	beforeA, _ := c.islands.IslandOf(a)
	beforeB, _ := c.islands.IslandOf(b)

	touched := c.islands.Insert(nil, nil, []island.EdgeDef{{Handle: edge, Node0: a, Node1: b}})
	if len(touched) != 1 {
		return edge
	}
	survivor := touched[0]
	c.ensureWorker(survivor.ID)
	w := c.workers[survivor.ID]

	// Reconcile any worker whose island no longer exists: its bodies
	// moved into survivor, so tell survivor's worker about them and
	// terminate the absorbed worker.
	for _, old := range []*island.Island{beforeA, beforeB} {
		if old == nil || old.ID == survivor.ID {
			continue
		}
		if _, stillExists := c.islandByID(old.ID); stillExists {
			continue
		}
		c.migrateBodies(old, w)
		c.terminateWorker(old.ID)
	}

	connectingA := c.bodies[a].Kind == body.Dynamic
	connectingB := c.bodies[b].Kind == body.Dynamic
	w.inbox <- NewDeltaBuilder().
		CreateEdge(island.EdgeDef{Handle: edge, Node0: a, Node1: b}, map[entity.Handle]bool{a: connectingA, b: connectingB}, factory).
		Build()

	c.logger.Debug("joint created", zap.Stringer("edge", edge), zap.Uint32("island", uint32(survivor.ID)))
	return edge
}

// RemoveJoint detaches a joint edge, potentially splitting its island;
// any newly created island gets its own worker, seeded with the bodies
// that ended up resident there.
func (c *Coordinator) RemoveJoint(edge entity.Handle) {
	old, ok := c.islandByEdge(edge)
	if !ok {
		return
	}
	w, ok := c.workers[old]
	if ok {
		// The worker deletes its own joints/jointEndpoints entries when
		// it applies this delta inside its own goroutine; reaching into
		// those maps from here would race its step loop.
		w.inbox <- NewDeltaBuilder().DestroyEdge(edge).Build()
	}

	result := c.islands.RemoveEdge(edge)
	if result == nil {
		return
	}

	for _, isl := range c.islands.Islands() {
		if isl.ID == old {
			continue
		}
		if _, known := c.workers[isl.ID]; known {
			continue
		}
		// A fresh island split off; give it its own worker and move
		// its bodies out of the old worker.
		c.ensureWorker(isl.ID)
		c.migrateBodies(isl, c.workers[isl.ID])
		if w != nil {
			for h := range isl.Nodes {
				w.inbox <- NewDeltaBuilder().DestroyEntity(h).Build()
			}
		}
	}
}

func (c *Coordinator) migrateBodies(isl *island.Island, to *Worker) {
	for h := range isl.Nodes {
		rb, ok := c.bodies[h]
		if !ok {
			continue
		}
		to.inbox <- NewDeltaBuilder().CreateEntity(h).CreateBody(h, *rb).Build()
	}
}

func (c *Coordinator) ensureWorker(id island.ID) {
	if _, ok := c.workers[id]; ok {
		return
	}
	w := newWorker(id, c.settings, c.mix, c.logger)
	c.workers[id] = w
	go w.Run()
	w.jobs.Push(func() {}) // prime the loop so Run doesn't block forever on an empty queue before the first real job

	for _, h := range c.statics {
		rb, ok := c.bodies[h]
		if !ok {
			continue
		}
		w.inbox <- NewDeltaBuilder().CreateEntity(h).CreateBody(h, *rb).Build()
	}
}

// terminateWorker removes id from the live set, then pushes the
// Terminate delta and a job to process it directly: once removed from
// c.workers no future StepSimulation tick will ever reach that worker
// again, so its shutdown has to be driven explicitly here rather than
// waiting for the next step to pick the delta out of the inbox.
func (c *Coordinator) terminateWorker(id island.ID) {
	w, ok := c.workers[id]
	if !ok {
		return
	}
	delete(c.workers, id)
	w.inbox <- NewDeltaBuilder().Terminate().Build()
	w.jobs.Push(func() { w.runIfDue(0) })
}

func (c *Coordinator) islandByID(id island.ID) (*island.Island, bool) {
	for _, isl := range c.islands.Islands() {
		if isl.ID == id {
			return isl, true
		}
	}
	return nil, false
}

func (c *Coordinator) islandByEdge(edge entity.Handle) (island.ID, bool) {
	node0, node1, ok := c.islands.Graph().Endpoints(edge)
	if !ok {
		return 0, false
	}
	if isl, ok := c.islands.IslandOf(node0); ok {
		return isl.ID, true
	}
	if isl, ok := c.islands.IslandOf(node1); ok {
		return isl.ID, true
	}
	return 0, false
}

// StepSimulation advances every active island by exactly one fixed
// step, running workers concurrently via errgroup since islands never
// share mutable state (spec.md §5 level 1), then syncs results back
// into the authoritative store. Used directly while paused, and once
// per accumulator drain by Update otherwise.
func (c *Coordinator) StepSimulation() {
	fixedDT := c.settings.FixedDT
	if fixedDT <= 0 {
		fixedDT = 1.0 / 60.0
	}

	group, _ := errgroup.WithContext(context.Background())
	workers := make([]*Worker, 0, len(c.workers))
	for _, w := range c.workers {
		workers = append(workers, w)
	}
	for _, w := range workers {
		w := w
		group.Go(func() error {
			done := make(chan struct{})
			w.jobs.Push(func() {
				w.runIfDue(fixedDT)
				close(done)
			})
			<-done
			return nil
		})
	}
	_ = group.Wait()

	for _, w := range workers {
		c.drainOutbox(w)
	}
}

func (c *Coordinator) drainOutbox(w *Worker) {
	for {
		select {
		case delta, ok := <-w.outbox:
			if !ok {
				delete(c.workers, w.id)
				return
			}
			for _, snap := range delta.UpdatedBodies {
				if rb, ok := c.bodies[snap.Handle]; ok {
					*rb = snap.Body
				}
			}
		default:
			return
		}
	}
}

// Update drives one coordinator tick from a wall-clock time source,
// per spec.md §6: the accumulator here decides how many fixed steps
// worth of wall-clock time have elapsed, capped by MaxCatchUpSteps, and
// each of those steps runs through StepSimulation, which waits for
// every worker to finish it, so Update returns only once they are done.
func (c *Coordinator) Update(elapsed time.Duration) {
	if c.settings.Paused {
		return
	}
	fixedDT := c.settings.FixedDT
	if fixedDT <= 0 {
		fixedDT = 1.0 / 60.0
	}

	c.accum += elapsed.Seconds()
	steps := int(math.Floor(c.accum / fixedDT))
	if steps > MaxCatchUpSteps {
		c.logger.Warn("catch-up capped", zap.Int("requested", steps), zap.Int("cap", MaxCatchUpSteps))
		steps = MaxCatchUpSteps
		c.accum = 0
	} else {
		c.accum -= float64(steps) * fixedDT
	}

	for i := 0; i < steps; i++ {
		c.StepSimulation()
	}
}

// SetFixedDT, SetGravity, SetSolverVelocityIterations, and
// SetSolverPositionIterations propagate to every worker via a
// settings-change message, per spec.md §6. SetPaused only changes the
// coordinator's own settings, which Update checks; no message is sent
// to the workers.
func (c *Coordinator) SetPaused(paused bool)             { c.settings.Paused = paused }
func (c *Coordinator) SetFixedDT(dt float64)             { c.settings.FixedDT = dt; c.broadcastSettings() }
func (c *Coordinator) SetGravity(g mgl64.Vec3)           { c.settings.Gravity = g; c.broadcastSettings() }
func (c *Coordinator) SetSolverVelocityIterations(n int) { c.settings.VelocityIterations = n; c.broadcastSettings() }
func (c *Coordinator) SetSolverPositionIterations(n int) { c.settings.PositionIterations = n; c.broadcastSettings() }

func (c *Coordinator) broadcastSettings() {
	for _, w := range c.workers {
		w.inbox <- NewDeltaBuilder().WithSettings(c.settings).Build()
	}
}

// ExcludeCollision suppresses manifold generation between a and b, per
// spec.md §6's exclude_collision. Broadcast to every active worker
// rather than resolved to a single island: a static body never has
// island residency of its own (see the statics field above), so the
// pair's owning worker cannot always be looked up directly, and an
// unused exclusion entry on a worker that never sees this pair is
// harmless.
func (c *Coordinator) ExcludeCollision(a, b entity.Handle) {
	for _, w := range c.workers {
		w.inbox <- NewDeltaBuilder().ExcludePair(a, b).Build()
	}
}

// Settings returns the coordinator's current settings snapshot.
func (c *Coordinator) Settings() Settings { return c.settings }

// Body resolves a live handle to its rigid body in the authoritative
// store, for raycasts and queries the top-level quill package exposes.
func (c *Coordinator) Body(h entity.Handle) (*body.RigidBody, bool) {
	rb, ok := c.bodies[h]
	return rb, ok
}

// VisitBodies calls f for every live body in the authoritative store.
func (c *Coordinator) VisitBodies(f func(entity.Handle, *body.RigidBody)) {
	for h, rb := range c.bodies {
		f(h, rb)
	}
}

// VisitEdges calls f for every joint edge touching h, per spec.md §6's
// visit_edges. Contact manifolds never appear here: they live inside a
// worker's private graph, not the coordinator's joint graph.
func (c *Coordinator) VisitEdges(h entity.Handle, f func(neighbor, edge entity.Handle)) {
	c.islands.Graph().VisitNeighbors(h, f)
}

// ManifoldExists reports whether a and b currently have a live contact
// manifold with at least one point, checking whichever worker(s)
// currently host them. Deliberately checks the narrowphase manifold
// rather than the broadphase pair map: a broadphase pair can exist (an
// AABB overlap, tracked purely to avoid recreating its edge every step)
// even when ExcludeCollision or a degenerate separation keeps it from
// ever producing contact points. A manifold only ever lives inside a
// single worker's private narrowphase, so this stops at the first match.
func (c *Coordinator) ManifoldExists(a, b entity.Handle) bool {
	for _, w := range c.workers {
		result := false
		w.query(func() {
			mf, ok := w.manifolds.Find(a, b)
			result = ok && len(mf.Points) > 0
		})
		if result {
			return true
		}
	}
	return false
}

// GetManifoldEntity returns the manifold's broadphase-assigned edge
// handle for a and b, if a live manifold with contact points currently
// exists between them.
func (c *Coordinator) GetManifoldEntity(a, b entity.Handle) (entity.Handle, bool) {
	for _, w := range c.workers {
		var edge entity.Handle
		var found bool
		w.query(func() {
			mf, ok := w.manifolds.Find(a, b)
			if !ok || len(mf.Points) == 0 {
				return
			}
			edge, found = w.broadphase.Pairs.Manifold(a, b)
		})
		if found {
			return edge, true
		}
	}
	return entity.Handle{}, false
}

// RaycastHit pairs a body.RayHit with the entity it struck.
type RaycastHit struct {
	Handle entity.Handle
	Hit    body.RayHit
}

// Raycast finds the nearest body the segment from origin to target
// strikes, per spec.md §6's raycast. Queries the authoritative store
// directly: since it only ever reads transform/shape fields that are
// only ever mutated by a worker between syncs, this is safe to call
// between StepSimulation calls without going through query().
func (c *Coordinator) Raycast(origin, target mgl64.Vec3) (RaycastHit, bool) {
	delta := target.Sub(origin)
	maxDist := delta.Len()
	if maxDist < 1e-12 {
		return RaycastHit{}, false
	}
	dir := delta.Mul(1.0 / maxDist)

	var best RaycastHit
	found := false
	for h, rb := range c.bodies {
		box := rb.Shape.ComputeAABB(rb.Transform)
		if !body.IntersectAABB(box, origin, dir, maxDist) {
			continue
		}
		hit, ok := body.Raycast(rb.Shape, rb.Transform, origin, dir, maxDist)
		if !ok {
			continue
		}
		if !found || hit.Distance < best.Hit.Distance {
			best = RaycastHit{Handle: h, Hit: hit}
			found = true
		}
	}
	return best, found
}

// Detach terminates every worker, the inverse of New, per spec.md §8's
// "attach then detach leaves the registry with no engine-added
// components" round-trip law.
func (c *Coordinator) Detach() {
	for id := range c.workers {
		c.terminateWorker(id)
	}
	c.bodies = make(map[entity.Handle]*body.RigidBody)
	c.statics = nil
}
