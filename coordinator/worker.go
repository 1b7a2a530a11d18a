package coordinator

import (
	"go.uber.org/zap"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/broadphase"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/events"
	"github.com/quillphysics/quill/island"
	"github.com/quillphysics/quill/materials"
	"github.com/quillphysics/quill/narrowphase"
	"github.com/quillphysics/quill/solver"
)

// Worker simulates one island independently in its own goroutine, on a
// private copy of that island's bodies, per spec.md §4.9. It owns its
// own broadphase/narrowphase pair so contact generation for bodies
// already resident in the island never touches the coordinator's
// authoritative store; only entity, body and joint changes, settings
// changes, collision exclusions and the terminate signal cross the
// inbox, and only updated body state and the terminate notice cross
// the outbox.
type Worker struct {
	id     island.ID
	logger *zap.Logger

	jobs   *JobQueue
	inbox  chan Delta
	outbox chan Delta

	store *entity.Store // local handle allocator for manifold/contact-edge bookkeeping

	bodies map[entity.Handle]*body.RigidBody
	graph  *entity.Graph
	joints map[entity.Handle]constraint.Constraint // joint edge -> constraint
	jointEndpoints map[entity.Handle][2]entity.Handle

	broadphase *broadphase.Phase
	manifolds  *narrowphase.Manifolds
	mix        *materials.MixTable

	velocity *solver.Velocity
	position *solver.Position

	sleepMgr *island.Manager // single-island private manager, used only for sleep/UpdateSleep bookkeeping
	eventsBus *events.Bus
	excluded  map[broadphase.Pair]bool

	settings    Settings
	terminating bool
	wakePending bool
}

func newWorker(id island.ID, settings Settings, mix *materials.MixTable, logger *zap.Logger) *Worker {
	w := &Worker{
		id:             id,
		logger:         logger.With(zap.Uint32("island", uint32(id))),
		jobs:           NewJobQueue(),
		inbox:          make(chan Delta, 16),
		outbox:         make(chan Delta, 16),
		store:          entity.NewStore(),
		bodies:         make(map[entity.Handle]*body.RigidBody),
		graph:          entity.NewGraph(),
		joints:         make(map[entity.Handle]constraint.Constraint),
		jointEndpoints: make(map[entity.Handle][2]entity.Handle),
		broadphase:     broadphase.NewPhase(body.ContactBreakingThreshold),
		manifolds:      narrowphase.NewManifolds(),
		mix:            mix,
		velocity:       solver.NewVelocity(),
		position:       solver.NewPosition(),
		sleepMgr:       island.NewManager(),
		eventsBus:      events.NewBus(),
		excluded:       make(map[broadphase.Pair]bool),
		settings:       settings,
	}
	w.velocity.Iterations = settings.VelocityIterations
	w.position.Iterations = settings.PositionIterations
	return w
}

func (w *Worker) lookup(h entity.Handle) (*body.RigidBody, bool) {
	rb, ok := w.bodies[h]
	return rb, ok
}

// Run is the worker's goroutine body: pop a job, run it, loop until the
// queue is closed by Terminate. The initial job is pushed by the
// coordinator right after construction.
func (w *Worker) Run() {
	for {
		job, ok := w.jobs.Pop()
		if !ok {
			return
		}
		job()
	}
}

// runIfDue is the job StepSimulation pushes onto this worker's queue
// every coordinator tick: drain the inbox, then skip the physics pass
// entirely if the island is asleep with nothing pending to wake it
// (spec.md §5's suspension-point rule), otherwise run exactly one fixed
// step and ship the result.
func (w *Worker) runIfDue(dt float64) {
	w.drainInbox()
	if w.terminating {
		w.outbox <- NewDeltaBuilder().Terminate().Build()
		close(w.outbox)
		w.jobs.Close()
		return
	}

	if w.isSleeping() && !w.wakePending {
		return
	}
	w.wakePending = false

	w.runStep(dt)
}

func (w *Worker) isSleeping() bool {
	for _, isl := range w.sleepMgr.Islands() {
		if !isl.Sleeping {
			return false
		}
	}
	return len(w.sleepMgr.Islands()) > 0
}

// query runs f synchronously inside the worker's own goroutine,
// blocking the caller until it completes -- used for read-only lookups
// (ManifoldExists) that need a consistent view of private worker state
// without racing its step loop. Safe only while the worker is known to
// still be running; the coordinator only calls this through its
// workers map, which drops an entry as soon as that worker terminates.
func (w *Worker) query(f func()) {
	done := make(chan struct{})
	w.jobs.Push(func() { f(); close(done) })
	<-done
}

func (w *Worker) drainInbox() {
	for {
		select {
		case delta := <-w.inbox:
			w.applyInboundDelta(delta)
		default:
			return
		}
	}
}

func (w *Worker) applyInboundDelta(delta Delta) {
	if delta.Terminating {
		w.terminating = true
	}
	if delta.Settings != nil {
		w.settings = *delta.Settings
		w.velocity.Iterations = w.settings.VelocityIterations
		w.position.Iterations = w.settings.PositionIterations
	}

	for _, h := range delta.CreatedEntities {
		w.graph.InsertNode(h, true)
	}
	for _, snap := range delta.CreatedBodies {
		rb := snap.Body
		w.bodies[snap.Handle] = &rb
		connecting := rb.Kind == body.Dynamic
		w.graph.InsertNode(snap.Handle, connecting)
		w.sleepMgr.Insert([]entity.Handle{snap.Handle}, map[entity.Handle]bool{snap.Handle: connecting}, nil)
		w.wakePending = true
	}
	for _, e := range delta.CreatedEdges {
		w.graph.InsertEdge(e.Handle, e.Node0, e.Node1)
		w.jointEndpoints[e.Handle] = [2]entity.Handle{e.Node0, e.Node1}
		w.sleepMgr.Insert(nil, e.Connecting, []island.EdgeDef{e.EdgeDef})
		if e.Build != nil {
			if a, okA := w.bodies[e.Node0]; okA {
				if b, okB := w.bodies[e.Node1]; okB {
					w.joints[e.Handle] = e.Build(a, b)
				}
			}
		}
		w.wakePending = true
	}
	for _, snap := range delta.UpdatedBodies {
		if rb, ok := w.bodies[snap.Handle]; ok {
			*rb = snap.Body
		}
		w.wakePending = true
	}
	for _, h := range delta.DestroyedEdges {
		w.sleepMgr.RemoveEdge(h)
		w.graph.RemoveEdge(h)
		delete(w.joints, h)
		delete(w.jointEndpoints, h)
	}
	for _, h := range delta.DestroyedEntities {
		w.graph.RemoveNode(h)
		w.broadphase.Remove(h)
		delete(w.bodies, h)
	}
	for _, p := range delta.ExcludedPairs {
		w.excluded[broadphase.MakePair(p.A, p.B)] = true
	}
}

// runStep performs exactly the §4.2-4.7 pipeline over this worker's
// resident bodies: broadphase refit/pair discovery, manifold
// maintenance, constraint row preparation, velocity solve, position
// integration, position correction, sleep update, then ships the
// result back to the coordinator.
func (w *Worker) runStep(dt float64) {
	handles := make([]entity.Handle, 0, len(w.bodies))
	for h := range w.bodies {
		handles = append(handles, h)
	}

	w.broadphase.Step(handles, w.lookup, body.ContactBreakingThreshold, func(a, bHandle entity.Handle) entity.Handle {
		edge := w.store.Create()
		return edge
	})

	existing := w.broadphase.Pairs.All()
	pairs := make([]narrowphase.Pair, 0, len(existing))
	for _, p := range existing {
		if w.excluded[p] {
			continue
		}
		pairs = append(pairs, narrowphase.Pair{A: p.A, B: p.B})
	}
	w.manifolds.Step(pairs, w.lookup, w.mix.Mix)

	constraints := make([]constraint.Constraint, 0, len(pairs)+len(w.joints))
	for _, p := range pairs {
		mf, ok := w.manifolds.Find(p.A, p.B)
		if !ok || len(mf.Points) == 0 {
			continue
		}
		bodyA, okA := w.lookup(mf.A)
		bodyB, okB := w.lookup(mf.B)
		if !okA || !okB {
			continue
		}
		cc := &constraint.ContactConstraint{BodyA: bodyA, BodyB: bodyB, Manifold: mf, DedicatedRestitution: true}
		constraints = append(constraints, cc)
		w.eventsBus.RecordPair(mf.A, mf.B, bodyA.IsSensor() || bodyB.IsSensor())
	}
	for _, j := range w.joints {
		constraints = append(constraints, j)
	}

	allRows := prepareAll(constraints, dt)
	w.velocity.Solve(allRows, true)

	gravity := w.settings.Gravity
	for _, rb := range w.bodies {
		rb.Integrate(dt, gravity)
	}

	w.position.Solve(dt, constraints, func() float64 { return maxPenetration(constraints) })

	w.sleepMgr.UpdateSleep(dt, w.lookup)
	for h, rb := range w.bodies {
		w.eventsBus.RecordSleepState(h, rb.Sleeping)
	}
	w.eventsBus.Flush()

	out := NewDeltaBuilder()
	for h, rb := range w.bodies {
		out.UpdateBody(h, *rb)
	}
	select {
	case w.outbox <- out.Build():
	default:
		w.logger.Warn("outbox full, dropping delta")
	}
}

func prepareAll(constraints []constraint.Constraint, dt float64) []constraint.Row {
	var rows []constraint.Row
	for _, c := range constraints {
		rows = append(rows, c.Prepare(dt)...)
	}
	return rows
}

func maxPenetration(constraints []constraint.Constraint) float64 {
	worst := 0.0
	for _, c := range constraints {
		cc, ok := c.(*constraint.ContactConstraint)
		if !ok {
			continue
		}
		for _, p := range cc.Manifold.Points {
			pen := -p.Distance
			if pen > worst {
				worst = pen
			}
		}
	}
	return worst
}
