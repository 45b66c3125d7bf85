package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terrasync/internal/dirty"
	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/terrain"
)

// State is the scheduler's position in its Idle → EditsPending → Meshing cycle.
type State int32

// Scheduler states.
const (
	StateIdle State = iota
	StateEditsPending
	StateMeshing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateEditsPending:
		return "EditsPending"
	case StateMeshing:
		return "Meshing"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// Mesher builds a patch for one rect of a field.
type Mesher interface {
	Mesh(f *heightfield.Field, r heightfield.Rect) (*terrain.Patch, error)
}

type subscriber struct {
	ch   chan PatchSet
	quit chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.quit) })
}

type commitRequest struct {
	result chan error
}

// Scheduler decides when pending edits are remeshed and delivers the
// resulting patch sets. Meshing runs on the scheduler's own goroutine, so
// edits are never blocked by a mesh pass.
type Scheduler struct {
	sessionID string
	field     *heightfield.Field
	tracker   *dirty.Tracker
	mesher    Mesher
	debounce  time.Duration
	maxWait   time.Duration
	flushArea int
	bufSize   int
	log       *zap.Logger

	generation atomic.Uint64

	stateMu         sync.Mutex
	state           State
	editsDuringMesh bool

	notify  chan struct{}
	commits chan commitRequest

	subMu   sync.Mutex
	subs    map[uint64]*subscriber
	nextSub uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newScheduler(sessionID string, field *heightfield.Field, tracker *dirty.Tracker, mesher Mesher, cfg Config, log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sessionID: sessionID,
		field:     field,
		tracker:   tracker,
		mesher:    mesher,
		debounce:  cfg.Debounce,
		maxWait:   cfg.MaxWait,
		flushArea: cfg.FlushAreaThreshold,
		bufSize:   cfg.SubscriberBuffer,
		log:       log,
		notify:    make(chan struct{}, 1),
		commits:   make(chan commitRequest),
		subs:      make(map[uint64]*subscriber),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Generation returns the generation of the last committed edit batch.
func (s *Scheduler) Generation() uint64 {
	return s.generation.Load()
}

// MarkDirty records r as needing a remesh and wakes the scheduler.
func (s *Scheduler) MarkDirty(r heightfield.Rect) {
	s.tracker.MarkDirty(r)

	s.stateMu.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateEditsPending
	case StateMeshing:
		s.editsDuringMesh = true
	}
	s.stateMu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Commit flushes pending edits now and waits for the result.
// A flush with failed rects returns a *PartialMeshFailure.
func (s *Scheduler) Commit(ctx context.Context) error {
	req := commitRequest{result: make(chan error, 1)}
	select {
	case s.commits <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a channel that receives every patch set produced
// after the call. The scheduler blocks on a full channel until the
// consumer catches up, the subscription is cancelled or the session
// closes. The channel is closed when the session closes.
func (s *Scheduler) Subscribe() (<-chan PatchSet, func()) {
	sub, cancel := s.subscribe()
	return sub.ch, cancel
}

func (s *Scheduler) subscribe() (*subscriber, func()) {
	sub := &subscriber{
		ch:   make(chan PatchSet, s.bufSize),
		quit: make(chan struct{}),
	}

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(sub.ch)
		sub.stop()
		return sub, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.subMu.Unlock()

	return sub, func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
		sub.stop()
	}
}

// OnPatchesReady runs fn on a dedicated goroutine for every patch set.
func (s *Scheduler) OnPatchesReady(fn func(PatchSet)) func() {
	sub, cancel := s.subscribe()
	go func() {
		for {
			select {
			case set, ok := <-sub.ch:
				if !ok {
					return
				}
				fn(set)
			case <-sub.quit:
				return
			}
		}
	}()
	return cancel
}

// close stops the loop, letting an in-flight flush finish; its output is
// discarded. Subscriber channels are closed afterwards.
func (s *Scheduler) close() {
	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		return
	}
	s.closed = true
	s.subMu.Unlock()

	s.cancel()
	<-s.done

	s.subMu.Lock()
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}

func (s *Scheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	var (
		timerC   <-chan time.Time
		deadline time.Time // zero while nothing is pending
	)

	// arm restarts the quiescence timer without letting it run past the
	// max-wait deadline of the oldest pending edit.
	arm := func() {
		wait := s.debounce
		if s.maxWait > 0 {
			if deadline.IsZero() {
				deadline = time.Now().Add(s.maxWait)
			}
			wait = max(min(wait, time.Until(deadline)), 0)
		}
		timer.Reset(wait)
		timerC = timer.C
	}
	flush := func() error {
		timer.Stop()
		timerC = nil
		deadline = time.Time{}
		return s.flush()
	}

	for {
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return

		case <-s.notify:
			if s.flushArea > 0 && s.tracker.Area() >= s.flushArea {
				s.log.Debug("dirty area over threshold, flushing",
					zap.Int("area", s.tracker.Area()),
					zap.Int("threshold", s.flushArea))
				_ = flush()
			} else {
				arm()
			}

		case <-timerC:
			_ = flush()

		case req := <-s.commits:
			req.result <- flush()
		}

		// Edits that raced with the pass are meshed on the next debounce.
		if timerC == nil && s.State() == StateEditsPending {
			arm()
		}
	}
}

// flush drains the tracker, meshes every rect and delivers the result.
func (s *Scheduler) flush() error {
	s.stateMu.Lock()
	s.state = StateMeshing
	s.editsDuringMesh = false
	s.stateMu.Unlock()

	region := s.tracker.Drain()
	if len(region) == 0 {
		s.settle()
		return nil
	}

	gen := s.generation.Add(1)
	start := time.Now()
	set := PatchSet{SessionID: s.sessionID, Generation: gen}
	var causes []error
	for _, r := range region {
		patch, err := s.mesher.Mesh(s.field, r)
		if err != nil {
			s.log.Error("mesh failed",
				zap.Uint64("generation", gen),
				zap.Stringer("rect", r),
				zap.Error(err))
			set.Failed = append(set.Failed, r)
			causes = append(causes, err)
			continue
		}
		patch.Generation = gen
		set.Patches = append(set.Patches, patch)
	}

	s.log.Debug("flushed",
		zap.Uint64("generation", gen),
		zap.Int("rects", len(region)),
		zap.Int("area", region.Area()),
		zap.Int("failed", len(set.Failed)),
		zap.Duration("took", time.Since(start)))

	s.deliver(set)
	s.settle()

	if len(set.Failed) > 0 {
		return &PartialMeshFailure{Generation: gen, Failed: set.Failed, Causes: causes}
	}
	return nil
}

func (s *Scheduler) settle() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.editsDuringMesh {
		s.log.Debug("edits arrived while meshing", zap.Int("pending_area", s.tracker.Area()))
	}
	if s.tracker.Empty() {
		s.state = StateIdle
	} else {
		s.state = StateEditsPending
	}
	s.editsDuringMesh = false
}

func (s *Scheduler) deliver(set PatchSet) {
	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		s.log.Debug("session closed, discarding patch set", zap.Uint64("generation", set.Generation))
		return
	}
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- set:
		case <-sub.quit:
		case <-s.ctx.Done():
			return
		}
	}
}
