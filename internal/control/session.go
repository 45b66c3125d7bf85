// Package control owns editing sessions: it applies brushes to a height
// field, journals them for undo, and schedules remeshing of the regions
// they touched.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/terrasync/internal/dirty"
	"github.com/Faultbox/terrasync/internal/edit"
	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/history"
	"github.com/Faultbox/terrasync/internal/terrain"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Config holds the tunables of a session.
type Config struct {
	Debounce           time.Duration
	MaxWait            time.Duration // longest a pending edit waits while edits keep arriving; 0 disables
	FlushAreaThreshold int
	SubscriberBuffer   int
	HistoryEntries     int

	Spacing      float32
	HeightScale  float32
	StrictBounds bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Debounce:           40 * time.Millisecond,
		MaxWait:            250 * time.Millisecond,
		FlushAreaThreshold: 4096,
		SubscriberBuffer:   16,
		HistoryEntries:     history.DefaultMaxEntries,
		Spacing:            1,
		HeightScale:        1,
		StrictBounds:       true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.MaxWait < 0 {
		c.MaxWait = 0
	}
	if c.FlushAreaThreshold < 0 {
		c.FlushAreaThreshold = 0
	}
	if c.SubscriberBuffer < 0 {
		c.SubscriberBuffer = 0
	}
	if c.Spacing <= 0 {
		c.Spacing = d.Spacing
	}
	if c.HeightScale == 0 {
		c.HeightScale = d.HeightScale
	}
	return c
}

// Option customizes Open.
type Option func(*options)

type options struct {
	log    *zap.Logger
	mesher Mesher
	id     string
}

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMesher replaces the terrain mesher.
func WithMesher(m Mesher) Option {
	return func(o *options) { o.mesher = m }
}

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// Session is one editable height field with its remesh pipeline.
type Session struct {
	id      string
	field   *heightfield.Field
	tracker *dirty.Tracker
	journal *history.Journal
	sched   *Scheduler
	log     *zap.Logger

	// mu serializes edits against Close.
	mu        sync.RWMutex
	// editMu keeps field writes and journal records in the same order.
	editMu    sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Open creates a session over a rows x cols field. initial may be nil for
// a flat field, otherwise it must hold rows*cols row-major samples.
func Open(cfg Config, rows, cols int, initial []float64, opts ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.id == "" {
		o.id = uuid.New().String()
	}

	var (
		field *heightfield.Field
		err   error
	)
	if initial == nil {
		field, err = heightfield.New(rows, cols)
	} else {
		field, err = heightfield.FromSamples(rows, cols, initial)
	}
	if err != nil {
		return nil, fmt.Errorf("creating height field: %w", err)
	}

	journal, err := history.New(cfg.HistoryEntries)
	if err != nil {
		return nil, fmt.Errorf("creating history: %w", err)
	}

	log := o.log.With(zap.String("session", o.id))
	if o.mesher == nil {
		o.mesher = terrain.NewMesher(cfg.Spacing, cfg.HeightScale, cfg.StrictBounds, log)
	}

	tracker := dirty.NewTracker()
	s := &Session{
		id:      o.id,
		field:   field,
		tracker: tracker,
		journal: journal,
		sched:   newScheduler(o.id, field, tracker, o.mesher, cfg, log),
		log:     log,
		closed:  make(chan struct{}),
	}
	log.Info("session opened",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Duration("debounce", cfg.Debounce),
		zap.Duration("max_wait", cfg.MaxWait),
		zap.Int("flush_area", cfg.FlushAreaThreshold))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Field returns the edited height field. Callers must not write to it
// directly or the affected regions will never be remeshed.
func (s *Session) Field() *heightfield.Field { return s.field }

// Generation returns the generation of the most recent flush.
func (s *Session) Generation() uint64 { return s.sched.Generation() }

// State returns the scheduler state.
func (s *Session) State() State { return s.sched.State() }

// PendingArea returns the number of samples waiting to be remeshed.
func (s *Session) PendingArea() int { return s.tracker.Area() }

// History returns the number of undo and redo steps available.
func (s *Session) History() (undo, redo int) { return s.journal.Len() }

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// ApplyBrush applies b to the field, journals the change and marks the
// touched rect dirty. It returns as soon as the field is updated.
func (s *Session) ApplyBrush(b edit.Brush) (edit.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isClosed() {
		return edit.Diff{}, ErrSessionClosed
	}
	s.editMu.Lock()
	defer s.editMu.Unlock()
	d, err := edit.Apply(s.field, b)
	if err != nil {
		s.log.Debug("brush rejected", zap.Stringer("kind", b.Kind), zap.Error(err))
		return edit.Diff{}, err
	}
	if err := s.journal.Record(d); err != nil {
		s.log.Warn("failed to journal edit", zap.Stringer("rect", d.Rect), zap.Error(err))
	}
	s.sched.MarkDirty(d.Rect)
	return d, nil
}

// Undo reverts the most recent edit.
func (s *Session) Undo() (edit.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isClosed() {
		return edit.Diff{}, ErrSessionClosed
	}
	s.editMu.Lock()
	defer s.editMu.Unlock()
	var applied edit.Diff
	_, err := s.journal.Undo(func(d edit.Diff) error {
		var err error
		applied, err = edit.Revert(s.field, d)
		return err
	})
	if err != nil {
		return edit.Diff{}, err
	}
	s.sched.MarkDirty(applied.Rect)
	return applied, nil
}

// Redo re-applies the most recently undone edit.
func (s *Session) Redo() (edit.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isClosed() {
		return edit.Diff{}, ErrSessionClosed
	}
	s.editMu.Lock()
	defer s.editMu.Unlock()
	var applied edit.Diff
	_, err := s.journal.Redo(func(d edit.Diff) error {
		var err error
		applied, err = edit.ApplyDiff(s.field, d)
		return err
	})
	if err != nil {
		return edit.Diff{}, err
	}
	s.sched.MarkDirty(applied.Rect)
	return applied, nil
}

// Commit remeshes all pending edits before returning.
func (s *Session) Commit(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.sched.Commit(ctx)
}

// Subscribe returns a channel of patch sets and a function that cancels
// the subscription.
func (s *Session) Subscribe() (<-chan PatchSet, func()) {
	return s.sched.Subscribe()
}

// OnPatchesReady registers fn to be called with every patch set.
func (s *Session) OnPatchesReady(fn func(PatchSet)) func() {
	return s.sched.OnPatchesReady(fn)
}

// Close stops the scheduler. A mesh pass in flight completes but its
// output is discarded.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closed)
		s.mu.Unlock()
		s.sched.close()
		s.journal.Close()
		s.log.Info("session closed", zap.Uint64("generation", s.sched.Generation()))
	})
	return nil
}
