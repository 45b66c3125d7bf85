package preview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/terrasync/internal/control"
	"github.com/Faultbox/terrasync/internal/edit"
	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/terrain"
)

func fullMesh(t *testing.T, f *heightfield.Field) *terrain.Patch {
	t.Helper()
	p, err := terrain.NewMesher(1, 1, true, nil).Mesh(f, f.Bounds())
	if err != nil {
		t.Fatalf("full Mesh failed: %v", err)
	}
	return p
}

func TestSurface_MatchesFullRemesh(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Debounce = time.Hour
	cfg.MaxWait = 0
	s, err := control.Open(cfg, 16, 16, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	surf, err := NewSurface(16, 16)
	if err != nil {
		t.Fatalf("NewSurface failed: %v", err)
	}
	if err := surf.Load(fullMesh(t, s.Field())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()

	brushes := []edit.Brush{
		edit.Radial(4, 4, 3, 2, edit.ModeAdd, edit.FalloffSmooth),
		edit.Radial(0, 15, 2, -1, edit.ModeSet, edit.FalloffLinear),
		edit.Fill(heightfield.Rect{MinRow: 10, MinCol: 2, MaxRow: 15, MaxCol: 6}, 0.5, edit.ModeAdd),
		edit.Stamp(12, 12, 4, 0.8, 0.3, 7),
	}
	for i, b := range brushes {
		if _, err := s.ApplyBrush(b); err != nil {
			t.Fatalf("brush %d: %v", i, err)
		}
		if i%2 == 1 {
			if err := s.Commit(context.Background()); err != nil {
				t.Fatalf("Commit failed: %v", err)
			}
		}
	}

	for gen := uint64(1); gen <= 2; gen++ {
		select {
		case set := <-ch:
			if set.Generation != gen {
				t.Fatalf("generation = %d, want %d", set.Generation, gen)
			}
			if _, err := surf.Apply(set); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for generation %d", gen)
		}
	}

	want := fullMesh(t, s.Field()).Vertices
	if diff := cmp.Diff(want, surf.Vertices()); diff != "" {
		t.Errorf("surface differs from full remesh (-want +got):\n%s", diff)
	}
	if surf.Generation() != 2 {
		t.Errorf("surface generation = %d, want 2", surf.Generation())
	}
}

func patchAt(t *testing.T, f *heightfield.Field, r heightfield.Rect, gen uint64) *terrain.Patch {
	t.Helper()
	p, err := terrain.NewMesher(1, 1, true, nil).Mesh(f, r)
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	p.Generation = gen
	return p
}

func TestSurface_DiscardsStalePatches(t *testing.T) {
	surf, _ := NewSurface(4, 4)
	f, _ := heightfield.New(4, 4)

	_ = f.Set(1, 1, 1)
	older := patchAt(t, f, heightfield.Cell(1, 1), 1)
	_ = f.Set(1, 1, 5)
	newer := patchAt(t, f, heightfield.Cell(1, 1), 2)

	if _, err := surf.Apply(control.PatchSet{Generation: 2, Patches: []*terrain.Patch{newer}}); err != nil {
		t.Fatalf("Apply newer failed: %v", err)
	}
	st, err := surf.Apply(control.PatchSet{Generation: 1, Patches: []*terrain.Patch{older}})
	if err != nil {
		t.Fatalf("Apply older failed: %v", err)
	}
	if st.Skipped != 1 || st.Vertices != 0 {
		t.Errorf("stats = %+v, want the stale patch skipped", st)
	}

	v, gen, ok := surf.Vertex(1, 1)
	if !ok {
		t.Fatal("Vertex(1, 1) not found")
	}
	if gen != 2 || v.Position[1] != 5 {
		t.Errorf("vertex = %v at generation %d, want height 5 at generation 2", v.Position, gen)
	}
	if surf.Generation() != 2 {
		t.Errorf("surface generation = %d, want 2", surf.Generation())
	}
}

func TestSurface_RejectsForeignPatches(t *testing.T) {
	surf, _ := NewSurface(2, 2)
	f, _ := heightfield.New(4, 4)

	_, err := surf.Apply(control.PatchSet{Generation: 1, Patches: []*terrain.Patch{patchAt(t, f, heightfield.Cell(3, 3), 1)}})
	if !errors.Is(err, heightfield.ErrOutOfBounds) {
		t.Errorf("Apply error = %v, want ErrOutOfBounds", err)
	}
	if err := surf.Load(fullMesh(t, f)); !errors.Is(err, heightfield.ErrOutOfBounds) {
		t.Errorf("Load error = %v, want ErrOutOfBounds", err)
	}
	if _, err := NewSurface(0, 3); !errors.Is(err, heightfield.ErrInvalidSize) {
		t.Errorf("NewSurface error = %v, want ErrInvalidSize", err)
	}
}

func TestSurface_FollowStops(t *testing.T) {
	surf, _ := NewSurface(4, 4)
	f, _ := heightfield.New(4, 4)

	ch := make(chan control.PatchSet, 1)
	var rejected []error
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		surf.Follow(ctx, ch, func(err error) { rejected = append(rejected, err) })
		close(done)
	}()

	ch <- control.PatchSet{Generation: 1, Patches: []*terrain.Patch{patchAt(t, f, heightfield.Cell(2, 2), 1)}}
	deadline := time.Now().Add(2 * time.Second)
	for surf.Generation() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Follow did not apply the patch set")
		}
		time.Sleep(time.Millisecond)
	}

	// Cancelling stops Follow even though ch stays open.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow kept running after cancel")
	}
	if len(rejected) != 0 {
		t.Errorf("unexpected errors: %v", rejected)
	}
}
