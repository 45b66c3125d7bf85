// Package history keeps a bounded undo/redo journal of edit diffs.
//
// Diffs are stored zstd-compressed: brush strokes over mostly flat terrain
// compress well and a long editing session would otherwise hold every
// before/after sample in memory.
package history

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/terrasync/internal/edit"
	"github.com/Faultbox/terrasync/internal/heightfield"
)

// Journal errors.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrCorruptEntry  = errors.New("corrupt journal entry")
)

// DefaultMaxEntries is used when New is given a non-positive limit.
const DefaultMaxEntries = 256

type entry struct {
	rect heightfield.Rect
	blob []byte
}

// Journal records applied diffs. It is safe for concurrent use.
type Journal struct {
	mu         sync.Mutex
	enc        *zstd.Encoder
	dec        *zstd.Decoder
	undo       []entry
	redo       []entry
	maxEntries int
	size       int
}

// New creates a journal holding at most maxEntries undo steps.
func New(maxEntries int) (*Journal, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Journal{
		enc:        enc,
		dec:        dec,
		maxEntries: maxEntries,
	}, nil
}

// Close releases the codec resources.
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Close()
	j.dec.Close()
	j.undo, j.redo = nil, nil
	j.size = 0
}

// Record appends a diff to the undo stack and clears the redo stack.
// Diffs that change nothing are not recorded.
func (j *Journal) Record(d edit.Diff) error {
	if d.Empty() || !d.Changed() {
		return nil
	}
	e, err := j.encode(d)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, e)
	j.size += len(e.blob)
	for _, r := range j.redo {
		j.size -= len(r.blob)
	}
	j.redo = nil
	if len(j.undo) > j.maxEntries {
		j.size -= len(j.undo[0].blob)
		j.undo = j.undo[1:]
	}
	return nil
}

// Undo pops the most recent diff and passes it to apply. The entry moves
// to the redo stack only if apply succeeds.
func (j *Journal) Undo(apply func(edit.Diff) error) (edit.Diff, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.undo) == 0 {
		return edit.Diff{}, ErrNothingToUndo
	}
	e := j.undo[len(j.undo)-1]
	d, err := j.decode(e)
	if err != nil {
		return edit.Diff{}, err
	}
	if err := apply(d); err != nil {
		return edit.Diff{}, err
	}
	j.undo = j.undo[:len(j.undo)-1]
	j.redo = append(j.redo, e)
	return d, nil
}

// Redo pops the most recently undone diff and passes it to apply. The
// entry moves back to the undo stack only if apply succeeds.
func (j *Journal) Redo(apply func(edit.Diff) error) (edit.Diff, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.redo) == 0 {
		return edit.Diff{}, ErrNothingToRedo
	}
	e := j.redo[len(j.redo)-1]
	d, err := j.decode(e)
	if err != nil {
		return edit.Diff{}, err
	}
	if err := apply(d); err != nil {
		return edit.Diff{}, err
	}
	j.redo = j.redo[:len(j.redo)-1]
	j.undo = append(j.undo, e)
	return d, nil
}

// Len returns the number of undo and redo steps available.
func (j *Journal) Len() (undo, redo int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo), len(j.redo)
}

// Size returns the compressed bytes held by the journal.
func (j *Journal) Size() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Entry layout (little-endian): rect as 4 x int32, sample count as uint32,
// then count before values and count after values as float64 bits.
func (j *Journal) encode(d edit.Diff) (entry, error) {
	n := d.Rect.Area()
	if len(d.Before) != n || len(d.After) != n {
		return entry{}, fmt.Errorf("%w: diff has %d/%d values for %s",
			heightfield.ErrSampleMismatch, len(d.Before), len(d.After), d.Rect)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 20+16*n))
	header := [5]uint32{
		uint32(int32(d.Rect.MinRow)),
		uint32(int32(d.Rect.MinCol)),
		uint32(int32(d.Rect.MaxRow)),
		uint32(int32(d.Rect.MaxCol)),
		uint32(n),
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return entry{}, err
	}
	var word [8]byte
	for _, vals := range [][]float64{d.Before, d.After} {
		for _, v := range vals {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			buf.Write(word[:])
		}
	}

	return entry{rect: d.Rect, blob: j.enc.EncodeAll(buf.Bytes(), nil)}, nil
}

func (j *Journal) decode(e entry) (edit.Diff, error) {
	raw, err := j.dec.DecodeAll(e.blob, nil)
	if err != nil {
		return edit.Diff{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if len(raw) < 20 {
		return edit.Diff{}, fmt.Errorf("%w: %d bytes", ErrCorruptEntry, len(raw))
	}

	r := bytes.NewReader(raw)
	var header [5]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return edit.Diff{}, fmt.Errorf("%w: reading header", ErrCorruptEntry)
	}
	rect := heightfield.Rect{
		MinRow: int(int32(header[0])),
		MinCol: int(int32(header[1])),
		MaxRow: int(int32(header[2])),
		MaxCol: int(int32(header[3])),
	}
	n := int(header[4])
	if rect != e.rect || n != rect.Area() || r.Len() != 16*n {
		return edit.Diff{}, fmt.Errorf("%w: header %s/%d does not match %s", ErrCorruptEntry, rect, n, e.rect)
	}

	values := make([]float64, 2*n)
	for i := range values {
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return edit.Diff{}, fmt.Errorf("%w: reading value %d", ErrCorruptEntry, i)
		}
		values[i] = math.Float64frombits(bits)
	}
	return edit.Diff{Rect: rect, Before: values[:n:n], After: values[n:]}, nil
}
