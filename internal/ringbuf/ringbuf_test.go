package ringbuf

import (
	"sync"
	"testing"

	"github.com/sua-org/court-cam/internal/core"
)

func frame(seq uint64) core.Frame {
	return core.Frame{Seq: seq, Width: 1, Height: 1, Channels: 3, Data: []byte{0, 0, 0}}
}

func seqs(frames []core.Frame) []uint64 {
	out := make([]uint64, len(frames))
	for i, f := range frames {
		out[i] = f.Seq
	}
	return out
}

func TestCapacityFor(t *testing.T) {
	cases := []struct {
		fps     float64
		seconds int
		want    int
	}{
		{20, 15, 300},
		{25, 15, 375},
		{29.97, 10, 300},
		{0, 15, 0},
		{20, 0, 0},
	}
	for _, tc := range cases {
		if got := CapacityFor(tc.fps, tc.seconds); got != tc.want {
			t.Errorf("CapacityFor(%v, %d) = %d, want %d", tc.fps, tc.seconds, got, tc.want)
		}
	}
}

func TestKeepsMostRecentOldestFirst(t *testing.T) {
	b := New(CapacityFor(20, 15))
	if b.Cap() != 300 {
		t.Fatalf("expected capacity 300, got %d", b.Cap())
	}

	for i := uint64(1); i <= 500; i++ {
		b.Push(frame(i))
		if b.Len() > b.Cap() {
			t.Fatalf("size %d exceeded capacity %d after push %d", b.Len(), b.Cap(), i)
		}
	}

	if b.Len() != 300 {
		t.Fatalf("expected 300 frames, got %d", b.Len())
	}

	got := b.SnapshotLast(300)
	if len(got) != 300 {
		t.Fatalf("expected 300 frames in snapshot, got %d", len(got))
	}
	for i, f := range got {
		if want := uint64(201 + i); f.Seq != want {
			t.Fatalf("snapshot[%d] = %d, want %d", i, f.Seq, want)
		}
	}
}

func TestSnapshotLastFewerThanRequested(t *testing.T) {
	b := New(10)
	b.Push(frame(1))
	b.Push(frame(2))
	b.Push(frame(3))

	got := seqs(b.SnapshotLast(8))
	want := []uint64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSnapshotLastWrapsAround(t *testing.T) {
	b := New(4)
	for i := uint64(1); i <= 6; i++ {
		b.Push(frame(i))
	}
	got := seqs(b.SnapshotLast(3))
	want := []uint64{4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEmptySnapshot(t *testing.T) {
	b := New(5)
	if got := b.SnapshotLast(5); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d frames", len(got))
	}
	z := New(0)
	z.Push(frame(1))
	if z.Len() != 0 {
		t.Fatalf("zero-capacity buffer should not retain frames")
	}
}

func TestResetReplacesStorage(t *testing.T) {
	b := New(3)
	b.Push(frame(1))
	b.Push(frame(2))
	b.Reset(5)
	if b.Len() != 0 || b.Cap() != 5 {
		t.Fatalf("after reset: len=%d cap=%d", b.Len(), b.Cap())
	}
}

func TestConcurrentReaders(t *testing.T) {
	b := New(50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 2000; i++ {
			b.Push(frame(i))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := b.SnapshotLast(50)
				for j := 1; j < len(snap); j++ {
					if snap[j].Seq != snap[j-1].Seq+1 {
						t.Errorf("snapshot out of order: %d after %d", snap[j].Seq, snap[j-1].Seq)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
