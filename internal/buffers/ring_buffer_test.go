package buffers

import (
	"sync"
	"testing"
)

type entry struct {
	id       string
	duration float64
}

func TestUpdateAtFinalizesInPlace(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[entry](3)
	first := rb.WriteOne(entry{id: "a"})
	second := rb.WriteOne(entry{id: "b"})

	if !rb.UpdateAt(second, func(e *entry) { e.duration = 4.5 }) {
		t.Fatal("UpdateAt on a held position returned false")
	}
	got, _ := rb.At(second)
	if got.duration != 4.5 {
		t.Errorf("duration = %v, want 4.5", got.duration)
	}
	if a, _ := rb.At(first); a.duration != 0 {
		t.Errorf("neighbouring entry modified: %+v", a)
	}
}

func TestUpdateAtEvictedPosition(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[entry](2)
	old := rb.WriteOne(entry{id: "a"})
	rb.WriteOne(entry{id: "b"})
	rb.WriteOne(entry{id: "c"})

	called := false
	if rb.UpdateAt(old, func(*entry) { called = true }) {
		t.Error("UpdateAt on an evicted position returned true")
	}
	if called {
		t.Error("callback ran for an evicted position")
	}
	if _, ok := rb.At(old); ok {
		t.Error("At resolved an evicted position")
	}
	if rb.UpdateAt(rb.Position(), func(*entry) {}) {
		t.Error("UpdateAt on an unwritten position returned true")
	}
}

func TestClearInvalidatesOldPositions(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[int](4)
	stale := rb.WriteOne(1)
	rb.WriteOne(2)
	rb.Clear()
	fresh := rb.WriteOne(3)

	if _, ok := rb.At(stale); ok {
		t.Error("position from before Clear still resolves")
	}
	if v, ok := rb.At(fresh); !ok || v != 3 {
		t.Errorf("At(fresh) = %v, %v", v, ok)
	}
	if all := rb.ReadAll(); len(all) != 1 || all[0] != 3 {
		t.Errorf("ReadAll after Clear = %v", all)
	}
}

func TestReadFromCursor(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[int](3)
	for i := 1; i <= 2; i++ {
		rb.WriteOne(i)
	}
	got, cur := rb.ReadFrom(Cursor{})
	if len(got) != 2 || cur.Position != 2 {
		t.Fatalf("first read = %v @%d", got, cur.Position)
	}

	for i := 3; i <= 6; i++ {
		rb.WriteOne(i)
	}
	// Cursor 2 points at an evicted entry; reading resumes at the oldest held.
	got, cur = rb.ReadFrom(cur)
	if len(got) != 3 || got[0] != 4 || got[2] != 6 || cur.Position != 6 {
		t.Errorf("second read = %v @%d", got, cur.Position)
	}

	got, _ = rb.ReadFrom(cur)
	if got != nil {
		t.Errorf("read at head = %v, want nil", got)
	}
}

func TestReadLastAndFilter(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[int](5)
	for i := 1; i <= 8; i++ {
		rb.WriteOne(i)
	}
	if got := rb.ReadLast(2); len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("ReadLast(2) = %v", got)
	}
	if got := rb.ReadLast(50); len(got) != 5 || got[0] != 4 {
		t.Errorf("ReadLast(50) = %v", got)
	}
	if got := rb.ReadLast(0); got != nil {
		t.Errorf("ReadLast(0) = %v", got)
	}
	even := rb.Filter(func(v int) bool { return v%2 == 0 }, 2)
	if len(even) != 2 || even[0] != 4 || even[1] != 6 {
		t.Errorf("Filter = %v", even)
	}
}

func TestZeroCapacityClampedToOne(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer[int](0)
	rb.WriteOne(1)
	rb.WriteOne(2)
	if rb.Cap() != 1 || rb.Len() != 1 || rb.ReadAll()[0] != 2 {
		t.Errorf("cap=%d len=%d all=%v", rb.Cap(), rb.Len(), rb.ReadAll())
	}
}

// TestStressRingBufferConcurrent is meant to be run with -race.
func TestStressRingBufferConcurrent(t *testing.T) {
	const (
		capacity   = 100
		numWriters = 20
		numReaders = 10
		writes     = 200
	)

	rb := NewRingBuffer[int](capacity)
	var wg sync.WaitGroup

	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				pos := rb.WriteOne(id*1000 + i)
				rb.UpdateAt(pos, func(v *int) { *v = -*v })
			}
		}(w)
	}
	for r := 0; r < numReaders; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var cur Cursor
			for i := 0; i < writes; i++ {
				_, cur = rb.ReadFrom(cur)
				_ = rb.ReadLast(10)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			rb.Clear()
		}
	}()
	wg.Wait()

	if rb.Len() > rb.Cap() {
		t.Errorf("length %d exceeds capacity %d", rb.Len(), rb.Cap())
	}
	if rb.Position() != numWriters*writes {
		t.Errorf("position = %d, want %d", rb.Position(), numWriters*writes)
	}
}
