package order

import (
	"math/rand"
	"sort"
	"testing"
)

// drain reads off every live edge in ascending order by repeatedly
// taking the cheapest and removing it, returning the sequence of keys
// observed.
func drain(q *Queue) []float32 {
	var out []float32
	for {
		edge, ok := q.Cheapest(1e30)
		if !ok {
			break
		}
		out = append(out, q.Err(edge))
		q.Remove(edge)
	}
	return out
}

func TestInsertThenDrainIsSorted(t *testing.T) {
	q := New(8)
	keys := []float32{5, 1, 4, 2, 8, 0, 9, 3}
	for i, k := range keys {
		q.Insert(uint32(i), k)
	}
	if q.Len() != len(keys) {
		t.Fatalf("Len() = %d, want %d", q.Len(), len(keys))
	}

	got := drain(q)
	want := append([]float32(nil), keys...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	if len(got) != len(want) {
		t.Fatalf("drained %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain()[%d] = %v, want %v (full: %v vs %v)", i, got[i], want[i], got, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestCheapestRespectsBudget(t *testing.T) {
	q := New(4)
	q.Insert(0, 10)
	q.Insert(1, 20)

	if _, ok := q.Cheapest(5); ok {
		t.Errorf("Cheapest(5) should fail, minimum key is 10")
	}
	edge, ok := q.Cheapest(10)
	if !ok || edge != 0 {
		t.Errorf("Cheapest(10) = (%v, %v), want (0, true)", edge, ok)
	}
}

func TestRemoveArbitraryNode(t *testing.T) {
	q := New(5)
	for i := uint32(0); i < 5; i++ {
		q.Insert(i, float32(i))
	}
	q.Remove(2)
	if q.Contains(2) {
		t.Errorf("edge 2 should no longer be live")
	}
	got := drain(q)
	want := []float32{0, 1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drain()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRekeyMovesNodeToNewPosition(t *testing.T) {
	q := New(4)
	q.Insert(0, 1)
	q.Insert(1, 2)
	q.Insert(2, 3)

	q.Rekey(0, 10) // was cheapest, now most expensive

	edge, ok := q.Cheapest(1e30)
	if !ok || edge != 1 {
		t.Fatalf("after rekey, cheapest = (%v, %v), want (1, true)", edge, ok)
	}
	if q.Err(0) != 10 {
		t.Errorf("Err(0) = %v, want 10", q.Err(0))
	}
}

func TestRemoveHeadRepeatedlyTracksHeadFlag(t *testing.T) {
	q := New(6)
	for i := uint32(0); i < 6; i++ {
		q.Insert(i, float32(i))
	}
	for i := uint32(0); i < 6; i++ {
		edge, ok := q.Cheapest(1e30)
		if !ok || edge != i {
			t.Fatalf("iteration %d: Cheapest = (%v, %v), want (%v, true)", i, edge, ok, i)
		}
		q.Remove(edge)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if _, ok := q.Cheapest(1e30); ok {
		t.Errorf("Cheapest on empty queue should fail")
	}
}

// TestLargeRandomWorkloadStaysSorted exercises enough inserts to force
// several block splits, then drains and checks global ordering — this
// is the property the √N-block structure exists to preserve cheaply.
func TestLargeRandomWorkloadStaysSorted(t *testing.T) {
	const n = 500
	q := New(n)
	rng := rand.New(rand.NewSource(42))

	keys := make([]float32, n)
	for i := 0; i < n; i++ {
		keys[i] = rng.Float32() * 1000
		q.Insert(uint32(i), keys[i])
	}

	// Rekey a chunk of entries to exercise remove+reinsert across
	// arbitrary block boundaries before draining.
	for i := 0; i < n/5; i++ {
		edge := uint32(rng.Intn(n))
		if !q.Contains(edge) {
			continue
		}
		newKey := rng.Float32() * 1000
		q.Rekey(edge, newKey)
	}

	got := drain(q)
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("not sorted at index %d: %v before %v", i, got[i-1], got[i])
		}
	}
}

func TestHeadAndAfterWalkAscending(t *testing.T) {
	q := New(8)
	keys := []float32{5, 1, 4, 2, 8, 0, 9, 3}
	for i, k := range keys {
		q.Insert(uint32(i), k)
	}

	var got []float32
	edge, ok := q.Head()
	for ok {
		got = append(got, q.Err(edge))
		edge, ok = q.After(edge)
	}

	want := append([]float32(nil), keys...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(got) != len(want) {
		t.Fatalf("walked %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("walk[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHeadOnEmptyQueue(t *testing.T) {
	q := New(4)
	if _, ok := q.Head(); ok {
		t.Errorf("Head() on empty queue should fail")
	}
}

func TestAfterOnTailFails(t *testing.T) {
	q := New(2)
	q.Insert(0, 1)
	q.Insert(1, 2)
	if _, ok := q.After(1); ok {
		t.Errorf("After(tail) should fail")
	}
}

func TestInterleavedInsertRemoveKeepsInvariants(t *testing.T) {
	const n = 200
	q := New(n)
	rng := rand.New(rand.NewSource(7))
	live := map[uint32]float32{}

	for step := 0; step < 2000; step++ {
		if len(live) == 0 || rng.Intn(2) == 0 && len(live) < n {
			var edge uint32
			for {
				edge = uint32(rng.Intn(n))
				if !q.Contains(edge) {
					break
				}
			}
			key := rng.Float32() * 1000
			q.Insert(edge, key)
			live[edge] = key
		} else {
			var edge uint32
			for e := range live {
				edge = e
				break
			}
			q.Remove(edge)
			delete(live, edge)
		}

		if q.Len() != len(live) {
			t.Fatalf("step %d: Len() = %d, want %d", step, q.Len(), len(live))
		}
	}

	min := float32(1e30)
	for _, v := range live {
		if v < min {
			min = v
		}
	}
	if len(live) > 0 {
		edge, ok := q.Cheapest(1e30)
		if !ok {
			t.Fatalf("Cheapest failed with %d live entries", len(live))
		}
		if q.Err(edge) != min {
			t.Errorf("Cheapest key = %v, want global min %v", q.Err(edge), min)
		}
	}
}
