package syncreg

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_CrossStoreIndependence(t *testing.T) {
	r := New()
	r.Begin("A")
	r.Begin("B")
	r.End("A")

	if r.IsSyncing("A") {
		t.Error("IsSyncing(A) = true, want false")
	}
	if !r.IsSyncing("B") {
		t.Error("IsSyncing(B) = false, want true")
	}
}

func TestRegistry_OverlappingSameStore(t *testing.T) {
	r := New()
	first := r.Begin("A")
	second := r.Begin("A")

	first()
	if !r.IsSyncing("A") {
		t.Fatal("store cleared after the first of two syncs completed")
	}

	second()
	if r.IsSyncing("A") {
		t.Error("store still busy after both syncs completed")
	}
}

func TestRegistry_DoneIsIdempotent(t *testing.T) {
	r := New()
	done := r.Begin("A")
	r.Begin("A")

	done()
	done()

	if got := r.Count("A"); got != 1 {
		t.Errorf("Count(A) = %d, want 1", got)
	}
}

func TestRegistry_EndWithoutBegin(t *testing.T) {
	r := New()
	r.End("ghost")
	if r.IsSyncing("ghost") {
		t.Error("IsSyncing(ghost) = true after stray End")
	}
	if got := r.Count("ghost"); got != 0 {
		t.Errorf("Count(ghost) = %d, want 0", got)
	}
}

func TestRegistry_Active(t *testing.T) {
	r := New()
	r.Begin("c")
	r.Begin("a")
	r.Begin("b")
	r.End("b")

	if diff := cmp.Diff([]string{"a", "c"}, r.Active()); diff != "" {
		t.Errorf("Active() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := r.Begin("A")
			done()
		}()
	}
	wg.Wait()

	if r.IsSyncing("A") {
		t.Errorf("Count(A) = %d after all goroutines released, want 0", r.Count("A"))
	}
}
