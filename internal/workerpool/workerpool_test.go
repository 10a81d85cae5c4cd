package workerpool

import (
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool(t *testing.T) {
	pool := New[int, int](4, 10)
	pool.Start(func(n int) int { return n * n })
	for i := 0; i < 10; i++ {
		pool.Submit(i)
	}
	pool.Close()

	var got []int
	for r := range pool.Results() {
		got = append(got, r)
	}
	sort.Ints(got)
	if len(got) != 10 {
		t.Fatalf("expected 10 results, got %d", len(got))
	}
	for i, r := range got {
		if r != i*i {
			t.Errorf("result %d = %d, want %d", i, r, i*i)
		}
	}
}

func TestNewSizing(t *testing.T) {
	tests := []struct {
		workers, jobs, want int
	}{
		{4, 2, 2},
		{2, 10, 2},
		{0, 1, 1},
		{-1, 0, MaxWorkers},
	}
	for _, tt := range tests {
		p := New[int, int](tt.workers, tt.jobs)
		if p.Workers() != tt.want {
			t.Errorf("New(%d, %d).Workers() = %d, want %d", tt.workers, tt.jobs, p.Workers(), tt.want)
		}
	}
}

func TestOrdered(t *testing.T) {
	jobs := []int{5, 1, 4, 0, 3, 2}
	var order []int
	var values []int
	Ordered(3, jobs, func(n int) int {
		// later jobs finish first
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10
	}, func(i int, v int) {
		order = append(order, i)
		values = append(values, v)
	})

	for i := range jobs {
		if order[i] != i {
			t.Fatalf("emit order = %v", order)
		}
		if values[i] != jobs[i]*10 {
			t.Errorf("value %d = %d, want %d", i, values[i], jobs[i]*10)
		}
	}
}

func TestOrderedConcurrency(t *testing.T) {
	var running, peak int32
	jobs := make([]int, 8)
	Ordered(2, jobs, func(int) int {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return 0
	}, func(int, int) {})

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
}

func TestOrderedEmpty(t *testing.T) {
	called := false
	Ordered(2, nil, func(n int) int { return n }, func(int, int) { called = true })
	if called {
		t.Error("emit called for empty job list")
	}
}
