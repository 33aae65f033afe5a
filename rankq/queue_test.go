package rankq

import (
	"errors"
	"slices"
	"testing"
)

func drain[T any](q *Queue[T]) []T {
	var out []T
	for {
		v, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func mustEnqueue[T any](t *testing.T, q *Queue[T], v T, rank int) {
	t.Helper()
	if err := q.Enqueue(v, rank); err != nil {
		t.Fatalf("Enqueue(%v, %d): %v", v, rank, err)
	}
}

func TestPriorityThenFIFO(t *testing.T) {
	q := New[string](3)
	mustEnqueue(t, q, "A", 1)
	mustEnqueue(t, q, "B", 0)
	mustEnqueue(t, q, "C", 1)
	mustEnqueue(t, q, "D", 2)

	if got, ok := q.Peek(); !ok || got != "B" {
		t.Fatalf("Peek got=%q ok=%v want B", got, ok)
	}
	if q.Len() != 4 {
		t.Fatalf("Peek mutated queue: len=%d", q.Len())
	}

	got := drain(q)
	want := []string{"B", "A", "C", "D"}
	if !slices.Equal(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	if !q.IsEmpty() {
		t.Fatalf("queue should be empty after drain")
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("Dequeue on empty queue returned ok")
	}
	if _, ok := q.Peek(); ok {
		t.Fatalf("Peek on empty queue returned ok")
	}
}

func TestFIFOWithinRank(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 100; i++ {
		mustEnqueue(t, q, i, 1)
	}
	got := drain(q)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: got=%d want=%d", i, v, i)
		}
	}
}

func TestLowerRankAlwaysFirst(t *testing.T) {
	q := New[int](3)
	// low rank admitted first, high rank later
	mustEnqueue(t, q, 20, 2)
	mustEnqueue(t, q, 10, 1)
	mustEnqueue(t, q, 0, 0)
	mustEnqueue(t, q, 21, 2)
	mustEnqueue(t, q, 1, 0)

	got := drain(q)
	want := []int{0, 1, 10, 20, 21}
	if !slices.Equal(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestEnqueueInvalidRank(t *testing.T) {
	q := New[string](3)
	for _, r := range []int{-1, 3, 99} {
		err := q.Enqueue("x", r)
		if !errors.Is(err, ErrInvalidRank) {
			t.Fatalf("rank %d: expected ErrInvalidRank, got %v", r, err)
		}
		var re *RankError
		if !errors.As(err, &re) || re.Rank != r || re.Ranks != 3 {
			t.Fatalf("rank %d: unexpected error detail %#v", r, re)
		}
	}
	if !q.IsEmpty() || q.Len() != 0 {
		t.Fatalf("invalid enqueue must not add items, len=%d", q.Len())
	}
}

func TestRemoveRepairsHeadTail(t *testing.T) {
	cases := []struct {
		name   string
		remove []string
		want   []string
	}{
		{"head", []string{"a"}, []string{"b", "c", "d"}},
		{"tail", []string{"d"}, []string{"a", "b", "c"}},
		{"middle", []string{"b", "c"}, []string{"a", "d"}},
		{"all", []string{"a", "b", "c", "d"}, nil},
		{"head and tail", []string{"a", "d"}, []string{"b", "c"}},
		{"none", nil, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := New[string](1)
			for _, v := range []string{"a", "b", "c", "d"} {
				mustEnqueue(t, q, v, 0)
			}
			n := q.Remove(func(s string) bool { return slices.Contains(tc.remove, s) })
			if n != len(tc.remove) {
				t.Fatalf("removed=%d want=%d", n, len(tc.remove))
			}

			// appending after removal exercises the repaired tail
			mustEnqueue(t, q, "z", 0)
			got := drain(q)
			want := append(slices.Clone(tc.want), "z")
			if !slices.Equal(got, want) {
				t.Fatalf("got=%v want=%v", got, want)
			}
		})
	}
}

func TestRemoveVisitsAllRanksInOrder(t *testing.T) {
	q := New[string](3)
	mustEnqueue(t, q, "low", 2)
	mustEnqueue(t, q, "high", 0)
	mustEnqueue(t, q, "normal", 1)

	var seen []string
	q.Remove(func(s string) bool {
		seen = append(seen, s)
		return s == "normal"
	})
	if want := []string{"high", "normal", "low"}; !slices.Equal(seen, want) {
		t.Fatalf("visit order got=%v want=%v", seen, want)
	}
	if q.RankLen(1) != 0 || q.RankLen(0) != 1 || q.RankLen(2) != 1 {
		t.Fatalf("unexpected rank lengths: %d %d %d", q.RankLen(0), q.RankLen(1), q.RankLen(2))
	}
}

func TestSlotReuseKeepsOrder(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 4; i++ {
		mustEnqueue(t, q, i, 1)
	}
	q.Remove(func(v int) bool { return v%2 == 0 })
	// freed slots are reused, order must follow admission not slot index
	mustEnqueue(t, q, 4, 1)
	mustEnqueue(t, q, 5, 0)
	mustEnqueue(t, q, 6, 1)

	got := drain(q)
	want := []int{5, 1, 3, 4, 6}
	if !slices.Equal(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestClear(t *testing.T) {
	q := New[int](3)
	for i := 0; i < 6; i++ {
		mustEnqueue(t, q, i, i%3)
	}
	q.Clear()
	if !q.IsEmpty() || q.Len() != 0 {
		t.Fatalf("Clear left %d items", q.Len())
	}
	mustEnqueue(t, q, 42, 2)
	if v, ok := q.Dequeue(); !ok || v != 42 {
		t.Fatalf("queue unusable after Clear: got=%v ok=%v", v, ok)
	}
}
