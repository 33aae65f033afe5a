// Package rankq implements a multi-level FIFO queue keyed by small integer
// priority ranks. Rank 0 is served first.
//
// Ordering is strict: every item at a lower rank drains before any item at a
// higher rank, and items within one rank drain in insertion order. There is no
// aging. A steady stream of rank-0 items starves rank 2 indefinitely; callers
// that care must throttle their own high-rank admissions.
//
// Nodes live in an arena of slots addressed by int indices. Each rank keeps
// head/tail indices and every slot keeps prev/next indices, so removal from any
// position is O(1) once the node is found and freed slots are reused.
//
// A Queue is not safe for concurrent use.
package rankq

const nilSlot = -1

type slot[T any] struct {
	item T
	prev int
	next int
}

type list struct {
	head int
	tail int
	n    int
}

// Queue is a rank-ordered FIFO queue.
type Queue[T any] struct {
	slots []slot[T]
	free  []int
	lists []list
	n     int
}

// New returns an empty queue with ranks levels, valid ranks are [0, ranks).
// ranks < 1 is treated as 1.
func New[T any](ranks int) *Queue[T] {
	if ranks < 1 {
		ranks = 1
	}
	q := &Queue[T]{lists: make([]list, ranks)}
	for i := range q.lists {
		q.lists[i] = list{head: nilSlot, tail: nilSlot}
	}
	return q
}

// Ranks reports the number of rank levels.
func (q *Queue[T]) Ranks() int { return len(q.lists) }

// Len reports the number of queued items across all ranks.
func (q *Queue[T]) Len() int { return q.n }

// RankLen reports the number of items queued at rank, or 0 if rank is out
// of range.
func (q *Queue[T]) RankLen(rank int) int {
	if rank < 0 || rank >= len(q.lists) {
		return 0
	}
	return q.lists[rank].n
}

// IsEmpty reports whether every rank is empty.
func (q *Queue[T]) IsEmpty() bool { return q.n == 0 }

// Enqueue appends item to the tail of rank. It returns a *RankError if rank is
// out of range, in which case nothing is enqueued.
func (q *Queue[T]) Enqueue(item T, rank int) error {
	if rank < 0 || rank >= len(q.lists) {
		return &RankError{Rank: rank, Ranks: len(q.lists)}
	}
	i := q.alloc(item)
	l := &q.lists[rank]
	if l.tail == nilSlot {
		l.head = i
	} else {
		q.slots[l.tail].next = i
		q.slots[i].prev = l.tail
	}
	l.tail = i
	l.n++
	q.n++
	return nil
}

// Peek returns the next item Dequeue would return without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	for _, l := range q.lists {
		if l.head != nilSlot {
			return q.slots[l.head].item, true
		}
	}
	var zero T
	return zero, false
}

// Dequeue removes and returns the oldest item of the lowest non-empty rank.
func (q *Queue[T]) Dequeue() (T, bool) {
	for r := range q.lists {
		if h := q.lists[r].head; h != nilSlot {
			item := q.slots[h].item
			q.unlink(r, h)
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Remove unlinks every item for which pred returns true and reports how many
// were removed. Items are visited rank by rank in queue order. pred is
// expected to do any per-item work (settling, logging) before returning true.
// pred must not call back into the queue.
func (q *Queue[T]) Remove(pred func(T) bool) int {
	removed := 0
	for r := range q.lists {
		for i := q.lists[r].head; i != nilSlot; {
			next := q.slots[i].next
			if pred(q.slots[i].item) {
				q.unlink(r, i)
				removed++
			}
			i = next
		}
	}
	return removed
}

// Clear drops every item without visiting them.
func (q *Queue[T]) Clear() {
	for i := range q.lists {
		q.lists[i] = list{head: nilSlot, tail: nilSlot}
	}
	q.slots = nil
	q.free = nil
	q.n = 0
}

func (q *Queue[T]) alloc(item T) int {
	s := slot[T]{item: item, prev: nilSlot, next: nilSlot}
	if n := len(q.free); n > 0 {
		i := q.free[n-1]
		q.free = q.free[:n-1]
		q.slots[i] = s
		return i
	}
	q.slots = append(q.slots, s)
	return len(q.slots) - 1
}

func (q *Queue[T]) unlink(rank, i int) {
	l := &q.lists[rank]
	s := &q.slots[i]
	if s.prev == nilSlot {
		l.head = s.next
	} else {
		q.slots[s.prev].next = s.next
	}
	if s.next == nilSlot {
		l.tail = s.prev
	} else {
		q.slots[s.next].prev = s.prev
	}
	l.n--
	q.n--

	// zero the slot so the arena holds no reference to the item
	*s = slot[T]{prev: nilSlot, next: nilSlot}
	q.free = append(q.free, i)
}
