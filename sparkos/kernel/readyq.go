package kernel

import "math/bits"

type level struct {
	head ThreadID
	tail ThreadID
}

// readyQueue holds one FIFO per priority plus a bitmap with bit p set iff
// level p is non-empty. Callers hold the interrupt lock.
type readyQueue struct {
	tab    *threadTable
	levels []level
	bitmap []uint64
}

func newReadyQueue(tab *threadTable, prios int) readyQueue {
	q := readyQueue{
		tab:    tab,
		levels: make([]level, prios),
		bitmap: make([]uint64, (prios+63)/64),
	}
	for i := range q.levels {
		q.levels[i] = level{head: noThread, tail: noThread}
	}
	return q
}

// push appends t at the tail of its level.
func (q *readyQueue) push(t *Thread) {
	lv := &q.levels[t.prio]
	t.next = noThread
	if lv.tail == noThread {
		lv.head = t.id
	} else {
		q.tab.get(lv.tail).next = t.id
	}
	lv.tail = t.id
	q.bitmap[t.prio/64] |= 1 << (uint(t.prio) % 64)
}

// remove unlinks t from its level. t must be queued there.
func (q *readyQueue) remove(t *Thread) {
	lv := &q.levels[t.prio]
	prev := noThread
	for id := lv.head; id != noThread; id = q.tab.get(id).next {
		if id != t.id {
			prev = id
			continue
		}
		if prev == noThread {
			lv.head = t.next
		} else {
			q.tab.get(prev).next = t.next
		}
		if lv.tail == t.id {
			lv.tail = prev
		}
		break
	}
	t.next = noThread
	if lv.head == noThread {
		q.bitmap[t.prio/64] &^= 1 << (uint(t.prio) % 64)
	}
}

// first returns the head of the highest-priority non-empty level.
func (q *readyQueue) first() *Thread {
	for i, w := range q.bitmap {
		if w != 0 {
			return q.tab.get(q.levels[i*64+bits.TrailingZeros64(w)].head)
		}
	}
	return nil
}

func (q *readyQueue) levelSet(prio int) bool {
	return q.bitmap[prio/64]&(1<<(uint(prio)%64)) != 0
}

// snapshot returns the IDs queued at prio, head first.
func (q *readyQueue) snapshot(prio int) []ThreadID {
	var ids []ThreadID
	for id := q.levels[prio].head; id != noThread; id = q.tab.get(id).next {
		ids = append(ids, id)
	}
	return ids
}
