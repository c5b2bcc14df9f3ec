// Package queue implements the FIFO worklist used by the solver.
package queue

import "errors"

// Queue is a growable ring buffer. The zero value is an empty queue.
type Queue[E any] struct {
	elements []E
	head     int
	size     int
}

func (q *Queue[E]) Push(e E) {
	if q.size == len(q.elements) {
		q.grow()
	}
	q.elements[(q.head+q.size)%len(q.elements)] = e
	q.size++
}

func (q *Queue[E]) grow() {
	n := 2 * len(q.elements)
	if n == 0 {
		n = 8
	}
	elements := make([]E, n)
	for i := 0; i < q.size; i++ {
		elements[i] = q.elements[(q.head+i)%len(q.elements)]
	}
	q.elements, q.head = elements, 0
}

func (q *Queue[E]) Empty() bool {
	return q.size == 0
}

func (q *Queue[E]) Len() int {
	return q.size
}

var ErrEmpty = errors.New("Queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	var zero E
	e := q.elements[q.head]
	q.elements[q.head] = zero
	q.head = (q.head + 1) % len(q.elements)
	q.size--
	return e
}
