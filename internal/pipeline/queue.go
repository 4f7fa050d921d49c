package pipeline

import (
	"github.com/LeoCommon/egrim/pkg/packet"
)

// Queue is a fixed capacity FIFO ring of packets.
// It is not synchronised, the pipeline guards it with its own mutex.
type Queue struct {
	buf  []packet.StatusPacket
	head int
	size int
}

func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{buf: make([]packet.StatusPacket, capacity)}
}

func (q *Queue) Len() int { return q.size }

func (q *Queue) Cap() int { return len(q.buf) }

// Push appends a copy of p, it returns false if the ring is full
func (q *Queue) Push(p packet.StatusPacket) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = p
	q.size++
	return true
}

// Pop removes the oldest packet
func (q *Queue) Pop() (packet.StatusPacket, bool) {
	if q.size == 0 {
		return packet.StatusPacket{}, false
	}
	p := q.buf[q.head]
	q.buf[q.head] = packet.StatusPacket{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return p, true
}

// Drain discards every queued packet and returns how many were dropped
func (q *Queue) Drain() int {
	n := q.size
	clear(q.buf)
	q.head = 0
	q.size = 0
	return n
}
