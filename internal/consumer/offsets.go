package consumer

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker orders completions per partition so only a contiguous
// prefix of finished messages is ever committed. A message that must not be
// committed blocks its partition until the next rebalance replays it.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionState
}

type partitionState struct {
	pending []*trackedMessage // fetch order
	blocked bool
}

type trackedMessage struct {
	msg  kafka.Message
	done bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionState)}
}

// add registers a fetched message. Messages must be added in fetch order.
func (t *offsetTracker) add(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.partitions[msg.Partition]
	if p == nil {
		p = &partitionState{}
		t.partitions[msg.Partition] = p
	}
	if p.blocked {
		return
	}
	p.pending = append(p.pending, &trackedMessage{msg: msg})
}

// complete marks msg finished and passes any newly committable prefix to
// commit. commit runs under the tracker lock so commits on a partition are
// issued in offset order.
func (t *offsetTracker) complete(msg kafka.Message, ok bool, commit func([]kafka.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.partitions[msg.Partition]
	if p == nil || p.blocked {
		return
	}
	if !ok {
		p.blocked = true
		p.pending = nil
		return
	}
	for _, tm := range p.pending {
		if tm.msg.Offset == msg.Offset {
			tm.done = true
			break
		}
	}

	n := 0
	for n < len(p.pending) && p.pending[n].done {
		n++
	}
	if n == 0 {
		return
	}
	ready := make([]kafka.Message, n)
	for i := range n {
		ready[i] = p.pending[i].msg
	}
	p.pending = p.pending[n:]
	commit(ready)
}
