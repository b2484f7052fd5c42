package sim

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// QueuePolicy selects how a pool orders waiting requests.
type QueuePolicy string

const (
	// QueueFIFO serves requests strictly in arrival order.
	QueueFIFO QueuePolicy = "fifo"
	// QueueAcuity serves higher acuity first, FIFO within an acuity.
	QueueAcuity QueuePolicy = "acuity"
)

// ValidQueuePolicies is the set of recognized queue policy names.
var ValidQueuePolicies = map[QueuePolicy]bool{"": true, QueueFIFO: true, QueueAcuity: true}

// waitKey orders the wait queue: lower rank first, then lower ticket.
type waitKey struct {
	rank   int
	ticket uint64
}

func compareWaitKeys(a, b any) int {
	ka, kb := a.(waitKey), b.(waitKey)
	switch {
	case ka.rank < kb.rank:
		return -1
	case ka.rank > kb.rank:
		return 1
	case ka.ticket < kb.ticket:
		return -1
	case ka.ticket > kb.ticket:
		return 1
	default:
		return 0
	}
}

// WaitQueue holds pending requests in a red-black tree keyed by (rank, ticket).
// Under QueueFIFO every request gets rank 0, which reduces the order to tickets.
type WaitQueue struct {
	policy QueuePolicy
	tree   *redblacktree.Tree
	keys   map[uint64]waitKey
}

// NewWaitQueue creates an empty queue for the given policy.
func NewWaitQueue(policy QueuePolicy) *WaitQueue {
	if policy == "" {
		policy = QueueFIFO
	}
	return &WaitQueue{
		policy: policy,
		tree:   redblacktree.NewWith(compareWaitKeys),
		keys:   make(map[uint64]waitKey),
	}
}

// Enqueue adds a request under the given ticket.
func (q *WaitQueue) Enqueue(ticket uint64, req *pendingRequest) {
	key := waitKey{ticket: ticket}
	if q.policy == QueueAcuity && req.Patient != nil {
		key.rank = req.Patient.Acuity.Rank()
	}
	q.tree.Put(key, req)
	q.keys[ticket] = key
}

// Len returns the number of waiting requests.
func (q *WaitQueue) Len() int {
	return q.tree.Size()
}

// Peek returns the request that would be served next, or nil when empty.
func (q *WaitQueue) Peek() *pendingRequest {
	node := q.tree.Left()
	if node == nil {
		return nil
	}
	return node.Value.(*pendingRequest)
}

// Dequeue removes and returns the request that is served next, or nil when empty.
func (q *WaitQueue) Dequeue() *pendingRequest {
	node := q.tree.Left()
	if node == nil {
		return nil
	}
	req := node.Value.(*pendingRequest)
	q.tree.Remove(node.Key)
	delete(q.keys, req.ticket)
	return req
}

// Remove drops the request with the given ticket. Returns nil when it is not queued.
func (q *WaitQueue) Remove(ticket uint64) *pendingRequest {
	key, ok := q.keys[ticket]
	if !ok {
		return nil
	}
	val, found := q.tree.Get(key)
	if !found {
		delete(q.keys, ticket)
		return nil
	}
	q.tree.Remove(key)
	delete(q.keys, ticket)
	return val.(*pendingRequest)
}

// Contains reports whether the ticket is still queued.
func (q *WaitQueue) Contains(ticket uint64) bool {
	_, ok := q.keys[ticket]
	return ok
}
