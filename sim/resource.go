package sim

import "fmt"

// Request asks a pool for one unit on behalf of a patient.
type Request struct {
	Patient *Patient
	// Continuation is the event kind scheduled when the unit is granted.
	Continuation EventKind
}

// Grant is a token for one acquired unit. It must be released exactly once.
type Grant struct {
	ID       uint64
	Pool     string
	Patient  *Patient
	Since    float64 // time the unit was granted
	Waited   float64 // minutes spent queued before the grant
	released bool
}

// Released reports whether the grant has been returned to its pool.
func (g *Grant) Released() bool {
	return g.released
}

// Handoff is produced by Release when a queued request takes over the freed
// unit. The engine schedules Continuation for the grant's patient at the
// current time.
type Handoff struct {
	Grant        *Grant
	Continuation EventKind
}

type pendingRequest struct {
	Request
	ticket uint64
	since  float64
}

// PoolStats is the per-pool observation summary reported in a RunResult.
type PoolStats struct {
	Capacity          int     `json:"capacity"`
	Grants            int     `json:"grants"`
	Utilization       float64 `json:"utilization"` // time-weighted in_use / capacity
	PeakQueue         int     `json:"peak_queue"`
	MeanWait          float64 `json:"mean_wait_minutes"` // granted requests only
	MaxWait           float64 `json:"max_wait_minutes"`
	StillWaiting      int     `json:"still_waiting"`
	Abandoned         int     `json:"abandoned"`
	MeanAbandonedWait float64 `json:"mean_abandoned_wait_minutes"` // queued time before abandoning
	InUseAtEnd        int     `json:"in_use_at_end"`
	BusyMinutes       float64 `json:"busy_minutes"`
}

// Pool is a capacity-limited resource with a wait queue. It knows nothing
// about clocks or events: callers pass the current time and schedule the
// continuations it hands back.
//
// Invariants: inUse <= capacity; every grant is released exactly once.
type Pool struct {
	name     string
	capacity int
	inUse    int
	queue    *WaitQueue
	next     uint64 // shared counter for grant IDs and tickets

	lastChange    float64
	busyArea      float64
	grants        int
	peakQueue     int
	totalWait     float64
	maxWait       float64
	abandoned     int
	abandonedWait float64
}

// NewPool creates a pool. Negative capacities are rejected by Scenario.Validate
// before a pool is ever built.
func NewPool(name string, capacity int, policy QueuePolicy) *Pool {
	return &Pool{
		name:     name,
		capacity: capacity,
		queue:    NewWaitQueue(policy),
	}
}

// Name returns the pool's name.
func (p *Pool) Name() string { return p.name }

// Capacity returns the configured number of units.
func (p *Pool) Capacity() int { return p.capacity }

// InUse returns the number of units currently granted.
func (p *Pool) InUse() int { return p.inUse }

// QueueLen returns the number of waiting requests.
func (p *Pool) QueueLen() int { return p.queue.Len() }

// Free returns the number of idle units.
func (p *Pool) Free() int { return p.capacity - p.inUse }

// Acquire grants a unit immediately when one is free. Otherwise the request
// is queued and the returned ticket identifies it for Abandon.
func (p *Pool) Acquire(req Request, now float64) (*Grant, uint64) {
	p.next++
	if p.inUse < p.capacity {
		return p.grant(req.Patient, now, 0), 0
	}
	ticket := p.next
	p.queue.Enqueue(ticket, &pendingRequest{Request: req, ticket: ticket, since: now})
	if n := p.queue.Len(); n > p.peakQueue {
		p.peakQueue = n
	}
	return nil, ticket
}

// Release returns a unit. If a request is waiting it is granted the unit at
// once and described by the returned Handoff.
func (p *Pool) Release(g *Grant, now float64) (*Handoff, error) {
	if g == nil {
		return nil, fmt.Errorf("pool %s: release of nil grant", p.name)
	}
	if g.Pool != p.name {
		return nil, fmt.Errorf("pool %s: grant %d from %s: %w", p.name, g.ID, g.Pool, ErrForeignGrant)
	}
	if g.released {
		return nil, fmt.Errorf("pool %s: grant %d: %w", p.name, g.ID, ErrDoubleRelease)
	}
	g.released = true
	p.advance(now)
	p.inUse--

	req := p.queue.Dequeue()
	if req == nil {
		return nil, nil
	}
	p.next++
	return &Handoff{
		Grant:        p.grant(req.Patient, now, now-req.since),
		Continuation: req.Continuation,
	}, nil
}

// Abandon removes a queued request and records how long it waited. Returns
// false if the ticket is no longer queued (already granted or abandoned).
func (p *Pool) Abandon(ticket uint64, now float64) bool {
	req := p.queue.Remove(ticket)
	if req == nil {
		return false
	}
	p.abandoned++
	if now > req.since {
		p.abandonedWait += now - req.since
	}
	return true
}

// IsQueued reports whether the ticket is still waiting.
func (p *Pool) IsQueued(ticket uint64) bool {
	return p.queue.Contains(ticket)
}

func (p *Pool) grant(patient *Patient, now, waited float64) *Grant {
	p.advance(now)
	p.inUse++
	p.grants++
	p.totalWait += waited
	if waited > p.maxWait {
		p.maxWait = waited
	}
	return &Grant{ID: p.next, Pool: p.name, Patient: patient, Since: now, Waited: waited}
}

// advance accumulates the time-weighted busy area up to now.
func (p *Pool) advance(now float64) {
	if now > p.lastChange {
		p.busyArea += float64(p.inUse) * (now - p.lastChange)
		p.lastChange = now
	}
}

// Stats summarizes the pool over [0, now].
func (p *Pool) Stats(now float64) PoolStats {
	p.advance(now)
	st := PoolStats{
		Capacity:     p.capacity,
		Grants:       p.grants,
		PeakQueue:    p.peakQueue,
		MaxWait:      p.maxWait,
		StillWaiting: p.queue.Len(),
		Abandoned:    p.abandoned,
		InUseAtEnd:   p.inUse,
		BusyMinutes:  p.busyArea,
	}
	if p.grants > 0 {
		st.MeanWait = p.totalWait / float64(p.grants)
	}
	if p.abandoned > 0 {
		st.MeanAbandonedWait = p.abandonedWait / float64(p.abandoned)
	}
	if p.capacity > 0 && now > 0 {
		st.Utilization = p.busyArea / (float64(p.capacity) * now)
	}
	return st
}
