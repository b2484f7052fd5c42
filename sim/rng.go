package sim

import (
	"hash/fnv"
	"math/rand"
	"sort"
)

// Random stream names. Each draw site reads exactly one stream.
const (
	// SubsystemArrivals drives inter-arrival times and is seeded with the run seed itself.
	SubsystemArrivals = "arrivals"
	// SubsystemAcuity draws each arriving patient's acuity.
	SubsystemAcuity = "acuity"
	// SubsystemRouting drives CDU eligibility, imaging orders, dispositions and discharge requeues.
	SubsystemRouting = "routing"
)

// SubsystemStage names the duration stream of one stage. Per-stage streams
// keep a stage's k-th draw the same across configurations even when other
// stages are skipped or shortened.
func SubsystemStage(stage string) string {
	return "duration/" + stage
}

// PartitionedRNG hands out one *rand.Rand per named stream, all derived
// from a single run seed: the arrivals stream uses the seed as is, every
// other stream uses seed XOR fnv1a64(name). Arrivals and acuities read only
// their own streams, so a given seed yields the same patient workload in the
// baseline and the enhanced run.
//
// Not safe for concurrent use; a run owns its PartitionedRNG.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns the stream set for seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.streamSeed(name)))
	p.streams[name] = rng
	return rng
}

func (p *PartitionedRNG) streamSeed(name string) int64 {
	if name == SubsystemArrivals {
		return p.seed
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return p.seed ^ int64(h.Sum64())
}

// Seed returns the run seed.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

// Streams lists the streams drawn from so far, sorted.
func (p *PartitionedRNG) Streams() []string {
	names := make([]string, 0, len(p.streams))
	for n := range p.streams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
