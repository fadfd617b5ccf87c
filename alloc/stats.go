package alloc

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// BucketStat is one bucket's allocation counters in a Stats snapshot.
type BucketStat struct {
	Size      uintptr `json:"size"`
	Allocated int64   `json:"allocated"`
	Used      int64   `json:"used"`
}

// PoolStats is a point-in-time snapshot of a PoolAllocator's counters,
// the diagnostic data print_stats reports in the original.
type PoolStats struct {
	Buckets        []BucketStat `json:"buckets"`
	LargeAllocated int64        `json:"large_allocated"`
	TotalAllocated int64        `json:"total_allocated"`
	TotalUsed      int64        `json:"total_used"`
}

// Stats snapshots per-bucket allocation counters.
func (p *PoolAllocator) Stats() PoolStats {
	var s PoolStats
	for i := 0; i < p.numSmall; i++ {
		size := p.sizes[i]
		allocated := p.smallAllocators[i].numAllocatedBlocks()
		used := p.smallAllocators[i].numUsedBlocks()
		s.Buckets = append(s.Buckets, BucketStat{Size: size, Allocated: allocated, Used: used})
		s.TotalAllocated += allocated * int64(size)
		s.TotalUsed += used * int64(size)
	}
	s.LargeAllocated = p.largeAllocated.Load()
	s.TotalAllocated += s.LargeAllocated
	return s
}

// PrintStats writes Stats as indented JSON to stdout.
func (p *PoolAllocator) PrintStats() {
	enc, err := sonnet.MarshalIndent(p.Stats(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "alloc: failed to encode stats: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(enc))
}
