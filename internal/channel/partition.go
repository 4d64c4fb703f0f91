package channel

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// Partitioner assigns symbols to a fixed number of workers
type Partitioner struct {
	totalWorkers int
}

// NewPartitioner creates a new partitioner
func NewPartitioner(totalWorkers int) (*Partitioner, error) {
	if totalWorkers <= 0 {
		return nil, fmt.Errorf("total workers must be positive, got %d", totalWorkers)
	}
	return &Partitioner{totalWorkers: totalWorkers}, nil
}

// GetPartition calculates which worker a symbol belongs to: fnv32a(symbol) % totalWorkers
func (p *Partitioner) GetPartition(symbol string) int {
	if symbol == "" {
		return 0
	}

	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(p.totalWorkers))
}

// Assign splits symbols into one sorted slice per worker
func (p *Partitioner) Assign(symbols []string) [][]string {
	buckets := make([][]string, p.totalWorkers)
	for _, symbol := range symbols {
		w := p.GetPartition(symbol)
		buckets[w] = append(buckets[w], symbol)
	}
	for _, b := range buckets {
		sort.Strings(b)
	}
	return buckets
}

// Distribution returns a map of partition -> symbol count
func (p *Partitioner) Distribution(symbols []string) map[int]int {
	distribution := make(map[int]int)
	for _, symbol := range symbols {
		distribution[p.GetPartition(symbol)]++
	}
	return distribution
}
