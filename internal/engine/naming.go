package engine

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"mockline/internal/config"
)

const maxNameAttempts = 10000

// namer resolves output file names. Not safe for concurrent use; names
// are assigned on the orchestrator before workers start.
type namer struct {
	base   string
	prefix string
	total  int
	rng    *rand.Rand
	used   map[string]bool
}

func newNamer(base, prefix string, total int, rng *rand.Rand) *namer {
	return &namer{base: base, prefix: prefix, total: total, rng: rng, used: map[string]bool{}}
}

// name returns the file name for index idx. A single-file run is always
// {base}.json regardless of strategy. Random suffixes are 4-digit and
// re-rolled while duplicated within the run; collisions across runs are
// accepted and overwrite.
func (n *namer) name(idx int) string {
	if n.total == 1 {
		return n.base + ".json"
	}
	switch n.prefix {
	case config.PrefixRandom:
		for attempt := 0; attempt < maxNameAttempts; attempt++ {
			candidate := fmt.Sprintf("%s_%d.json", n.base, 1000+n.rng.Intn(9000))
			if !n.used[candidate] {
				n.used[candidate] = true
				return candidate
			}
		}
		log.Printf("warning: random file names exhausted; numbering file %d sequentially", idx+1)
		return fmt.Sprintf("%s_%d.json", n.base, idx+1)
	case config.PrefixUUID:
		return fmt.Sprintf("%s_%s.json", n.base, uuid.NewString())
	default:
		return fmt.Sprintf("%s_%d.json", n.base, idx+1)
	}
}
