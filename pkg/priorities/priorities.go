// Package priorities supplies subsampling ranks: explicit scores from a
// two-column priority file, or reproducible pseudo-random scores derived
// from the run seed. Both engines rank with the same generator, so their
// selections cannot drift apart.
package priorities

import (
	"bufio"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/seqsift/seqsift/types"
)

// Table maps identifiers to explicit priority scores. Identifiers absent
// from the table rank below every scored identifier.
type Table map[string]float64

func (t Table) Get(id string) (float64, bool) {
	score, ok := t[id]
	return score, ok
}

// LoadFile parses a headerless priority file: identifier and score, tab
// separated (bare whitespace also accepted). Any line without a parseable
// score is fatal.
func LoadFile(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, types.Configf("missing or malformed priority scores file %s", path)
	}
	defer file.Close()

	table := make(Table)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		var fields []string
		if strings.ContainsRune(line, '\t') {
			fields = strings.Split(strings.TrimSpace(line), "\t")
		} else {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			return nil, types.Configf("missing or malformed priority scores file %s", path)
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, types.Configf("missing or malformed priority scores file %s", path)
		}
		table[fields[0]] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, types.Configf("missing or malformed priority scores file %s", path)
	}
	return table, nil
}

// Generator produces pseudo-random priorities and Poisson quota draws.
// Every value is a pure function of (run seed, key), independent of call
// order, chunking, and engine.
type Generator struct {
	seed uint64
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{seed: seed}
}

// RandomSeed picks a run seed for unseeded invocations.
func RandomSeed() uint64 {
	return rand.Uint64()
}

func (g *Generator) source(key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	return rand.New(rand.NewPCG(g.seed, h.Sum64()))
}

// Priority returns a uniform pseudo-random score in [0, 1) for id.
func (g *Generator) Priority(id string) float64 {
	return g.source(id).Float64()
}

// Poisson draws a Poisson-distributed quota with the given mean for one
// group key.
func (g *Generator) Poisson(key string, mean float64) int64 {
	if mean <= 0 {
		return 0
	}
	src := g.source("poisson:" + key)
	limit := math.Exp(-mean)
	var k int64
	p := 1.0
	for {
		k++
		p *= src.Float64()
		if p <= limit {
			return k - 1
		}
	}
}
