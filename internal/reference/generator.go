package reference

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jaevor/go-nanoid"
)

const suffixLen = 10

// Generator produces unique, collision-resistant payment references.
// Each reference combines a millisecond timestamp (base36) with a
// random nanoid suffix, so concurrent calls never collide in practice.
// Uniqueness holds within a process lifetime; callers needing durable
// uniqueness across restarts must check against the provider.
type Generator struct {
	prefix string
	newID  func() string
}

// New constructs a Generator. prefix tags references with an
// application identifier, e.g. "NP" → "NP-m1x2y3z4-a1b2c3d4e5".
func New(prefix string) (*Generator, error) {
	gen, err := nanoid.CustomASCII("0123456789abcdefghijklmnopqrstuvwxyz", suffixLen)
	if err != nil {
		return nil, fmt.Errorf("init nanoid generator: %w", err)
	}
	return &Generator{prefix: prefix, newID: gen}, nil
}

// Generate returns a fresh payment reference. Safe for concurrent use.
func (g *Generator) Generate() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return g.prefix + "-" + ts + "-" + g.newID()
}
