package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultNumberPrefix is the brand prefix of order numbers.
const DefaultNumberPrefix = "OCT4"

// NumberGenerator produces human-readable order numbers of the form
// PREFIX-YYYYMMDD-NNNN. NNNN is random, so numbers may collide; callers
// retry on ErrDuplicateNumber.
type NumberGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

// NewNumberGenerator returns a generator using prefix and the local date.
func NewNumberGenerator(prefix string) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return &NumberGenerator{prefix: prefix, now: time.Now, intn: rand.IntN}
}

// Next returns a fresh candidate number.
func (g *NumberGenerator) Next() string {
	return fmt.Sprintf("%s-%s-%04d", g.prefix, g.now().Format("20060102"), g.intn(10000))
}
