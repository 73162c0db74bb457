package insurance

import (
	"sync/atomic"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Clock supplies the monotonically non-decreasing block ordinal used for
// every timing comparison.
type Clock interface {
	Now() idx.Block
}

// ManualClock is a Clock moved explicitly by its owner.
type ManualClock struct {
	n uint64
}

func NewManualClock(start idx.Block) *ManualClock {
	return &ManualClock{n: uint64(start)}
}

func (c *ManualClock) Now() idx.Block {
	return idx.Block(atomic.LoadUint64(&c.n))
}

// Advance moves the clock forward by n blocks and returns the new value.
func (c *ManualClock) Advance(n idx.Block) idx.Block {
	return idx.Block(atomic.AddUint64(&c.n, uint64(n)))
}
