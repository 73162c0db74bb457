package insurance

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// NONE is the sentinel address meaning "no group" / "no spokesperson".
var NONE = common.Address{}

// LocalLevel is the level of leaf groups, the only ones admitting members.
const LocalLevel uint8 = 1

// Constants are fixed when the ledger is created and never change.
type Constants struct {
	MaxLevel             uint8     // level of the root group
	MaxMembers           uint8     // per-group cap on admitted members and on child groups
	WaitBlocks           idx.Block // minimum membership age before a payout
	WaitNextPayoutBlocks idx.Block // minimum interval between payouts of one group
}

// Validate rejects constants that cannot describe a tree.
func (c Constants) Validate() error {
	if c.MaxLevel < LocalLevel {
		return fmt.Errorf("max level %d is below local level %d", c.MaxLevel, LocalLevel)
	}
	if c.MaxMembers == 0 {
		return fmt.Errorf("max members must be positive")
	}
	return nil
}

// Parameters are the owner-tunable knobs consulted by propagation.
type Parameters struct {
	MaxPayout      *big.Int
	PremiumDivisor *big.Int
	PayoutDivisor  *big.Int
}

// Validate checks the parameter block. Divisors below one would divide by
// zero or invert the flow, a negative cap has no meaning for uint256 amounts.
func (p Parameters) Validate() error {
	if p.MaxPayout == nil || p.MaxPayout.Sign() < 0 {
		return fmt.Errorf("max payout must be non-negative")
	}
	if p.PremiumDivisor == nil || p.PremiumDivisor.Sign() <= 0 {
		return fmt.Errorf("premium divisor must be positive")
	}
	if p.PayoutDivisor == nil || p.PayoutDivisor.Sign() <= 0 {
		return fmt.Errorf("payout divisor must be positive")
	}
	return nil
}

// Copy returns a deep copy so callers cannot alias stored big integers.
func (p Parameters) Copy() Parameters {
	return Parameters{
		MaxPayout:      cloneBig(p.MaxPayout),
		PremiumDivisor: cloneBig(p.PremiumDivisor),
		PayoutDivisor:  cloneBig(p.PayoutDivisor),
	}
}

// Meta is the singleton block persisted next to the two tables.
type Meta struct {
	Owner     common.Address
	Root      common.Address // NONE until createTopGroup succeeds
	Constants Constants
	Params    Parameters
}

// HasRoot reports whether the top group has been created.
func (m *Meta) HasRoot() bool { return m.Root != NONE }

func (m *Meta) copy() *Meta {
	cp := *m
	cp.Params = m.Params.Copy()
	return &cp
}

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
