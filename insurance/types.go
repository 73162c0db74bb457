// Package insurance implements the group-tree state machine of a
// hierarchical mutual-aid ledger: groups led by spokespersons form a tree
// of fixed depth, members are admitted at the leaf level and pay premiums,
// and funds move between adjacent levels by premium and payout
// propagation.
//
// All mutating operations are executed by a Ledger, which serializes them
// and applies each one as a single all-or-nothing unit of work.
package insurance

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Group is one node of the tree, keyed by its spokesperson address.
type Group struct {
	Parent              common.Address // the spokesperson itself for the root
	Name                string
	SpokespersonName    string
	SpokespersonContact string

	Balance *big.Int // unspent funds held at this group
	Payouts *big.Int // cumulative amount paid out through this group

	Level       uint8
	MemberCount uint8 // members admitted here (leaf groups only)
	ChildCount  uint8 // child groups created under this group

	LastPayoutAt idx.Block
	HasPaidOut   bool
}

// IsRoot reports whether the group is the top of the tree.
func (g *Group) IsRoot(spokesperson common.Address) bool {
	return g.Parent == spokesperson
}

// Copy returns a deep copy of the group.
func (g *Group) Copy() *Group {
	cp := *g
	cp.Balance = cloneBig(g.Balance)
	cp.Payouts = cloneBig(g.Payouts)
	return &cp
}

// Membership binds a member to exactly one leaf group.
type Membership struct {
	Group    common.Address
	JoinedAt idx.Block
	Balance  *big.Int // premiums paid in
	Payouts  *big.Int // cumulative amount paid to the member
}

// Copy returns a deep copy of the membership.
func (m *Membership) Copy() *Membership {
	cp := *m
	cp.Balance = cloneBig(m.Balance)
	cp.Payouts = cloneBig(m.Payouts)
	return &cp
}

// PremiumPaid is emitted once per successful premium payment.
type PremiumPaid struct {
	Member common.Address
	Value  *big.Int
	Block  idx.Block
}
