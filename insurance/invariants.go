package insurance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TreeStats summarizes a verified tree.
type TreeStats struct {
	Groups       int
	Members      int
	TotalBalance *big.Int // sum of all group balances
}

// Verify walks the tree from the root and checks the structural
// invariants: levels stay within [LocalLevel, MaxLevel], each child sits
// exactly one level below its parent, only leaf groups hold members, and
// every listed member points back at its group.
func (l *Ledger) Verify() (*TreeStats, error) {
	stats := &TreeStats{TotalBalance: new(big.Int)}
	err := l.view(func(tx *txn) error {
		if !tx.meta.HasRoot() {
			return nil
		}
		consts := tx.meta.Constants
		root, err := tx.group(tx.meta.Root)
		if err != nil {
			return err
		}
		if root == nil {
			return fmt.Errorf("root group %s is missing", tx.meta.Root.Hex())
		}
		if !root.IsRoot(tx.meta.Root) || root.Level != consts.MaxLevel {
			return fmt.Errorf("root group %s is malformed", tx.meta.Root.Hex())
		}
		return l.verifyGroup(tx, tx.meta.Root, root, stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (l *Ledger) verifyGroup(tx *txn, addr common.Address, g *Group, stats *TreeStats) error {
	consts := tx.meta.Constants
	if g.Level < LocalLevel || g.Level > consts.MaxLevel {
		return fmt.Errorf("group %s has level %d outside [%d, %d]", addr.Hex(), g.Level, LocalLevel, consts.MaxLevel)
	}
	if g.Balance.Sign() < 0 {
		return fmt.Errorf("group %s has negative balance", addr.Hex())
	}
	if g.Level != LocalLevel && g.MemberCount > 0 {
		return fmt.Errorf("group %s at level %d holds members", addr.Hex(), g.Level)
	}
	if g.Level == LocalLevel && g.ChildCount > 0 {
		return fmt.Errorf("leaf group %s has children", addr.Hex())
	}
	stats.Groups++
	stats.TotalBalance.Add(stats.TotalBalance, g.Balance)

	for i := uint64(0); i < uint64(g.MemberCount); i++ {
		member, err := tx.store.GroupMember(addr, i)
		if err != nil {
			return err
		}
		m, err := tx.membership(member)
		if err != nil {
			return err
		}
		if m == nil || m.Group != addr {
			return fmt.Errorf("member %s of group %s does not point back", member.Hex(), addr.Hex())
		}
		stats.Members++
	}
	for i := uint64(0); i < uint64(g.ChildCount); i++ {
		childAddr, err := tx.store.GroupChild(addr, i)
		if err != nil {
			return err
		}
		child, err := tx.group(childAddr)
		if err != nil {
			return err
		}
		if child == nil {
			return fmt.Errorf("child %s of group %s is missing", childAddr.Hex(), addr.Hex())
		}
		if child.Parent != addr || child.Level+1 != g.Level {
			return fmt.Errorf("child %s breaks parent link to %s", childAddr.Hex(), addr.Hex())
		}
		if err := l.verifyGroup(tx, childAddr, child, stats); err != nil {
			return err
		}
	}
	return nil
}
