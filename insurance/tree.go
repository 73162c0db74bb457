package insurance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// CreateTopGroup creates the root group at MaxLevel. Only the owner may call
// it, and only once.
func (l *Ledger) CreateTopGroup(caller, spokesperson common.Address, name, spName, contact string) error {
	_, err := l.apply("createTopGroup", caller, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if spokesperson == NONE {
			return tx.fail(ErrInvalidArgument, "spokesperson is the zero address")
		}
		if tx.meta.HasRoot() {
			return tx.fail(ErrDuplicate, "top group already led by %s", tx.meta.Root.Hex())
		}
		existing, err := tx.group(spokesperson)
		if err != nil {
			return err
		}
		if existing != nil {
			return tx.fail(ErrDuplicate, "%s already leads a group", spokesperson.Hex())
		}

		tx.putGroup(spokesperson, newGroup(spokesperson, tx.meta.Constants.MaxLevel, name, spName, contact))
		tx.setMeta(func(m *Meta) { m.Root = spokesperson })
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{"spokesperson": spokesperson.Hex(), "name": name}).Info("Created top group")
	}
	return err
}

// CreateGroup creates a child group one level below the caller's group.
// The caller is the parent spokesperson.
func (l *Ledger) CreateGroup(caller, spokesperson common.Address, name, spName, contact string) error {
	var level uint8
	_, err := l.apply("createGroup", caller, func(tx *txn) error {
		if spokesperson == NONE {
			return tx.fail(ErrInvalidArgument, "spokesperson is the zero address")
		}
		parent, err := tx.group(caller)
		if err != nil {
			return err
		}
		if parent == nil {
			return tx.fail(ErrNotFound, "caller %s leads no group", caller.Hex())
		}
		existing, err := tx.group(spokesperson)
		if err != nil {
			return err
		}
		if existing != nil {
			return tx.fail(ErrDuplicate, "%s already leads a group", spokesperson.Hex())
		}
		if parent.Level <= LocalLevel {
			return tx.fail(ErrCapacity, "group at level %d cannot have children", parent.Level)
		}
		if parent.ChildCount >= tx.meta.Constants.MaxMembers {
			return tx.fail(ErrCapacity, "group already has %d child groups", parent.ChildCount)
		}

		level = parent.Level - 1
		tx.putGroup(spokesperson, newGroup(caller, level, name, spName, contact))
		tx.appendChild(caller, uint64(parent.ChildCount), spokesperson)
		parent.ChildCount++
		tx.putGroup(caller, parent)
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{
			"parent":       caller.Hex(),
			"spokesperson": spokesperson.Hex(),
			"level":        level,
		}).Info("Created group")
	}
	return err
}

func newGroup(parent common.Address, level uint8, name, spName, contact string) *Group {
	return &Group{
		Parent:              parent,
		Name:                name,
		SpokespersonName:    spName,
		SpokespersonContact: contact,
		Balance:             new(big.Int),
		Payouts:             new(big.Int),
		Level:               level,
	}
}

// Groups returns a copy of the group led by spokesperson.
func (l *Ledger) Groups(spokesperson common.Address) (*Group, bool, error) {
	var g *Group
	err := l.view(func(tx *txn) error {
		var err error
		g, err = tx.group(spokesperson)
		return err
	})
	if err != nil || g == nil {
		return nil, false, err
	}
	return g.Copy(), true, nil
}

// GroupChild returns the index-th child group of a group, in creation order.
func (l *Ledger) GroupChild(group common.Address, index uint64) (common.Address, error) {
	var child common.Address
	err := l.view(func(tx *txn) error {
		g, err := tx.group(group)
		if err != nil {
			return err
		}
		if g == nil {
			return fail("group_children", ErrNotFound, "no group led by %s", group.Hex())
		}
		if index >= uint64(g.ChildCount) {
			return fail("group_children", ErrNotFound, "child index %d out of range", index)
		}
		child, err = l.store.GroupChild(group, index)
		return err
	})
	return child, err
}
